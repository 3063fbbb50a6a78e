package trace

import (
	"fmt"
	"math/rand"

	"github.com/mrcsim/mrcsim/sim"
)

// SyntheticConfig groups parameters for synthetic workload generation.
// Object popularity follows a Zipf distribution; object sizes are drawn once
// per object (stable across repeat accesses) around MeanSize.
type SyntheticConfig struct {
	Requests  int     // trace length (must be > 0)
	Objects   int     // distinct object population (must be > 0)
	ZipfS     float64 // Zipf skew parameter (must be > 1)
	ZipfV     float64 // Zipf value offset (must be >= 1)
	MeanSize  int64   // mean object size in bytes (must be > 0)
	SizeSpan  int64   // sizes drawn uniformly in [MeanSize-SizeSpan, MeanSize+SizeSpan]
}

// Validate checks the generation parameters.
func (cfg SyntheticConfig) Validate() error {
	if cfg.Requests <= 0 {
		return fmt.Errorf("synthetic trace: requests must be > 0, got %d", cfg.Requests)
	}
	if cfg.Objects <= 0 {
		return fmt.Errorf("synthetic trace: objects must be > 0, got %d", cfg.Objects)
	}
	if cfg.ZipfS <= 1 {
		return fmt.Errorf("synthetic trace: zipf-s must be > 1, got %v", cfg.ZipfS)
	}
	if cfg.ZipfV < 1 {
		return fmt.Errorf("synthetic trace: zipf-v must be >= 1, got %v", cfg.ZipfV)
	}
	if cfg.MeanSize <= 0 {
		return fmt.Errorf("synthetic trace: mean-size must be > 0, got %d", cfg.MeanSize)
	}
	if cfg.SizeSpan < 0 || cfg.SizeSpan >= cfg.MeanSize {
		return fmt.Errorf("synthetic trace: size-span must be in [0, mean-size), got %d", cfg.SizeSpan)
	}
	return nil
}

// Generate materializes a synthetic trace. The same (config, rng seed) pair
// always yields the same trace.
func Generate(cfg SyntheticConfig, rng *rand.Rand) (*SliceReader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	zipf := rand.NewZipf(rng, cfg.ZipfS, cfg.ZipfV, uint64(cfg.Objects-1))

	// Per-object sizes are fixed at first draw so repeat accesses agree.
	sizes := make(map[uint64]int64, cfg.Objects)

	requests := make([]sim.Request, cfg.Requests)
	for i := range requests {
		key := zipf.Uint64()
		size, ok := sizes[key]
		if !ok {
			size = cfg.MeanSize
			if cfg.SizeSpan > 0 {
				size += rng.Int63n(2*cfg.SizeSpan+1) - cfg.SizeSpan
			}
			sizes[key] = size
		}
		requests[i] = sim.Request{
			Key:  key,
			Size: size,
			Op:   sim.OpGet,
			Time: int64(i + 1),
		}
	}
	return NewSliceReader(requests), nil
}
