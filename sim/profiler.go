// Implements the MRC profiler orchestration: the SHARDS one-pass strategy
// (sampled reuse distances -> histogram -> curve) and the mini-simulation
// strategy (spatially pre-sampled trace replayed through one concrete cache
// per candidate size, optionally across a worker pool).

package sim

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// TraceReader is the contract the profiler consumes from the external trace
// layer: a sequential request source that can restart from the beginning.
type TraceReader interface {
	// Next returns the next request, or ok=false at end of trace.
	Next() (Request, bool)
	// Reset rewinds the reader to the start of the trace.
	Reset() error
}

// Profiler estimates a miss-ratio curve from one pass over a request trace.
type Profiler interface {
	Run(reader TraceReader) (*MRCResult, error)
}

// NewProfiler creates a profiler by configured kind. Configuration errors are
// fatal at construction; no partial profiler is returned.
func NewProfiler(cfg ProfilerConfig) (Profiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case "shards":
		params, err := parseParams(cfg.Params)
		if err != nil {
			return nil, fmt.Errorf("profiler shards: %w", err)
		}
		ratio, err := paramFloat(params, "ratio", 0.01)
		if err != nil {
			return nil, err
		}
		pop, err := paramInt(params, "threshold", 8192)
		if err != nil {
			return nil, err
		}
		mode := ShardsMode(params["mode"])
		if mode == "" {
			mode = ShardsFixedRate
		}
		sampler, err := NewShardsSampler(mode, ratio, int(pop))
		if err != nil {
			return nil, err
		}
		return &ShardsProfiler{cfg: cfg, sampler: sampler}, nil
	case "minisim":
		params, err := parseParams(cfg.Params)
		if err != nil {
			return nil, fmt.Errorf("profiler minisim: %w", err)
		}
		inv, err := paramInt(params, "inverse-ratio", 100)
		if err != nil {
			return nil, err
		}
		salt, err := paramInt(params, "salt", 0)
		if err != nil {
			return nil, err
		}
		sampler, err := NewSpatialSampler(uint64(inv), uint64(salt))
		if err != nil {
			return nil, err
		}
		return &MiniSimProfiler{cfg: cfg, sampler: sampler}, nil
	default:
		panic(fmt.Sprintf("unhandled profiler kind %q", cfg.Kind))
	}
}

// === SHARDS strategy ===

// sampleRecord is the per-object state of the SHARDS pass.
type sampleRecord struct {
	lastAccess int64 // logical time of the previous access
	size       int64
}

// ShardsProfiler estimates the whole curve from a single trace pass: sampled
// reuse distances feed the histogram, and every candidate size is read off
// the finished histogram. Near-linear in trace length, independent of the
// number of candidate sizes; no concrete eviction policy is simulated.
type ShardsProfiler struct {
	cfg     ProfilerConfig
	sampler *ShardsSampler
}

// Run performs the pass and projects the curve.
func (sp *ShardsProfiler) Run(reader TraceReader) (*MRCResult, error) {
	tree := NewReuseTree()
	hist := NewReuseHistogram()
	records := make(map[uint64]*sampleRecord)

	var totalRequests, totalBytes int64
	var sampledFootprintBytes int64
	var clock int64

	for {
		req, ok := reader.Next()
		if !ok {
			break
		}
		totalRequests++
		totalBytes += req.Size
		clock++

		if !sp.sampler.Sample(req.Key) {
			continue
		}
		ratio := sp.sampler.Ratio()

		if rec, seen := records[req.Key]; seen {
			dist, present := tree.Distance(rec.lastAccess)
			if !present {
				panic("shards profiler: tracked object missing from reuse tree")
			}
			hist.Update(dist, req.Size, ratio)
			tree.Delete(rec.lastAccess)
			rec.lastAccess = clock
			rec.size = req.Size
			tree.Insert(clock)
			continue
		}

		// First-ever access to a sampled object: a cold miss.
		hist.UpdateColdMiss(req.Size, ratio)

		// Fixed-size mode may ratchet the boundary down right here; every
		// object pushed out of the sample stops being accounted for.
		for _, key := range sp.sampler.Track(req.Key) {
			if old, ok := records[key]; ok {
				tree.Delete(old.lastAccess)
				sampledFootprintBytes -= old.size
				delete(records, key)
			}
		}
		if !sp.sampler.Sample(req.Key) {
			// The new object itself landed on the wrong side of the
			// adjusted boundary.
			continue
		}
		records[req.Key] = &sampleRecord{lastAccess: clock, size: req.Size}
		sampledFootprintBytes += req.Size
		tree.Insert(clock)
	}

	finalRatio := sp.sampler.Ratio()
	if sp.sampler.Mode() == ShardsFixedSize {
		hist.WrapUp(finalRatio)
	}
	hist.Adjust(totalRequests, finalRatio)

	if totalRequests == 0 {
		return nil, fmt.Errorf("empty trace")
	}

	meanObjSize := float64(totalBytes) / float64(totalRequests)
	footprintObjects := int64(math.Round(float64(len(records)) / finalRatio))
	footprintBytes := int64(math.Round(float64(sampledFootprintBytes) / finalRatio))
	sizes := resolveSizes(sp.cfg, footprintBytes, footprintObjects)

	// Project in distance units (distinct objects); byte-unit candidate
	// sizes are converted through the trace's mean object size.
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	distSizes := make([]int64, len(sizes))
	for i, s := range sizes {
		if sp.cfg.SizeUnit == SizeUnitObjects {
			distSizes[i] = s
		} else {
			distSizes[i] = int64(math.Round(float64(s) / meanObjSize))
		}
	}

	points := hist.MRC(distSizes)
	for i := range points {
		points[i].Size = sizes[i]
	}

	logrus.Infof("shards profile complete: %d requests, final ratio %.6f, %d sampled objects",
		totalRequests, finalRatio, len(records))

	return &MRCResult{
		Points:        points,
		TotalRequests: totalRequests,
		TotalBytes:    totalBytes,
		SamplingRatio: finalRatio,
	}, nil
}

// === Mini-simulation strategy ===

// MiniSimProfiler spatially sub-samples the trace once, then replays the
// sampled requests through one concrete cache per candidate size. Workers own
// a private cache and a private cursor over the shared read-only sampled
// trace; no locking, results merged only after the join.
type MiniSimProfiler struct {
	cfg     ProfilerConfig
	sampler *SpatialSampler
}

// Run performs the pre-sampling pass and the per-size replays.
func (mp *MiniSimProfiler) Run(reader TraceReader) (*MRCResult, error) {
	var sampled []Request
	var totalRequests, totalBytes int64
	var footprintBytes, footprintObjects int64
	seen := make(map[uint64]bool)

	for {
		req, ok := reader.Next()
		if !ok {
			break
		}
		totalRequests++
		totalBytes += req.Size
		if !seen[req.Key] {
			seen[req.Key] = true
			footprintBytes += req.Size
			footprintObjects++
		}
		if mp.sampler.Sample(req.Key) {
			sampled = append(sampled, req)
		}
	}
	if totalRequests == 0 {
		return nil, fmt.Errorf("empty trace")
	}

	sizes := resolveSizes(mp.cfg, footprintBytes, footprintObjects)
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

	// Sampled capacity: each cache simulates its candidate size scaled down
	// by the sampling ratio, so the sampled working set sees the same
	// relative pressure the full trace would.
	inv := mp.sampler.InverseRatio()
	meanObjSize := float64(totalBytes) / float64(totalRequests)

	statsPerSize := make([]CacheStats, len(sizes))
	errs := make([]error, len(sizes))

	workers := mp.cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(sizes) {
		workers = len(sizes)
	}

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range work {
				statsPerSize[idx], errs[idx] = mp.replayOne(sizes[idx], idx, inv, meanObjSize, sampled)
			}
		}(w)
	}
	for idx := range sizes {
		work <- idx
	}
	close(work)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	points := make([]MRCPoint, len(sizes))
	for i, s := range statsPerSize {
		points[i] = MRCPoint{
			Size:          sizes[i],
			MissRatio:     s.MissRatio(),
			ByteMissRatio: s.ByteMissRatio(),
		}
	}

	logrus.Infof("minisim profile complete: %d requests, %d sampled (1/%d), %d sizes, %d workers",
		totalRequests, len(sampled), inv, len(sizes), workers)

	return &MRCResult{
		Points:        points,
		TotalRequests: totalRequests,
		TotalBytes:    totalBytes,
		SamplingRatio: mp.sampler.Ratio(),
	}, nil
}

// replayOne builds one cache at the scaled-down candidate size and replays
// the whole sampled trace through it. RNG derivation hangs off the candidate
// index, not the worker, so results do not depend on pool scheduling.
func (mp *MiniSimProfiler) replayOne(size int64, idx int, inv uint64, meanObjSize float64, sampled []Request) (CacheStats, error) {
	capacity := size / int64(inv)
	if mp.cfg.SizeUnit == SizeUnitObjects {
		capacity = int64(math.Round(float64(size) * meanObjSize / float64(inv)))
	}
	if capacity <= 0 {
		capacity = 1
	}

	cacheCfg := mp.cfg.Cache
	cacheCfg.CapacityBytes = capacity

	rng := NewPartitionedRNG(NewSimulationKey(mp.cfg.Seed ^ int64(idx+1)))
	cache, err := NewCache(mp.cfg.Policy, cacheCfg, mp.cfg.PolicyParams, rng)
	if err != nil {
		return CacheStats{}, fmt.Errorf("cache for size %d: %w", size, err)
	}
	adm, err := NewAdmissioner(mp.cfg.Admission, mp.cfg.AdmissionParams, rng.ForSubsystem(SubsystemAdmission))
	if err != nil {
		return CacheStats{}, fmt.Errorf("admissioner for size %d: %w", size, err)
	}
	cache.SetAdmissioner(adm)

	for i := range sampled {
		req := &sampled[i]
		if req.Op == OpDelete {
			cache.Remove(req.Key)
			continue
		}
		cache.Get(req)
	}
	return cache.Stats, nil
}

// resolveSizes produces the candidate size list: explicit sizes pass through;
// working-set fractions are resolved against the trace's distinct footprint.
func resolveSizes(cfg ProfilerConfig, footprintBytes, footprintObjects int64) []int64 {
	if len(cfg.CacheSizes) > 0 {
		return append([]int64(nil), cfg.CacheSizes...)
	}
	footprint := footprintBytes
	if cfg.SizeUnit == SizeUnitObjects {
		footprint = footprintObjects
	}
	sizes := make([]int64, 0, len(cfg.SizeFractions))
	for _, f := range cfg.SizeFractions {
		s := int64(math.Round(f * float64(footprint)))
		if s < 1 {
			s = 1
		}
		sizes = append(sizes, s)
	}
	return sizes
}
