package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CacheConfig groups Cache construction parameters.
type CacheConfig struct {
	CapacityBytes     int64 // total capacity in bytes (must be > 0)
	DefaultTTL        int64 // default object TTL in logical-time units (0 = no expiry)
	HashTableSizeHint int   // pre-sizing hint for the hash index (0 = none)
	TrackOverhead     bool  // charge per-object metadata overhead against capacity
}

// Validate checks the cache parameters. Errors are fatal at construction.
func (cfg CacheConfig) Validate() error {
	if cfg.CapacityBytes <= 0 {
		return fmt.Errorf("cache capacity must be > 0 bytes, got %d", cfg.CapacityBytes)
	}
	if cfg.DefaultTTL < 0 {
		return fmt.Errorf("default TTL must be >= 0, got %d", cfg.DefaultTTL)
	}
	if cfg.HashTableSizeHint < 0 {
		return fmt.Errorf("hash table size hint must be >= 0, got %d", cfg.HashTableSizeHint)
	}
	return nil
}

// SizeUnit selects how candidate cache sizes are interpreted.
type SizeUnit string

const (
	// SizeUnitBytes treats candidate sizes as byte capacities; the SHARDS
	// strategy converts them to distance units via the trace's mean object
	// size at projection time.
	SizeUnitBytes SizeUnit = "bytes"
	// SizeUnitObjects treats candidate sizes as object counts, the native
	// unit of reuse distances.
	SizeUnitObjects SizeUnit = "objects"
)

// ValidProfilers is the set of recognized profiler kinds.
var ValidProfilers = map[string]bool{"shards": true, "minisim": true}

// ProfilerConfig groups MRC profiler construction parameters.
type ProfilerConfig struct {
	Kind   string // "shards" or "minisim"
	Params string // profiler-specific parameter string, passed to the sampler

	// Mini-simulation strategy: which concrete cache to replay through.
	Policy          string
	PolicyParams    string
	Admission       string
	AdmissionParams string
	Cache           CacheConfig // capacity is overridden per candidate size

	// Candidate cache sizes; exactly one of the two must be set.
	CacheSizes    []int64   // explicit sizes
	SizeFractions []float64 // fractions of the trace's distinct-byte footprint

	SizeUnit SizeUnit // defaults to bytes
	Workers  int      // mini-sim worker pool size (0 = one worker per size, capped)
	Seed     int64
}

// Validate checks the profiler parameters. Errors are fatal at construction.
func (cfg ProfilerConfig) Validate() error {
	if !ValidProfilers[cfg.Kind] {
		return fmt.Errorf("unknown profiler kind %q", cfg.Kind)
	}
	if len(cfg.CacheSizes) == 0 && len(cfg.SizeFractions) == 0 {
		return fmt.Errorf("no candidate cache sizes configured")
	}
	if len(cfg.CacheSizes) > 0 && len(cfg.SizeFractions) > 0 {
		return fmt.Errorf("cache sizes and size fractions are mutually exclusive")
	}
	for _, s := range cfg.CacheSizes {
		if s <= 0 {
			return fmt.Errorf("candidate cache size must be > 0, got %d", s)
		}
	}
	for _, f := range cfg.SizeFractions {
		if f <= 0 || f > 1 {
			return fmt.Errorf("size fraction must be in (0,1], got %v", f)
		}
	}
	switch cfg.SizeUnit {
	case "", SizeUnitBytes, SizeUnitObjects:
	default:
		return fmt.Errorf("unknown size unit %q", cfg.SizeUnit)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", cfg.Workers)
	}
	if cfg.Kind == "minisim" {
		if !IsValidPolicy(cfg.Policy) {
			return fmt.Errorf("unknown eviction policy %q", cfg.Policy)
		}
		if !IsValidAdmissioner(cfg.Admission) {
			return fmt.Errorf("unknown admissioner %q", cfg.Admission)
		}
	}
	return nil
}

// RunBundle holds a full profiling run configuration, loadable from a YAML
// file. Zero-valued fields mean "not set" and fall back to CLI flags.
type RunBundle struct {
	Profiler        string    `yaml:"profiler"`
	ProfilerParams  string    `yaml:"profiler_params"`
	Policy          string    `yaml:"policy"`
	PolicyParams    string    `yaml:"policy_params"`
	Admission       string    `yaml:"admission"`
	AdmissionParams string    `yaml:"admission_params"`
	CacheSizes      []int64   `yaml:"cache_sizes"`
	SizeFractions   []float64 `yaml:"size_fractions"`
	SizeUnit        string    `yaml:"size_unit"`
	Workers         int       `yaml:"workers"`
	Seed            *int64    `yaml:"seed"`
}

// LoadRunBundle reads and parses a YAML run configuration file.
func LoadRunBundle(path string) (*RunBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var bundle RunBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &bundle, nil
}

// Apply overlays the bundle's set fields onto a ProfilerConfig.
func (b *RunBundle) Apply(cfg *ProfilerConfig) {
	if b.Profiler != "" {
		cfg.Kind = b.Profiler
	}
	if b.ProfilerParams != "" {
		cfg.Params = b.ProfilerParams
	}
	if b.Policy != "" {
		cfg.Policy = b.Policy
	}
	if b.PolicyParams != "" {
		cfg.PolicyParams = b.PolicyParams
	}
	if b.Admission != "" {
		cfg.Admission = b.Admission
	}
	if b.AdmissionParams != "" {
		cfg.AdmissionParams = b.AdmissionParams
	}
	if len(b.CacheSizes) > 0 {
		cfg.CacheSizes = b.CacheSizes
	}
	if len(b.SizeFractions) > 0 {
		cfg.SizeFractions = b.SizeFractions
	}
	if b.SizeUnit != "" {
		cfg.SizeUnit = SizeUnit(b.SizeUnit)
	}
	if b.Workers != 0 {
		cfg.Workers = b.Workers
	}
	if b.Seed != nil {
		cfg.Seed = *b.Seed
	}
}
