package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// Admissioner decides whether an incoming object is allowed to enter a cache
// at all, independent of eviction. Used by Cache.Get to gate inserts.
type Admissioner interface {
	Admit(req *Request) bool
}

// AlwaysAdmit admits all objects unconditionally.
type AlwaysAdmit struct{}

func (a *AlwaysAdmit) Admit(_ *Request) bool {
	return true
}

// SizeProbabilistic admits an object with probability exp(-exponent * size):
// larger objects are exponentially less likely to be admitted. The exponent
// is a fixed configuration constant, typically around 1e-6.
type SizeProbabilistic struct {
	exponent float64
	rng      *rand.Rand
}

// NewSizeProbabilistic creates a SizeProbabilistic admissioner. The RNG is
// owned by the caller's cache or worker, keeping decisions deterministic
// under seeding.
func NewSizeProbabilistic(exponent float64, rng *rand.Rand) (*SizeProbabilistic, error) {
	if exponent < 0 {
		return nil, fmt.Errorf("size-probabilistic admission: exponent must be >= 0, got %v", exponent)
	}
	return &SizeProbabilistic{exponent: exponent, rng: rng}, nil
}

// Admit checks whether the object survives the size-biased coin flip.
func (sp *SizeProbabilistic) Admit(req *Request) bool {
	return sp.rng.Float64() < math.Exp(-sp.exponent*float64(req.Size))
}

// ValidAdmissioners is the set of recognized admissioner names.
// Shared by construction and CLI validation to avoid duplication.
var ValidAdmissioners = map[string]bool{"": true, "always": true, "size-probabilistic": true, "adaptive": true}

// IsValidAdmissioner returns true if name is a recognized admissioner name.
func IsValidAdmissioner(name string) bool {
	return ValidAdmissioners[name]
}

// NewAdmissioner creates an admissioner by name from an opaque parameter
// string. An empty name defaults to AlwaysAdmit (for CLI flag default
// compatibility). Recognized keys vary per variant:
//   - size-probabilistic: "exponent"
//   - adaptive: "capacity", "reconf-interval", "max-iteration"
//
// Malformed or out-of-range parameters are configuration errors reported at
// construction; no partial admissioner is returned.
func NewAdmissioner(name string, paramStr string, rng *rand.Rand) (Admissioner, error) {
	if !IsValidAdmissioner(name) {
		return nil, fmt.Errorf("unknown admissioner %q", name)
	}
	params, err := parseParams(paramStr)
	if err != nil {
		return nil, fmt.Errorf("admissioner %s: %w", name, err)
	}
	switch name {
	case "", "always":
		return &AlwaysAdmit{}, nil
	case "size-probabilistic":
		exponent, err := paramFloat(params, "exponent", 1e-6)
		if err != nil {
			return nil, err
		}
		return NewSizeProbabilistic(exponent, rng)
	case "adaptive":
		cfg := DefaultAdaptiveConfig()
		if cfg.Capacity, err = paramInt(params, "capacity", cfg.Capacity); err != nil {
			return nil, err
		}
		if cfg.ReconfInterval, err = paramInt(params, "reconf-interval", cfg.ReconfInterval); err != nil {
			return nil, err
		}
		if cfg.MaxIteration, err = paramInt(params, "max-iteration", cfg.MaxIteration); err != nil {
			return nil, err
		}
		return NewAdaptiveAdmissioner(cfg, rng)
	default:
		panic(fmt.Sprintf("unhandled admissioner %q", name))
	}
}
