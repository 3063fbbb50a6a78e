// Implements the self-tuning size-aware admissioner. It admits an object with
// probability exp(-size/c) and periodically re-derives the scale parameter c
// by maximizing a closed-form predicted hit rate over the recently observed
// object population, using golden-section search over log2(c).

package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

const (
	// Long-term observation tables decay by this factor per reconfiguration.
	adaptiveEWMADecay = 0.3

	// Golden-section bracketing constant and termination bound.
	goldenRatio = 0.618034
	goldenTol   = 3.0e-8

	// Fixed-point refinement iterations for the effective residency time T.
	residencyIterations = 20
)

// AdaptiveConfig holds tunable parameters for the adaptive admissioner.
type AdaptiveConfig struct {
	Capacity       int64 // cache capacity in bytes; bounds the search space (must be > 0)
	ReconfInterval int64 // admission checks between reconfigurations (default 500000)
	MaxIteration   int64 // golden-section iteration cap (default 15)
}

// DefaultAdaptiveConfig returns starting parameters for the controller.
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Capacity:       1 << 30,
		ReconfInterval: 500000,
		MaxIteration:   15,
	}
}

// objObservation tracks one object's observed size and request count.
type objObservation struct {
	count float64 // observation count (EMA-decayed in the long-term table)
	size  float64 // object size in bytes (latest observation wins)
}

// AdaptiveAdmissioner admits with probability exp(-size/c) and retunes c
// online. It keeps two observation tables: a short "interval" table reset at
// every reconfiguration, and a "long-term" table folded together by
// exponential moving average. Every ReconfInterval admission checks, if the
// observed object-size mass exceeds 3x the cache capacity, c is re-derived by
// golden-section search maximizing modelHitRate.
type AdaptiveAdmissioner struct {
	cfg AdaptiveConfig
	rng *rand.Rand

	c         float64 // current size-scale parameter
	countdown int64   // admission checks until the next reconfiguration

	interval map[uint64]*objObservation
	longTerm map[uint64]*objObservation

	// Flattened long-term population, rebuilt per reconfiguration so the
	// model evaluation inside the search loops over slices, not maps.
	alignedSize  []float64
	alignedRate  []float64
	alignedCount []float64
}

// NewAdaptiveAdmissioner creates an AdaptiveAdmissioner. The RNG is owned by
// the caller's cache or worker.
func NewAdaptiveAdmissioner(cfg AdaptiveConfig, rng *rand.Rand) (*AdaptiveAdmissioner, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("adaptive admission: capacity must be > 0, got %d", cfg.Capacity)
	}
	if cfg.ReconfInterval <= 0 {
		return nil, fmt.Errorf("adaptive admission: reconf-interval must be > 0, got %d", cfg.ReconfInterval)
	}
	if cfg.MaxIteration <= 0 {
		return nil, fmt.Errorf("adaptive admission: max-iteration must be > 0, got %d", cfg.MaxIteration)
	}
	return &AdaptiveAdmissioner{
		cfg:       cfg,
		rng:       rng,
		c:         float64(cfg.Capacity), // start permissive: most objects admitted
		countdown: cfg.ReconfInterval,
		interval:  make(map[uint64]*objObservation),
		longTerm:  make(map[uint64]*objObservation),
	}, nil
}

// C returns the current size-scale parameter.
func (aa *AdaptiveAdmissioner) C() float64 {
	return aa.c
}

// Admit records the observation, reconfigures when the countdown lapses, and
// flips the size-biased coin.
func (aa *AdaptiveAdmissioner) Admit(req *Request) bool {
	obs, ok := aa.interval[req.Key]
	if !ok {
		obs = &objObservation{}
		aa.interval[req.Key] = obs
	}
	obs.count++
	obs.size = float64(req.Size)

	aa.countdown--
	if aa.countdown <= 0 {
		aa.reconfigure()
	}

	return aa.rng.Float64() < math.Exp(-float64(req.Size)/aa.c)
}

// reconfigure folds the interval table into the long-term table and, when
// enough object mass has been observed, re-derives c. A model that comes back
// NaN keeps the previous c rather than propagating.
func (aa *AdaptiveAdmissioner) reconfigure() {
	aa.countdown = aa.cfg.ReconfInterval

	for _, obs := range aa.longTerm {
		obs.count *= adaptiveEWMADecay
	}
	for key, obs := range aa.interval {
		lt, ok := aa.longTerm[key]
		if !ok {
			lt = &objObservation{}
			aa.longTerm[key] = lt
		}
		lt.count += (1 - adaptiveEWMADecay) * obs.count
		lt.size = obs.size
	}
	aa.interval = make(map[uint64]*objObservation)

	// Prune entries decayed to noise.
	for key, obs := range aa.longTerm {
		if obs.count < 0.1 {
			delete(aa.longTerm, key)
		}
	}

	var totalSize float64
	for _, obs := range aa.longTerm {
		totalSize += obs.size
	}
	if totalSize <= 3*float64(aa.cfg.Capacity) {
		// Not enough observed mass to fit the model yet.
		return
	}

	aa.alignedSize = aa.alignedSize[:0]
	aa.alignedRate = aa.alignedRate[:0]
	aa.alignedCount = aa.alignedCount[:0]
	for _, obs := range aa.longTerm {
		aa.alignedSize = append(aa.alignedSize, obs.size)
		aa.alignedRate = append(aa.alignedRate, obs.count/float64(aa.cfg.ReconfInterval))
		aa.alignedCount = append(aa.alignedCount, obs.count)
	}

	next, ok := aa.goldenSection()
	if !ok {
		logrus.Warnf("adaptive admission: hit-rate model degenerate, keeping c=%g", aa.c)
		return
	}
	aa.c = next
	logrus.Infof("adaptive admission: reconfigured c=%g over %d objects", aa.c, len(aa.longTerm))
}

// goldenSection maximizes modelHitRate over log2(c) in [0, log2(capacity)].
// Returns (c, false) if the model produced NaN anywhere, in which case the
// caller keeps the previous parameter.
func (aa *AdaptiveAdmissioner) goldenSection() (float64, bool) {
	x1 := 0.0
	x4 := math.Log2(float64(aa.cfg.Capacity))
	x2 := x4 - goldenRatio*(x4-x1)
	x3 := x1 + goldenRatio*(x4-x1)

	h2 := aa.modelHitRate(x2)
	h3 := aa.modelHitRate(x3)
	if math.IsNaN(h2) || math.IsNaN(h3) {
		return 0, false
	}

	for i := int64(0); i < aa.cfg.MaxIteration && math.Abs(x4-x1) > goldenTol*(math.Abs(x2)+math.Abs(x3)); i++ {
		if h3 > h2 {
			// maximum lies in [x2, x4]
			x1 = x2
			x2, h2 = x3, h3
			x3 = x1 + goldenRatio*(x4-x1)
			h3 = aa.modelHitRate(x3)
			if math.IsNaN(h3) {
				return 0, false
			}
		} else {
			// maximum lies in [x1, x3]
			x4 = x3
			x3, h3 = x2, h2
			x2 = x4 - goldenRatio*(x4-x1)
			h2 = aa.modelHitRate(x2)
			if math.IsNaN(h2) {
				return 0, false
			}
		}
	}

	best := x2
	if h3 > h2 {
		best = x3
	}
	return math.Pow(2, best), true
}

// oP1 and oP2 are the rational-polynomial halves of the per-object hit
// probability in T (effective residency time), l (request rate) and
// p (admission probability): hit probability = oP1/oP2.
func oP1(T, l, p float64) float64 {
	return l * p * T * (840.0 + 60.0*l*T + 20.0*l*l*T*T + l*l*l*T*T*T)
}

func oP2(T, l, p float64) float64 {
	return 840.0 + 120.0*l*(-3.0+7.0*p)*T + 60.0*l*l*(1.0+p)*T*T +
		4.0*l*l*l*(-1.0+5.0*p)*T*T*T + l*l*l*l*p*T*T*T*T
}

// modelHitRate predicts the weighted object hit rate if the scale parameter
// were 2^log2c. It first solves a fixed-point equation for the effective
// cache-residency time T (capacity divided by admitted byte pressure, refined
// over residencyIterations Newton-like steps), then evaluates the per-object
// hit probability polynomials and sums them weighted by observation count.
func (aa *AdaptiveAdmissioner) modelHitRate(log2c float64) float64 {
	c := math.Pow(2, log2c)

	// Admission probability per object at this c.
	prob := make([]float64, len(aa.alignedSize))
	var admittedMass float64
	for i, size := range aa.alignedSize {
		prob[i] = math.Exp(-size / c)
		admittedMass += aa.alignedCount[i] * prob[i] * size
	}
	if admittedMass <= 0 {
		return 0
	}

	T := float64(aa.cfg.Capacity) / admittedMass
	for j := 0; j < residencyIterations; j++ {
		if T > 1e70 {
			break
		}
		var occupied float64
		for i, size := range aa.alignedSize {
			rateT := aa.alignedRate[i] * T
			if rateT > 150 {
				// Residency probability is 1; the exponential would
				// overflow before telling us that.
				occupied += size
				continue
			}
			expTerm := math.Exp(rateT) - 1
			admExp := prob[i] * expTerm
			occupied += size * (admExp / (1 + admExp))
		}
		if occupied <= 0 {
			break
		}
		T = float64(aa.cfg.Capacity) * T / occupied
	}

	var weightedHits float64
	for i := range aa.alignedSize {
		p1 := oP1(T, aa.alignedRate[i], prob[i])
		p2 := oP2(T, aa.alignedRate[i], prob[i])
		var hit float64
		if p2 != 0 {
			hit = p1 / p2
		}
		hit = math.Min(1, math.Max(0, hit))
		weightedHits += aa.alignedCount[i] * hit
	}
	return weightedHits
}
