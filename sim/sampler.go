// Implements the sampling filters that decide which objects participate in
// reuse-distance statistics: a fixed-ratio spatial hash filter and SHARDS
// (hash-range threshold sampling) in fixed-rate and fixed-size modes.

package sim

import (
	"container/heap"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const (
	// SHARDS maps hashes into a 24-bit space; an object is sampled when
	// hash & (2^24-1) < ratio * 2^24.
	shardsModulusBits = 24
	shardsModulus     = 1 << shardsModulusBits
	shardsMask        = shardsModulus - 1
)

// Sampler is the boundary test deciding whether an object participates in
// statistics this run. Implementations must be deterministic: the same
// (salt, ratio, key) always yields the same decision.
type Sampler interface {
	// Sample reports whether the object takes part in distance accounting
	// under the current sampling boundary.
	Sample(key uint64) bool
	// Ratio returns the current effective sampling ratio in (0, 1].
	Ratio() float64
}

// hashKey hashes an object key into the sampling space.
func hashKey(key, salt uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key^salt)
	return xxhash.Sum64(buf[:])
}

// === Spatial sampler ===

// SpatialSampler admits every object whose salted hash lands on a fixed
// residue: hash(key xor salt) % inverseRatio == 0. The ratio never changes
// during a run.
type SpatialSampler struct {
	inverseRatio uint64
	salt         uint64
}

// NewSpatialSampler creates a SpatialSampler with the given inverse ratio
// (sampling ratio = 1/inverseRatio).
func NewSpatialSampler(inverseRatio uint64, salt uint64) (*SpatialSampler, error) {
	if inverseRatio == 0 {
		return nil, fmt.Errorf("spatial sampler: inverse ratio must be >= 1, got 0")
	}
	return &SpatialSampler{inverseRatio: inverseRatio, salt: salt}, nil
}

// Sample implements Sampler.
func (s *SpatialSampler) Sample(key uint64) bool {
	return hashKey(key, s.salt)%s.inverseRatio == 0
}

// Ratio implements Sampler.
func (s *SpatialSampler) Ratio() float64 {
	return 1.0 / float64(s.inverseRatio)
}

// InverseRatio returns the configured inverse sampling ratio.
func (s *SpatialSampler) InverseRatio() uint64 {
	return s.inverseRatio
}

// === SHARDS sampler ===

// ShardsMode selects how the SHARDS boundary evolves over a run.
type ShardsMode string

const (
	// ShardsFixedRate keeps the sampling ratio constant for the whole run.
	ShardsFixedRate ShardsMode = "fixed-rate"
	// ShardsFixedSize shrinks the ratio whenever the sampled population
	// would exceed a target number of distinct objects.
	ShardsFixedSize ShardsMode = "fixed-size"
)

// shardsEntry is one tracked object in fixed-size mode.
type shardsEntry struct {
	key     uint64
	hashVal uint64 // hash & shardsMask, the object's position in sample space
}

// shardsHeap is a max-heap of tracked objects ordered by hash value.
// Ordering: hash value → key (deterministic tie-breaker).
type shardsHeap struct {
	entries []shardsEntry
}

func (h *shardsHeap) Len() int { return len(h.entries) }

func (h *shardsHeap) Less(i, j int) bool {
	ei, ej := h.entries[i], h.entries[j]
	// Primary: larger hash first (max-heap; the boundary ratchets downward)
	if ei.hashVal != ej.hashVal {
		return ei.hashVal > ej.hashVal
	}
	// Secondary: key (deterministic tie-breaker)
	return ei.key > ej.key
}

func (h *shardsHeap) Swap(i, j int) {
	h.entries[i], h.entries[j] = h.entries[j], h.entries[i]
}

func (h *shardsHeap) Push(x interface{}) {
	h.entries = append(h.entries, x.(shardsEntry))
}

func (h *shardsHeap) Pop() interface{} {
	old := h.entries
	n := len(old)
	item := old[n-1]
	h.entries = old[:n-1]
	return item
}

// ShardsSampler samples objects whose 24-bit hash falls below an adjustable
// threshold. In fixed-rate mode the threshold never moves. In fixed-size mode
// the sampler tracks the distinct sampled population in a max-heap by hash
// value; crossing the population target pops the highest-hash objects and
// ratchets the threshold down to exclude them, so the population never
// exceeds the target.
type ShardsSampler struct {
	mode      ShardsMode
	threshold uint64 // current boundary in [1, shardsModulus]

	// fixed-size mode state
	popTarget int
	tracked   *shardsHeap
	inSample  map[uint64]bool
}

// NewShardsSampler creates a ShardsSampler. ratio is the initial sampling
// ratio in (0, 1]; popTarget is only read in fixed-size mode and bounds the
// distinct sampled population.
func NewShardsSampler(mode ShardsMode, ratio float64, popTarget int) (*ShardsSampler, error) {
	if ratio <= 0 || ratio > 1 {
		return nil, fmt.Errorf("shards sampler: ratio must be in (0,1], got %v", ratio)
	}
	s := &ShardsSampler{
		mode:      mode,
		threshold: uint64(ratio * shardsModulus),
	}
	if s.threshold == 0 {
		s.threshold = 1
	}
	switch mode {
	case ShardsFixedRate:
	case ShardsFixedSize:
		if popTarget <= 0 {
			return nil, fmt.Errorf("shards sampler: fixed-size mode needs threshold > 0, got %d", popTarget)
		}
		s.popTarget = popTarget
		s.tracked = &shardsHeap{entries: make([]shardsEntry, 0, popTarget+1)}
		s.inSample = make(map[uint64]bool, popTarget)
	default:
		return nil, fmt.Errorf("shards sampler: unknown mode %q", mode)
	}
	return s, nil
}

// Sample implements Sampler.
func (s *ShardsSampler) Sample(key uint64) bool {
	return hashKey(key, 0)&shardsMask < s.threshold
}

// Ratio implements Sampler.
func (s *ShardsSampler) Ratio() float64 {
	return float64(s.threshold) / float64(shardsModulus)
}

// Mode returns the sampler's configured mode.
func (s *ShardsSampler) Mode() ShardsMode {
	return s.mode
}

// Track records a newly sampled distinct object in fixed-size mode and
// returns the keys pushed out of the sample by the boundary adjustment, if
// any. The caller must stop accounting for the returned keys (drop their
// tree nodes and last-access records). Fixed-rate mode tracks nothing.
func (s *ShardsSampler) Track(key uint64) []uint64 {
	if s.mode != ShardsFixedSize || s.inSample[key] {
		return nil
	}
	hv := hashKey(key, 0) & shardsMask
	heap.Push(s.tracked, shardsEntry{key: key, hashVal: hv})
	s.inSample[key] = true

	var evicted []uint64
	for s.tracked.Len() > s.popTarget {
		top := heap.Pop(s.tracked).(shardsEntry)
		delete(s.inSample, top.key)
		evicted = append(evicted, top.key)
		// The popped object defines the new boundary: everything at or
		// above its hash is out of the sample from now on.
		if top.hashVal < s.threshold {
			s.threshold = top.hashVal
		}
		// Objects already tracked at exactly the new boundary are out too.
		for s.tracked.Len() > 0 && s.tracked.entries[0].hashVal >= s.threshold {
			peer := heap.Pop(s.tracked).(shardsEntry)
			delete(s.inSample, peer.key)
			evicted = append(evicted, peer.key)
		}
	}
	return evicted
}

// Untrack forgets a key in fixed-size mode without moving the boundary.
// Used when the profiler retires an object for its own reasons.
func (s *ShardsSampler) Untrack(key uint64) {
	if s.mode != ShardsFixedSize || !s.inSample[key] {
		return
	}
	delete(s.inSample, key)
	for i, e := range s.tracked.entries {
		if e.key == key {
			heap.Remove(s.tracked, i)
			break
		}
	}
}

// Population returns the current distinct sampled population (fixed-size mode).
func (s *ShardsSampler) Population() int {
	if s.mode != ShardsFixedSize {
		return 0
	}
	return s.tracked.Len()
}

// === Construction by name ===

// ValidSamplers is the set of recognized sampler kinds.
var ValidSamplers = map[string]bool{"spatial": true, "shards": true}

// NewSampler creates a sampler by kind from an opaque parameter string.
// Recognized keys: spatial takes "inverse-ratio" and "salt"; shards takes "ratio",
// "mode" (fixed-rate|fixed-size), "threshold" (population target).
func NewSampler(kind string, paramStr string) (Sampler, error) {
	if !ValidSamplers[kind] {
		return nil, fmt.Errorf("unknown sampler %q", kind)
	}
	params, err := parseParams(paramStr)
	if err != nil {
		return nil, fmt.Errorf("sampler %s: %w", kind, err)
	}
	switch kind {
	case "spatial":
		inv, err := paramInt(params, "inverse-ratio", 100)
		if err != nil {
			return nil, err
		}
		salt, err := paramInt(params, "salt", 0)
		if err != nil {
			return nil, err
		}
		return NewSpatialSampler(uint64(inv), uint64(salt))
	case "shards":
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
		return NewShardsSampler(mode, ratio, int(pop))
	default:
		panic(fmt.Sprintf("unhandled sampler %q", kind))
	}
}
