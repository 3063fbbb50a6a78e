// Implements the rank-based eviction family: greedy-dual-size-frequency.
// Priority = eviction watermark + frequency * K / size; evicting the minimum
// raises the watermark to the victim's priority, which ages every future
// insert against the evicted mass without rescanning the set.

package sim

import (
	"fmt"
	"math/rand"
)

// defaultGDSFScaleK controls the numeric scale of the frequency/size term so
// it stays meaningful next to the watermark for byte-sized objects.
const defaultGDSFScaleK = 1e6

// gdsfPolicy is the behavior set for greedy-dual-size-frequency.
type gdsfPolicy struct {
	cache *Cache
	set   *rankSet

	scaleK    float64
	watermark float64 // monotone non-decreasing across the run
	strict    bool    // feasibility pre-check on insert (off by default)
}

func newGDSFPolicy(cache *Cache, params map[string]string, rng *rand.Rand) (*gdsfPolicy, error) {
	scaleK, err := paramFloat(params, "scale-k", defaultGDSFScaleK)
	if err != nil {
		return nil, err
	}
	if scaleK <= 0 {
		return nil, fmt.Errorf("gdsf: scale-k must be > 0, got %v", scaleK)
	}
	strict, err := paramBool(params, "strict-feasibility", false)
	if err != nil {
		return nil, err
	}
	return &gdsfPolicy{
		cache:  cache,
		set:    newRankSet(rng),
		scaleK: scaleK,
		strict: strict,
	}, nil
}

// Watermark returns the current eviction watermark.
func (gp *gdsfPolicy) Watermark() float64 {
	return gp.watermark
}

// priority computes the greedy-dual score for an object with the given
// frequency and size, against the current watermark.
func (gp *gdsfPolicy) priority(frequency int64, size int64) float64 {
	return gp.watermark + float64(frequency)*gp.scaleK/float64(size)
}

func (gp *gdsfPolicy) onFind(obj *CacheObject, _ *Request) {
	obj.Frequency++
	// Reposition under the new priority; the node moves, the object stays.
	gp.set.Delete(obj.rankNode)
	obj.rankNode = gp.set.Insert(obj, gp.priority(obj.Frequency, obj.Size))
}

func (gp *gdsfPolicy) onInsert(obj *CacheObject, _ *Request) {
	obj.Frequency = 1
	obj.rankNode = gp.set.Insert(obj, gp.priority(obj.Frequency, obj.Size))
}

func (gp *gdsfPolicy) selectVictim(_ *Request) *CacheObject {
	n := gp.set.Min()
	if n == nil {
		return nil
	}
	return n.obj
}

func (gp *gdsfPolicy) onRemove(obj *CacheObject, evicted bool) {
	if evicted && obj.rankNode.priority > gp.watermark {
		gp.watermark = obj.rankNode.priority
	}
	gp.set.Delete(obj.rankNode)
	obj.rankNode = nil
	if gp.set.Len() != gp.cache.Len()-1 {
		panic("gdsf: priority set and hash index disagree")
	}
}

// canInsert simulates walking the ordered set from the minimum until enough
// bytes would be freed to fit the candidate. If any object that would be
// evicted first outranks the candidate's own projected priority, the
// candidate is rejected instead of displacing higher-value residents.
// Only active with strict-feasibility=true; the default is to insert always
// and let the next eviction cycle sort it out.
func (gp *gdsfPolicy) canInsert(req *Request) bool {
	if !gp.strict {
		return true
	}
	need := gp.cache.occupied + gp.cache.chargedSize(req.Size) - gp.cache.capacity
	if need <= 0 {
		return true
	}
	candidate := gp.priority(1, req.Size)
	feasible := true
	gp.set.Ascend(func(n *rankNode) bool {
		if n.priority > candidate {
			feasible = false
			return false
		}
		need -= gp.cache.chargedSize(n.obj.Size)
		return need > 0
	})
	return feasible
}

// metadataSize charges the rank node, reverse link, frequency counter, and an
// index entry per object.
func (gp *gdsfPolicy) metadataSize() int64 {
	return 48
}
