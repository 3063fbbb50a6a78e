// Implements the ordered priority set backing the rank-based eviction family.
// It is a skiplist keyed by (priority, insertion sequence): equal priorities
// fall back to arrival order, so ties break FIFO. Level draws come from an
// explicitly owned RNG so runs stay deterministic under seeding.

package sim

import "math/rand"

const (
	rankSetMaxLevel = 32
	rankSetP        = 0.25
)

// rankNode is one member of the priority set. The Cache keeps the reverse
// mapping CacheObject -> rankNode in the object itself (CacheObject.rankNode),
// and the two must always agree.
type rankNode struct {
	obj      *CacheObject
	priority float64
	seq      uint64 // insertion-order tie-breaker
	next     []*rankNode
}

// rankSet is an ascending-ordered set of rankNodes.
// Not safe for concurrent use; the engine is single-threaded by contract.
type rankSet struct {
	head   *rankNode
	level  int
	length int
	seq    uint64
	rng    *rand.Rand
}

// newRankSet creates an empty rankSet drawing levels from rng.
func newRankSet(rng *rand.Rand) *rankSet {
	return &rankSet{
		head:  &rankNode{next: make([]*rankNode, rankSetMaxLevel)},
		level: 1,
		rng:   rng,
	}
}

func (rs *rankSet) randomLevel() int {
	level := 1
	for rs.rng.Float64() < rankSetP && level < rankSetMaxLevel {
		level++
	}
	return level
}

// less orders nodes by priority, then insertion sequence.
func (n *rankNode) less(priority float64, seq uint64) bool {
	if n.priority != priority {
		return n.priority < priority
	}
	return n.seq < seq
}

// Len returns the number of members.
func (rs *rankSet) Len() int {
	return rs.length
}

// Insert adds obj with the given priority and returns its node.
func (rs *rankSet) Insert(obj *CacheObject, priority float64) *rankNode {
	rs.seq++
	seq := rs.seq

	update := make([]*rankNode, rankSetMaxLevel)
	x := rs.head
	for i := rs.level - 1; i >= 0; i-- {
		for x.next[i] != nil && x.next[i].less(priority, seq) {
			x = x.next[i]
		}
		update[i] = x
	}

	lvl := rs.randomLevel()
	if lvl > rs.level {
		for i := rs.level; i < lvl; i++ {
			update[i] = rs.head
		}
		rs.level = lvl
	}

	n := &rankNode{
		obj:      obj,
		priority: priority,
		seq:      seq,
		next:     make([]*rankNode, lvl),
	}
	for i := 0; i < lvl; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	rs.length++
	return n
}

// Delete removes the given node. Deleting a node not in the set panics:
// the forward set and the reverse map disagreeing is programming-error class.
func (rs *rankSet) Delete(n *rankNode) {
	update := make([]*rankNode, rankSetMaxLevel)
	x := rs.head
	for i := rs.level - 1; i >= 0; i-- {
		for x.next[i] != nil && x.next[i].less(n.priority, n.seq) {
			x = x.next[i]
		}
		update[i] = x
	}
	if update[0].next[0] != n {
		panic("rankSet: delete of a node not in the set")
	}
	for i := 0; i < rs.level; i++ {
		if update[i].next[i] == n {
			update[i].next[i] = n.next[i]
		}
	}
	for rs.level > 1 && rs.head.next[rs.level-1] == nil {
		rs.level--
	}
	rs.length--
}

// Min returns the minimum-priority node without removing it, or nil when the
// set is empty.
func (rs *rankSet) Min() *rankNode {
	return rs.head.next[0]
}

// Ascend walks the set in ascending order, stopping when fn returns false.
func (rs *rankSet) Ascend(fn func(*rankNode) bool) {
	for x := rs.head.next[0]; x != nil; x = x.next[0] {
		if !fn(x) {
			return
		}
	}
}
