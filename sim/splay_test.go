package sim

import (
	"math/rand"
	"sort"
	"testing"
)

// refSet is a brute-force sorted-slice reference for the order-statistics
// tree: Insert/Delete keep the slice sorted, distance counts keys greater
// than a given key.
type refSet struct {
	keys []int64
}

func (rs *refSet) insert(key int64) {
	i := sort.Search(len(rs.keys), func(i int) bool { return rs.keys[i] >= key })
	if i < len(rs.keys) && rs.keys[i] == key {
		return
	}
	rs.keys = append(rs.keys, 0)
	copy(rs.keys[i+1:], rs.keys[i:])
	rs.keys[i] = key
}

func (rs *refSet) delete(key int64) {
	i := sort.Search(len(rs.keys), func(i int) bool { return rs.keys[i] >= key })
	if i < len(rs.keys) && rs.keys[i] == key {
		rs.keys = append(rs.keys[:i], rs.keys[i+1:]...)
	}
}

func (rs *refSet) distance(key int64) (int64, bool) {
	i := sort.Search(len(rs.keys), func(i int) bool { return rs.keys[i] >= key })
	if i >= len(rs.keys) || rs.keys[i] != key {
		return 0, false
	}
	return int64(len(rs.keys) - i - 1), true
}

func TestReuseTree_DistanceCountsKeysStrictlyBetween(t *testing.T) {
	// GIVEN accesses at times 1..5
	tree := NewReuseTree()
	for _, k := range []int64{1, 2, 3, 4, 5} {
		tree.Insert(k)
	}

	// THEN the distance from time 2 to the maximum is the 3 keys in between
	d, ok := tree.Distance(2)
	if !ok {
		t.Fatal("key 2 should be present")
	}
	if d != 3 {
		t.Errorf("expected distance 3, got %d", d)
	}

	// AND the maximum itself has distance 0
	d, ok = tree.Distance(5)
	if !ok || d != 0 {
		t.Errorf("expected distance 0 for max key, got %d (ok=%v)", d, ok)
	}
}

func TestReuseTree_AbsentKeyReportsNotPresent(t *testing.T) {
	tree := NewReuseTree()
	tree.Insert(10)
	if _, ok := tree.Distance(5); ok {
		t.Error("distance of an absent key should report not present")
	}
	tree.Delete(10)
	if tree.Len() != 0 {
		t.Errorf("expected empty tree, got %d keys", tree.Len())
	}
}

func TestReuseTree_DeleteAbsentIsNoOp(t *testing.T) {
	tree := NewReuseTree()
	tree.Insert(1)
	tree.Insert(2)
	tree.Delete(99)
	if tree.Len() != 2 {
		t.Errorf("expected 2 keys after deleting an absent key, got %d", tree.Len())
	}
	if !tree.checkSizes() {
		t.Error("size invariant violated after absent delete")
	}
}

func TestReuseTree_DuplicateInsertIsNoOp(t *testing.T) {
	tree := NewReuseTree()
	tree.Insert(7)
	tree.Insert(7)
	if tree.Len() != 1 {
		t.Errorf("expected 1 key after duplicate insert, got %d", tree.Len())
	}
}

func TestReuseTree_RandomizedAgainstSortedReference(t *testing.T) {
	// GIVEN 30,000 random insert/delete/distance operations
	rng := rand.New(rand.NewSource(1))
	tree := NewReuseTree()
	ref := &refSet{}

	const ops = 30000
	const keySpace = 4000

	for i := 0; i < ops; i++ {
		key := int64(rng.Intn(keySpace))
		switch rng.Intn(3) {
		case 0:
			tree.Insert(key)
			ref.insert(key)
		case 1:
			tree.Delete(key)
			ref.delete(key)
		case 2:
			got, gotOK := tree.Distance(key)
			want, wantOK := ref.distance(key)
			if gotOK != wantOK || got != want {
				t.Fatalf("op %d: Distance(%d) = (%d,%v), reference says (%d,%v)",
					i, key, got, gotOK, want, wantOK)
			}
		}
		if tree.Len() != int64(len(ref.keys)) {
			t.Fatalf("op %d: tree has %d keys, reference has %d", i, tree.Len(), len(ref.keys))
		}
	}

	// THEN the size counters still satisfy the subtree invariant
	if !tree.checkSizes() {
		t.Error("subtree-size invariant violated after randomized workload")
	}
}

func TestReuseTree_SizesSurviveAdversarialSplays(t *testing.T) {
	// GIVEN a tree built in ascending order (a pure right spine before splaying)
	tree := NewReuseTree()
	for k := int64(1); k <= 1000; k++ {
		tree.Insert(k)
	}

	// WHEN we splay the far ends repeatedly
	for i := 0; i < 100; i++ {
		if _, ok := tree.Distance(1); !ok {
			t.Fatal("key 1 vanished")
		}
		if _, ok := tree.Distance(1000); !ok {
			t.Fatal("key 1000 vanished")
		}
	}

	// THEN every size counter is still exact
	if !tree.checkSizes() {
		t.Error("subtree-size invariant violated by spine splays")
	}
	if d, _ := tree.Distance(500); d != 500 {
		t.Errorf("expected distance 500, got %d", d)
	}
}
