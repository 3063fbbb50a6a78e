// Implements the order-statistics tree used for reuse-distance accounting.
// It is a top-down splay tree keyed by logical access time, where every node
// carries the size of its subtree. Keys are the last-access times of sampled
// objects, so "how many keys are greater than t" is exactly the number of
// distinct objects touched since time t, the stack distance.

package sim

// treeNode is one node of the order-statistics splay tree.
// Invariant: size == 1 + size(left) + size(right), through every rotation.
type treeNode struct {
	key   int64 // logical access time
	size  int64 // number of nodes in the subtree rooted here
	left  *treeNode
	right *treeNode
}

// nodeSize returns the subtree size of t, treating nil as the empty tree.
func nodeSize(t *treeNode) int64 {
	if t == nil {
		return 0
	}
	return t.size
}

// ReuseTree answers reuse-distance queries over a set of access times.
// All operations are amortized O(log n). Not safe for concurrent use;
// the engine drives it from a single sequential trace pass.
type ReuseTree struct {
	root *treeNode
}

// NewReuseTree creates an empty ReuseTree.
func NewReuseTree() *ReuseTree {
	return &ReuseTree{}
}

// Len returns the number of keys currently in the tree.
func (rt *ReuseTree) Len() int64 {
	return nodeSize(rt.root)
}

// splay moves the node with the given key to the root using the classic
// top-down splay. If the key is absent, the last node on the search path
// becomes the root. Subtree sizes are repaired incrementally: during the
// descent only the sizes hung off the two spine chains are touched, and a
// single linear pass per spine restores them afterwards: O(spine length),
// not O(n).
func (rt *ReuseTree) splay(key int64) {
	t := rt.root
	if t == nil {
		return
	}

	var header treeNode
	l, r := &header, &header
	var lSize, rSize int64

	for {
		if key < t.key {
			if t.left == nil {
				break
			}
			if key < t.left.key {
				// zig-zig: rotate right around t
				y := t.left
				t.left = y.right
				y.right = t
				t.size = nodeSize(t.left) + nodeSize(t.right) + 1
				t = y
				if t.left == nil {
					break
				}
			}
			// link t into the right spine
			r.left = t
			r = t
			t = t.left
			rSize += 1 + nodeSize(r.right)
		} else if key > t.key {
			if t.right == nil {
				break
			}
			if key > t.right.key {
				// zag-zag: rotate left around t
				y := t.right
				t.right = y.left
				y.left = t
				t.size = nodeSize(t.left) + nodeSize(t.right) + 1
				t = y
				if t.right == nil {
					break
				}
			}
			// link t into the left spine
			l.right = t
			l = t
			t = t.right
			lSize += 1 + nodeSize(l.left)
		} else {
			break
		}
	}

	lSize += nodeSize(t.left)
	rSize += nodeSize(t.right)
	t.size = lSize + rSize + 1

	l.right = nil
	r.left = nil

	// Repair sizes down the two discarded spines. Walking the left spine
	// rightward, each node's subtree is everything still below it, so the
	// running count decreases as we descend; same mirrored on the right.
	for y := header.right; y != nil; y = y.right {
		y.size = lSize
		lSize -= 1 + nodeSize(y.left)
	}
	for y := header.left; y != nil; y = y.left {
		y.size = rSize
		rSize -= 1 + nodeSize(y.right)
	}

	// Reassemble: hang the spines off the new root.
	l.right = t.left
	r.left = t.right
	t.left = header.right
	t.right = header.left

	rt.root = t
}

// Insert adds a logical access time to the tree. Inserting a key that is
// already present is a no-op (each live object owns exactly one access time).
func (rt *ReuseTree) Insert(key int64) {
	if rt.root == nil {
		rt.root = &treeNode{key: key, size: 1}
		return
	}
	rt.splay(key)
	t := rt.root
	if key == t.key {
		return
	}
	n := &treeNode{key: key}
	if key < t.key {
		n.left = t.left
		n.right = t
		t.left = nil
	} else {
		n.right = t.right
		n.left = t
		t.right = nil
	}
	t.size = nodeSize(t.left) + nodeSize(t.right) + 1
	n.size = nodeSize(n.left) + nodeSize(n.right) + 1
	rt.root = n
}

// Delete removes a logical access time from the tree. Absent keys are a no-op.
func (rt *ReuseTree) Delete(key int64) {
	if rt.root == nil {
		return
	}
	rt.splay(key)
	t := rt.root
	if key != t.key {
		return
	}
	if t.left == nil {
		rt.root = t.right
		return
	}
	// Splaying the deleted key inside the left subtree (all keys smaller)
	// brings the left subtree's maximum to its root, with a nil right child.
	sub := &ReuseTree{root: t.left}
	sub.splay(key)
	x := sub.root
	x.right = t.right
	x.size = t.size - 1
	rt.root = x
}

// Distance splays the given previous-access time to the root and returns the
// number of keys strictly greater than it, the count of distinct objects
// accessed since, i.e. the reuse (stack) distance. The second return value is
// false if the key is not present.
func (rt *ReuseTree) Distance(key int64) (int64, bool) {
	if rt.root == nil {
		return 0, false
	}
	rt.splay(key)
	if rt.root.key != key {
		return 0, false
	}
	return nodeSize(rt.root.right), true
}

// checkSizes verifies the subtree-size invariant over the whole tree.
// Used by tests; a violation is programming-error class.
func (rt *ReuseTree) checkSizes() bool {
	var walk func(t *treeNode) (int64, bool)
	walk = func(t *treeNode) (int64, bool) {
		if t == nil {
			return 0, true
		}
		ls, lok := walk(t.left)
		rs, rok := walk(t.right)
		total := ls + rs + 1
		return total, lok && rok && t.size == total
	}
	_, ok := walk(rt.root)
	return ok
}
