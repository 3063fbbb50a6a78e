// Implements the arena-backed recency list used by the recency policy family.
// Nodes are addressed by stable integer handles into a slot arena instead of
// raw sibling pointers; removal pushes the slot onto a free stack for reuse.
// Splices stay O(1) and a stale handle can never dangle into freed memory.

package sim

const noNode = -1

// listSlot is one arena slot of the recency list.
type listSlot struct {
	obj  *CacheObject
	prev int
	next int
	live bool
}

// objectList is a doubly linked list over arena handles.
// Head is the most-recently-used end; tail is the eviction end.
type objectList struct {
	slots []listSlot
	free  []int // recycled slot handles
	head  int
	tail  int
	size  int
}

// newObjectList creates an empty list, optionally pre-sizing the arena.
func newObjectList(sizeHint int) *objectList {
	return &objectList{
		slots: make([]listSlot, 0, sizeHint),
		head:  noNode,
		tail:  noNode,
	}
}

// Len returns the number of live nodes.
func (ol *objectList) Len() int {
	return ol.size
}

// alloc takes a slot from the free stack, or grows the arena.
func (ol *objectList) alloc(obj *CacheObject) int {
	var h int
	if n := len(ol.free); n > 0 {
		h = ol.free[n-1]
		ol.free = ol.free[:n-1]
	} else {
		ol.slots = append(ol.slots, listSlot{})
		h = len(ol.slots) - 1
	}
	ol.slots[h] = listSlot{obj: obj, prev: noNode, next: noNode, live: true}
	return h
}

// PushFront inserts an object at the head and returns its handle.
func (ol *objectList) PushFront(obj *CacheObject) int {
	h := ol.alloc(obj)
	// in a doubly linked list, either both head and tail are set, or neither is
	if ol.head != noNode {
		ol.slots[ol.head].prev = h
		ol.slots[h].next = ol.head
		ol.head = h
	} else {
		ol.head = h
		ol.tail = h
	}
	ol.size++
	return h
}

// Remove detaches the node at handle h and frees its slot.
func (ol *objectList) Remove(h int) {
	s := &ol.slots[h]
	if !s.live {
		panic("objectList: remove of a freed handle")
	}
	if s.prev != noNode {
		// a - b - h - c => a - b - c
		ol.slots[s.prev].next = s.next
	} else {
		// h - c - d => c - d
		ol.head = s.next
	}
	if s.next != noNode {
		ol.slots[s.next].prev = s.prev
	} else {
		// a - b - h => a - b
		ol.tail = s.prev
	}
	ol.slots[h] = listSlot{prev: noNode, next: noNode}
	ol.free = append(ol.free, h)
	ol.size--
}

// MoveToFront detaches the node at handle h and reattaches it at the head.
func (ol *objectList) MoveToFront(h int) {
	if ol.head == h {
		return
	}
	s := &ol.slots[h]
	if !s.live {
		panic("objectList: move of a freed handle")
	}
	// detach
	if s.prev != noNode {
		ol.slots[s.prev].next = s.next
	}
	if s.next != noNode {
		ol.slots[s.next].prev = s.prev
	} else {
		ol.tail = s.prev
	}
	// reattach at head
	s.prev = noNode
	s.next = ol.head
	ol.slots[ol.head].prev = h
	ol.head = h
}

// Back returns the object at the tail (the next eviction victim for LRU),
// or nil if the list is empty.
func (ol *objectList) Back() *CacheObject {
	if ol.tail == noNode {
		return nil
	}
	return ol.slots[ol.tail].obj
}

// BackHandle returns the tail handle, or noNode if the list is empty.
func (ol *objectList) BackHandle() int {
	return ol.tail
}
