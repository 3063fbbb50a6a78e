// Implements the recency-queue eviction family: LRU (promote on hit) and
// FIFO (insertion order, no promotion). Head is most-recently-used, tail is
// the victim end; all operations are O(1) over the arena list.

package sim

// recencyPolicy is the behavior set for the recency-queue family.
type recencyPolicy struct {
	cache     *Cache
	list      *objectList
	promotion bool // true = LRU move-to-front on hit, false = FIFO
}

func newRecencyPolicy(cache *Cache, promotion bool, sizeHint int) *recencyPolicy {
	return &recencyPolicy{
		cache:     cache,
		list:      newObjectList(sizeHint),
		promotion: promotion,
	}
}

func (rp *recencyPolicy) onFind(obj *CacheObject, _ *Request) {
	if rp.promotion {
		rp.list.MoveToFront(obj.listNode)
	}
}

func (rp *recencyPolicy) onInsert(obj *CacheObject, _ *Request) {
	obj.listNode = rp.list.PushFront(obj)
}

func (rp *recencyPolicy) selectVictim(_ *Request) *CacheObject {
	return rp.list.Back()
}

func (rp *recencyPolicy) onRemove(obj *CacheObject, _ bool) {
	rp.list.Remove(obj.listNode)
	obj.listNode = noNode
	if rp.list.Len() != rp.cache.Len()-1 {
		panic("recency policy: list and hash index disagree")
	}
}

func (rp *recencyPolicy) canInsert(_ *Request) bool {
	return true
}

// metadataSize charges two list links and an index entry per object.
func (rp *recencyPolicy) metadataSize() int64 {
	return 24
}
