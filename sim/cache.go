// Implements the Cache abstraction: a fixed-capacity object store composing a
// hash index, a policy-specific ordering structure, and an optional
// admissioner. Concrete eviction policies plug in as behavior sets; the Cache
// owns everything the policies share (index, byte accounting, TTL handling).

package sim

import (
	"fmt"
)

// policyOps is the behavior set a concrete eviction policy provides.
// The Cache dispatches to exactly one of these per instance.
type policyOps interface {
	// onFind performs the policy's promotion logic for a resident object.
	// Only called with update=true; a find without update never mutates.
	onFind(obj *CacheObject, req *Request)
	// onInsert appends a fresh object to the ordering structure.
	// The caller guarantees sufficient free capacity.
	onInsert(obj *CacheObject, req *Request)
	// selectVictim previews the next eviction victim without mutating
	// state. Returns nil when the cache is empty.
	selectVictim(req *Request) *CacheObject
	// onRemove detaches an object from the ordering structure. evicted
	// distinguishes policy eviction (watermark updates apply) from
	// explicit removal (no watermark update).
	onRemove(obj *CacheObject, evicted bool)
	// canInsert is the policy's admission-feasibility pre-check. Policies
	// without one return true unconditionally.
	canInsert(req *Request) bool
	// metadataSize is the per-object bookkeeping overhead in bytes,
	// charged against capacity when the cache tracks overhead.
	metadataSize() int64
}

// CacheStats counts hit/miss outcomes of Get calls.
type CacheStats struct {
	Hits      int64
	Misses    int64
	HitBytes  int64
	MissBytes int64
}

// Requests returns the total number of Get calls counted.
func (s CacheStats) Requests() int64 {
	return s.Hits + s.Misses
}

// MissRatio returns the object miss ratio, clipped to [0,1].
func (s CacheStats) MissRatio() float64 {
	if s.Hits+s.Misses == 0 {
		return 1
	}
	return clipRatio(float64(s.Misses) / float64(s.Hits+s.Misses))
}

// ByteMissRatio returns the byte miss ratio, clipped to [0,1].
func (s CacheStats) ByteMissRatio() float64 {
	total := s.HitBytes + s.MissBytes
	if total == 0 {
		return 1
	}
	return clipRatio(float64(s.MissBytes) / float64(total))
}

// Cache is a fixed-capacity object store with a pluggable eviction policy.
// Invariant: occupied <= capacity after any composite operation completes,
// and the object count agrees between the hash index and the ordering
// structure. Not safe for concurrent use.
type Cache struct {
	capacity      int64
	occupied      int64
	defaultTTL    int64
	trackOverhead bool

	index       map[uint64]*CacheObject
	policy      policyOps
	admissioner Admissioner

	Stats CacheStats
}

// Capacity returns the configured capacity in bytes.
func (c *Cache) Capacity() int64 {
	return c.capacity
}

// Occupied returns the currently occupied bytes.
func (c *Cache) Occupied() int64 {
	return c.occupied
}

// Len returns the number of resident objects.
func (c *Cache) Len() int {
	return len(c.index)
}

// SetAdmissioner attaches an admissioner gating future inserts.
func (c *Cache) SetAdmissioner(a Admissioner) {
	c.admissioner = a
}

// chargedSize returns the bytes an object of the given size occupies,
// including per-object metadata overhead when tracking is enabled.
func (c *Cache) chargedSize(size int64) int64 {
	if c.trackOverhead {
		return size + c.policy.metadataSize()
	}
	return size
}

// Find looks up a request's object. With update=true the policy performs its
// promotion logic, and a lapsed TTL removes the object as a side effect.
// With update=false the call is read-only and idempotent.
func (c *Cache) Find(req *Request, update bool) *CacheObject {
	obj, ok := c.index[req.Key]
	if !ok {
		return nil
	}
	if !update {
		return obj
	}
	if obj.expired(req.Time) {
		c.detach(obj, false)
		return nil
	}
	c.policy.onFind(obj, req)
	return obj
}

// Insert creates a CacheObject for the request, registers it in the hash
// index, and appends it to the policy's ordering structure. The caller must
// have evicted enough to fit it; inserting past capacity is a contract
// violation the next invariant check will catch.
func (c *Cache) Insert(req *Request) *CacheObject {
	if _, ok := c.index[req.Key]; ok {
		panic(fmt.Sprintf("cache: insert of resident key %d", req.Key))
	}
	obj := &CacheObject{Key: req.Key, Size: req.Size}
	ttl := req.TTL
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if ttl > 0 {
		obj.ExpiryTime = req.Time + ttl
	}
	c.index[req.Key] = obj
	c.policy.onInsert(obj, req)
	c.occupied += c.chargedSize(obj.Size)
	return obj
}

// Evict asks the policy to select and remove exactly one resident object.
// Returns the evicted object, or nil when the cache is empty.
func (c *Cache) Evict(req *Request) *CacheObject {
	victim := c.policy.selectVictim(req)
	if victim == nil {
		return nil
	}
	c.detach(victim, true)
	return victim
}

// ToEvict previews the object a subsequent Evict would remove, without
// mutating state. Returns nil when the cache is empty.
func (c *Cache) ToEvict(req *Request) *CacheObject {
	return c.policy.selectVictim(req)
}

// Remove deletes an object explicitly. Distinct from eviction: no watermark
// update. Returns false if the key is absent.
func (c *Cache) Remove(key uint64) bool {
	obj, ok := c.index[key]
	if !ok {
		return false
	}
	c.detach(obj, false)
	return true
}

// detach removes an object from the index and the ordering structure and
// releases its bytes.
func (c *Cache) detach(obj *CacheObject, evicted bool) {
	c.policy.onRemove(obj, evicted)
	delete(c.index, obj.Key)
	c.occupied -= c.chargedSize(obj.Size)
	if c.occupied < 0 {
		panic("cache: occupied bytes went negative")
	}
}

// Get is the composite operation: find with promotion; on miss, evict until
// the object fits, then insert. Objects larger than the whole cache are
// silently never admitted, as are objects rejected by the admissioner or the
// policy's feasibility pre-check. Returns true on hit.
func (c *Cache) Get(req *Request) bool {
	if obj := c.Find(req, true); obj != nil {
		c.Stats.Hits++
		c.Stats.HitBytes += req.Size
		return true
	}
	c.Stats.Misses++
	c.Stats.MissBytes += req.Size

	size := c.chargedSize(req.Size)
	if size > c.capacity {
		return false
	}
	if c.admissioner != nil && !c.admissioner.Admit(req) {
		return false
	}
	if !c.policy.canInsert(req) {
		return false
	}
	for c.occupied+size > c.capacity {
		if c.Evict(req) == nil {
			panic("cache: nothing left to evict below capacity")
		}
	}
	c.Insert(req)
	return false
}

// ValidPolicies is the set of recognized eviction policy names.
// Shared by Validate() and NewCache() to avoid duplication.
var ValidPolicies = map[string]bool{"lru": true, "fifo": true, "gdsf": true}

// IsValidPolicy returns true if name is a recognized eviction policy name.
func IsValidPolicy(name string) bool {
	return ValidPolicies[name]
}

// NewCache creates a Cache running the named eviction policy. paramStr is the
// opaque per-policy parameter string; recognized keys vary per policy (gdsf:
// "scale-k", "strict-feasibility"). Configuration errors are fatal at
// construction; no partial cache is returned.
func NewCache(policyName string, cfg CacheConfig, paramStr string, rng *PartitionedRNG) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !IsValidPolicy(policyName) {
		return nil, fmt.Errorf("unknown eviction policy %q", policyName)
	}
	params, err := parseParams(paramStr)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", policyName, err)
	}

	c := &Cache{
		capacity:      cfg.CapacityBytes,
		defaultTTL:    cfg.DefaultTTL,
		trackOverhead: cfg.TrackOverhead,
		index:         make(map[uint64]*CacheObject, cfg.HashTableSizeHint),
	}
	switch policyName {
	case "lru":
		c.policy = newRecencyPolicy(c, true, cfg.HashTableSizeHint)
	case "fifo":
		c.policy = newRecencyPolicy(c, false, cfg.HashTableSizeHint)
	case "gdsf":
		p, err := newGDSFPolicy(c, params, rng.ForSubsystem(SubsystemRankSet))
		if err != nil {
			return nil, err
		}
		c.policy = p
	default:
		panic(fmt.Sprintf("unhandled eviction policy %q", policyName))
	}
	return c, nil
}
