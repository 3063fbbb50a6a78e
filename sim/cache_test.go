package sim

import (
	"math/rand"
	"testing"
)

func testCache(t *testing.T, policy string, capacity int64, paramStr string) *Cache {
	t.Helper()
	c, err := NewCache(policy, CacheConfig{CapacityBytes: capacity}, paramStr, NewPartitionedRNG(NewSimulationKey(42)))
	if err != nil {
		t.Fatalf("NewCache(%s): %v", policy, err)
	}
	return c
}

func getReq(key uint64, size int64, time int64) *Request {
	return &Request{Key: key, Size: size, Op: OpGet, Time: time}
}

func TestLRUCache_EndToEndScenario(t *testing.T) {
	// GIVEN an LRU cache of capacity 20 and the trace 1,2,1,3 (size 10 each)
	c := testCache(t, "lru", 20, "")

	// THEN the hit/miss trace is miss, miss, hit, miss
	wantHits := []bool{false, false, true, false}
	keys := []uint64{1, 2, 1, 3}
	for i, key := range keys {
		hit := c.Get(getReq(key, 10, int64(i+1)))
		if hit != wantHits[i] {
			t.Fatalf("request %d (key %d): hit=%v, want %v", i, key, hit, wantHits[i])
		}
	}

	// AND the final resident set is {1, 3}: id=1 was promoted on its hit,
	// so id=2 was the LRU victim when id=3 arrived
	if c.Len() != 2 {
		t.Fatalf("expected 2 resident objects, got %d", c.Len())
	}
	if c.Find(getReq(1, 10, 5), false) == nil {
		t.Error("key 1 should be resident")
	}
	if c.Find(getReq(2, 10, 5), false) != nil {
		t.Error("key 2 should have been evicted")
	}
	if c.Find(getReq(3, 10, 5), false) == nil {
		t.Error("key 3 should be resident")
	}
}

func TestFIFOCache_NoPromotionOnHit(t *testing.T) {
	// GIVEN a FIFO cache with the same trace as the LRU scenario
	c := testCache(t, "fifo", 20, "")
	for i, key := range []uint64{1, 2, 1, 3} {
		c.Get(getReq(key, 10, int64(i+1)))
	}

	// THEN key 1 is evicted despite its hit: insertion order rules
	if c.Find(getReq(1, 10, 5), false) != nil {
		t.Error("key 1 should have been evicted under FIFO")
	}
	if c.Find(getReq(2, 10, 5), false) == nil {
		t.Error("key 2 should be resident under FIFO")
	}
}

func TestCache_CapacityInvariantUnderRandomWorkload(t *testing.T) {
	for _, policy := range []string{"lru", "fifo", "gdsf"} {
		t.Run(policy, func(t *testing.T) {
			c := testCache(t, policy, 1000, "")
			rng := rand.New(rand.NewSource(7))
			for i := 0; i < 20000; i++ {
				key := uint64(rng.Intn(300))
				size := int64(1 + rng.Intn(200))
				switch rng.Intn(10) {
				case 0:
					c.Remove(key)
				default:
					c.Get(getReq(key, size, int64(i+1)))
				}
				if c.Occupied() > c.Capacity() {
					t.Fatalf("op %d: occupied %d exceeds capacity %d", i, c.Occupied(), c.Capacity())
				}
				if c.Occupied() < 0 {
					t.Fatalf("op %d: occupied went negative", i)
				}
			}
		})
	}
}

func TestCache_FindWithoutUpdateIsIdempotent(t *testing.T) {
	// GIVEN an LRU cache holding keys 1 and 2 (key 1 is the LRU victim)
	c := testCache(t, "lru", 20, "")
	c.Get(getReq(1, 10, 1))
	c.Get(getReq(2, 10, 2))

	// WHEN key 1 is found repeatedly without update
	for i := 0; i < 5; i++ {
		obj := c.Find(getReq(1, 10, 3), false)
		if obj == nil || obj.Key != 1 {
			t.Fatalf("find %d: expected key 1, got %v", i, obj)
		}
	}

	// THEN no promotion happened: key 1 is still the next victim
	victim := c.ToEvict(getReq(3, 10, 4))
	if victim == nil || victim.Key != 1 {
		t.Errorf("expected key 1 as victim after read-only finds, got %v", victim)
	}
}

func TestCache_ToEvictAgreesWithEvict(t *testing.T) {
	for _, policy := range []string{"lru", "fifo", "gdsf"} {
		t.Run(policy, func(t *testing.T) {
			c := testCache(t, policy, 100, "")
			for i := uint64(1); i <= 10; i++ {
				c.Get(getReq(i, 10, int64(i)))
			}
			req := getReq(99, 10, 20)
			preview := c.ToEvict(req)
			if preview == nil {
				t.Fatal("expected a victim preview")
			}
			evicted := c.Evict(req)
			if evicted != preview {
				t.Errorf("ToEvict previewed key %d, Evict removed key %d", preview.Key, evicted.Key)
			}
		})
	}
}

func TestCache_RemoveIsDistinctFromEviction(t *testing.T) {
	c := testCache(t, "lru", 100, "")
	c.Get(getReq(1, 10, 1))

	if !c.Remove(1) {
		t.Error("remove of a resident key should return true")
	}
	if c.Remove(1) {
		t.Error("remove of an absent key should return false")
	}
	if c.Len() != 0 || c.Occupied() != 0 {
		t.Errorf("expected empty cache, got %d objects / %d bytes", c.Len(), c.Occupied())
	}
}

func TestCache_ObjectLargerThanCapacityNeverAdmitted(t *testing.T) {
	// GIVEN a cache of 100 bytes holding one resident object
	c := testCache(t, "lru", 100, "")
	c.Get(getReq(1, 50, 1))

	// WHEN an object larger than the whole cache arrives
	hit := c.Get(getReq(2, 150, 2))

	// THEN it is a miss, nothing was inserted, and residents are untouched
	if hit {
		t.Error("oversized object should miss")
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 resident object, got %d", c.Len())
	}
	if c.Find(getReq(1, 50, 3), false) == nil {
		t.Error("resident object should not have been evicted for a rejected insert")
	}
}

func TestCache_TTLLapsedObjectRemovedOnFind(t *testing.T) {
	// GIVEN a cache with a default TTL of 10 logical-time units
	c, err := NewCache("lru", CacheConfig{CapacityBytes: 100, DefaultTTL: 10}, "", NewPartitionedRNG(NewSimulationKey(1)))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	c.Get(getReq(1, 10, 1))

	// WHEN the object is found with update after its TTL lapsed
	obj := c.Find(getReq(1, 10, 20), true)

	// THEN the find misses and the object is gone
	if obj != nil {
		t.Error("lapsed object should not be returned")
	}
	if c.Len() != 0 {
		t.Errorf("lapsed object should have been removed, %d resident", c.Len())
	}
}

func TestCache_PerRequestTTLOverridesDefault(t *testing.T) {
	c, err := NewCache("lru", CacheConfig{CapacityBytes: 100, DefaultTTL: 1000}, "", NewPartitionedRNG(NewSimulationKey(1)))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	req := getReq(1, 10, 1)
	req.TTL = 5
	c.Get(req)

	if c.Find(getReq(1, 10, 100), true) != nil {
		t.Error("per-request TTL of 5 should have lapsed by time 100")
	}
}

func TestCache_SizeProbabilisticAdmissionGatesInserts(t *testing.T) {
	// GIVEN a cache whose admissioner rejects essentially every object
	c := testCache(t, "lru", 1000, "")
	rng := NewPartitionedRNG(NewSimulationKey(3))
	adm, err := NewAdmissioner("size-probabilistic", "exponent=1.0", rng.ForSubsystem(SubsystemAdmission))
	if err != nil {
		t.Fatalf("NewAdmissioner: %v", err)
	}
	c.SetAdmissioner(adm)

	// WHEN large objects stream through
	for i := uint64(1); i <= 100; i++ {
		c.Get(getReq(i, 500, int64(i)))
	}

	// THEN essentially nothing was admitted (exp(-500) rejections)
	if c.Len() != 0 {
		t.Errorf("expected no admitted objects, got %d", c.Len())
	}
}

func TestNewCache_ConfigurationErrors(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(1))
	cases := []struct {
		name     string
		policy   string
		cfg      CacheConfig
		paramStr string
	}{
		{"unknown policy", "clock", CacheConfig{CapacityBytes: 100}, ""},
		{"zero capacity", "lru", CacheConfig{CapacityBytes: 0}, ""},
		{"negative ttl", "lru", CacheConfig{CapacityBytes: 100, DefaultTTL: -1}, ""},
		{"malformed params", "gdsf", CacheConfig{CapacityBytes: 100}, "scale-k"},
		{"bad scale-k", "gdsf", CacheConfig{CapacityBytes: 100}, "scale-k=-5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if c, err := NewCache(tc.policy, tc.cfg, tc.paramStr, rng); err == nil {
				t.Errorf("expected a construction error, got cache %v", c)
			}
		})
	}
}

func TestCache_TrackOverheadChargesMetadata(t *testing.T) {
	// GIVEN a cache charging per-object metadata against capacity
	c, err := NewCache("lru", CacheConfig{CapacityBytes: 100, TrackOverhead: true}, "", NewPartitionedRNG(NewSimulationKey(1)))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	// WHEN a 10-byte object is inserted
	c.Get(getReq(1, 10, 1))

	// THEN occupancy includes the policy's metadata overhead
	if c.Occupied() <= 10 {
		t.Errorf("expected occupied > 10 with overhead tracking, got %d", c.Occupied())
	}
}
