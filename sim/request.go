// Defines the Request struct that models one trace entry flowing through the
// engine, and the CacheObject that represents a resident object inside a Cache.

package sim

import "fmt"

// OpKind is the operation recorded in the trace for a request.
type OpKind string

const (
	OpGet    OpKind = "get"
	OpSet    OpKind = "set"
	OpDelete OpKind = "delete"
)

// Request models a single trace entry. Each request has:
// - an opaque integer key identifying the object
// - the object size in bytes
// - the logical arrival time (monotone trace position)
// - an optional TTL and an optional oracle next-access time
//
// Requests are created by a trace reader and are immutable once read; a Cache
// copies what it needs into its own CacheObject on insert.
type Request struct {
	Key  uint64 // Opaque object identifier
	Size int64  // Object size in bytes
	Op   OpKind // Operation kind recorded in the trace

	Time       int64 // Logical arrival time (trace position)
	TTL        int64 // Logical-time units the object stays valid; 0 means no expiry
	NextAccess int64 // Oracle next-access time; 0 when the trace has none
}

// This method returns a human-readable string representation of a Request.
func (req Request) String() string {
	return fmt.Sprintf("Request: (Key: %d, Size: %d, Op: %s, Time: %d)", req.Key, req.Size, req.Op, req.Time)
}

// CacheObject is one resident object inside a Cache. Exactly one CacheObject
// exists per resident key per Cache instance; the hash index and the policy
// ordering structure both reference the same CacheObject and never copy it.
//
// The policy-specific metadata occupies dedicated fields rather than a shared
// union slot: a cache instance only ever touches the fields its policy family
// owns (listNode for the recency family, rankNode+Frequency for the rank
// family), so no reinterpretation is ever needed.
type CacheObject struct {
	Key  uint64
	Size int64

	ExpiryTime int64 // Logical time after which the object is lapsed; 0 = never

	listNode  int       // Recency family: handle into the cache's objectList
	rankNode  *rankNode // Rank family: node in the cache's priority set
	Frequency int64     // Rank family: access count, starts at 1 on insert
}

func (obj *CacheObject) String() string {
	return fmt.Sprintf("CacheObject: (Key: %d, Size: %d, Freq: %d)", obj.Key, obj.Size, obj.Frequency)
}

// expired reports whether the object's TTL has lapsed at the given time.
func (obj *CacheObject) expired(now int64) bool {
	return obj.ExpiryTime != 0 && now > obj.ExpiryTime
}
