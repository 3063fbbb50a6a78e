// Package sim provides the core cache-simulation engine and miss-ratio-curve
// profiler.
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - request.go: Request and CacheObject data model
//   - cache.go: the Cache abstraction and its policy behavior set
//   - profiler.go: the SHARDS and mini-simulation profiling strategies
//
// # Architecture
//
// The sim package defines the engine and its pluggable behavior sets; trace
// sources live in the sim/trace sub-package behind the TraceReader contract.
//
// # Key Interfaces
//
// The extension points are single-method or small interfaces:
//   - policyOps: eviction policy behavior set (recency family, rank family)
//   - Admissioner: accept or reject an object before insert
//   - Sampler: decide whether an object participates in statistics
//   - Profiler: estimate a miss-ratio curve from one trace pass
//   - TraceReader: sequential request source with rewind
//
// Everything below the profiler is single-threaded and non-blocking; the only
// concurrency is the mini-simulation worker pool, where each worker owns a
// private Cache and results merge after the join.
package sim
