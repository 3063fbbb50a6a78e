// Package trace provides request sources for the profiling engine: CSV trace
// replay and synthetic workload generation. Both yield memory-resident
// request sequences behind the sim.TraceReader contract, so Reset and Clone
// are cheap and deterministic.
package trace

import (
	"github.com/mrcsim/mrcsim/sim"
)

// SliceReader replays an in-memory request sequence.
type SliceReader struct {
	requests []sim.Request
	pos      int
}

// NewSliceReader creates a reader over the given requests.
func NewSliceReader(requests []sim.Request) *SliceReader {
	return &SliceReader{requests: requests}
}

// Next implements sim.TraceReader.
func (sr *SliceReader) Next() (sim.Request, bool) {
	if sr.pos >= len(sr.requests) {
		return sim.Request{}, false
	}
	req := sr.requests[sr.pos]
	sr.pos++
	return req, true
}

// Reset implements sim.TraceReader.
func (sr *SliceReader) Reset() error {
	sr.pos = 0
	return nil
}

// Clone returns an independent cursor over the same underlying requests.
// The request slice is shared read-only; clones never observe each other.
func (sr *SliceReader) Clone() *SliceReader {
	return &SliceReader{requests: sr.requests}
}

// Len returns the trace length.
func (sr *SliceReader) Len() int {
	return len(sr.requests)
}
