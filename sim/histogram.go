// Implements the reuse-distance histogram that SHARDS profiling aggregates
// into. Buckets remember the sampling ratio in force when they were last
// written; whenever the effective ratio shrinks, stale buckets are rescaled
// down before being touched again. A dedicated cold-miss bucket receives the
// same treatment.

package sim

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// histBucket is one distance bucket plus its rescale bookkeeping.
type histBucket struct {
	freq      float64 // accumulated request count
	bytes     float64 // accumulated request bytes (same rescale schedule)
	threshold float64 // sampling ratio at the time of the last write
}

// rescale corrects the bucket from its stored ratio to the given one.
// Ratios only ever shrink, so frequencies are only ever revised downward.
func (b *histBucket) rescale(ratio float64) {
	if ratio < b.threshold {
		factor := ratio / b.threshold
		b.freq *= factor
		b.bytes *= factor
		b.threshold = ratio
	}
}

// ReuseHistogram aggregates sampled reuse distances. Distances are recorded
// in full-trace units: a distance measured inside a sample of ratio r
// corresponds to distance/r distinct objects in the full trace, and Update
// performs that expansion before bucketing.
type ReuseHistogram struct {
	buckets map[int64]*histBucket
	cold    histBucket

	totalRequests int64 // sampled requests seen, pre-rescale
}

// NewReuseHistogram creates an empty histogram.
func NewReuseHistogram() *ReuseHistogram {
	return &ReuseHistogram{
		buckets: make(map[int64]*histBucket),
		cold:    histBucket{threshold: 1.0},
	}
}

// Update records one sampled reuse at the given raw (sample-space) distance,
// under the current sampling ratio.
func (h *ReuseHistogram) Update(distance int64, sizeBytes int64, ratio float64) {
	// Expand the sampled distance back to full-trace units.
	key := int64(math.Round(float64(distance) / ratio))
	b, ok := h.buckets[key]
	if !ok {
		b = &histBucket{threshold: ratio}
		h.buckets[key] = b
	}
	b.rescale(ratio)
	b.freq++
	b.bytes += float64(sizeBytes)
	h.totalRequests++
}

// UpdateColdMiss records one sampled first-ever access under the current
// sampling ratio.
func (h *ReuseHistogram) UpdateColdMiss(sizeBytes int64, ratio float64) {
	h.cold.rescale(ratio)
	h.cold.freq++
	h.cold.bytes += float64(sizeBytes)
	h.totalRequests++
}

// WrapUp applies one final rescale of every bucket to the run's final ratio.
// Only meaningful for fixed-size SHARDS, where the ratio shrank during the
// pass and older buckets may still carry a looser threshold.
func (h *ReuseHistogram) WrapUp(finalRatio float64) {
	for _, b := range h.buckets {
		b.rescale(finalRatio)
	}
	h.cold.rescale(finalRatio)
}

// Mass returns the total histogram frequency including the cold-miss bucket.
func (h *ReuseHistogram) Mass() float64 {
	freqs := make([]float64, 0, len(h.buckets)+1)
	for _, b := range h.buckets {
		freqs = append(freqs, b.freq)
	}
	freqs = append(freqs, h.cold.freq)
	return floats.Sum(freqs)
}

// massBytes returns the total byte mass including the cold-miss bucket.
func (h *ReuseHistogram) massBytes() float64 {
	bs := make([]float64, 0, len(h.buckets)+1)
	for _, b := range h.buckets {
		bs = append(bs, b.bytes)
	}
	bs = append(bs, h.cold.bytes)
	return floats.Sum(bs)
}

// Adjust reconciles the histogram mass against the expected mass
// totalRequests * finalRatio. Sampling variance leaves a small gap between
// the two; the difference is applied to the smallest-distance bucket so the
// projected MRC conserves mass. The correction also scales the bucket's byte
// mass proportionally.
func (h *ReuseHistogram) Adjust(totalRequests int64, finalRatio float64) {
	expected := math.Round(float64(totalRequests) * finalRatio)
	diff := expected - h.Mass()
	if diff == 0 {
		return
	}

	key := h.smallestBucket()
	b, ok := h.buckets[key]
	if !ok {
		b = &histBucket{threshold: finalRatio}
		h.buckets[key] = b
	}
	meanBytes := 0.0
	if b.freq > 0 {
		meanBytes = b.bytes / b.freq
	}
	b.freq += diff
	b.bytes += diff * meanBytes
	if b.freq < 0 {
		b.freq = 0
		b.bytes = 0
	}
}

// smallestBucket returns the smallest recorded distance, or 0 when the
// histogram has no reuse buckets yet.
func (h *ReuseHistogram) smallestBucket() int64 {
	found := false
	var smallest int64
	for k := range h.buckets {
		if !found || k < smallest {
			smallest = k
			found = true
		}
	}
	return smallest
}

// MRC projects the histogram into a miss-ratio curve over the given candidate
// distances (cache sizes expressed in distinct-object units). For each size S
// the estimated hit count is the mass of all buckets with distance <= S; the
// 1/ratio expansion already happened bucket-side, so hit and total masses
// divide out directly. Ratios are clipped to [0, 1] to guard against
// sampling-induced overshoot.
func (h *ReuseHistogram) MRC(sizes []int64) []MRCPoint {
	type distBucket struct {
		dist int64
		b    *histBucket
	}
	ordered := make([]distBucket, 0, len(h.buckets))
	for k, b := range h.buckets {
		ordered = append(ordered, distBucket{dist: k, b: b})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].dist < ordered[j].dist })

	total := h.Mass()
	totalBytes := h.massBytes()

	points := make([]MRCPoint, 0, len(sizes))
	sortedSizes := append([]int64(nil), sizes...)
	sort.Slice(sortedSizes, func(i, j int) bool { return sortedSizes[i] < sortedSizes[j] })

	var hit, hitBytes float64
	idx := 0
	for _, size := range sortedSizes {
		for idx < len(ordered) && ordered[idx].dist <= size {
			hit += ordered[idx].b.freq
			hitBytes += ordered[idx].b.bytes
			idx++
		}
		p := MRCPoint{Size: size, MissRatio: 1, ByteMissRatio: 1}
		if total > 0 {
			p.MissRatio = clipRatio(1 - hit/total)
		}
		if totalBytes > 0 {
			p.ByteMissRatio = clipRatio(1 - hitBytes/totalBytes)
		}
		points = append(points, p)
	}
	return points
}

// clipRatio clamps a ratio estimate to [0, 1].
func clipRatio(r float64) float64 {
	return math.Min(1, math.Max(0, r))
}
