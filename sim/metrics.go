// Aggregates profiling output: one row per candidate cache size with the
// estimated object and byte miss ratios.

package sim

import (
	"fmt"
	"io"
	"os"
)

// MRCPoint is one row of a miss-ratio curve.
type MRCPoint struct {
	Size          int64   // candidate cache size
	MissRatio     float64 // object miss ratio in [0,1]
	ByteMissRatio float64 // byte miss ratio in [0,1]
}

// MRCResult is a complete miss-ratio curve plus run provenance.
type MRCResult struct {
	Points        []MRCPoint
	TotalRequests int64   // requests in the full trace
	TotalBytes    int64   // bytes requested in the full trace
	SamplingRatio float64 // final effective sampling ratio
}

// Print displays the curve at the end of a run.
func (r *MRCResult) Print() {
	fmt.Println("=== Miss Ratio Curve ===")
	fmt.Printf("Trace Requests   : %d\n", r.TotalRequests)
	fmt.Printf("Trace Bytes      : %d\n", r.TotalBytes)
	fmt.Printf("Sampling Ratio   : %.6f\n", r.SamplingRatio)
	fmt.Printf("%-16s %-12s %-12s\n", "cache_size", "miss_ratio", "byte_miss_ratio")
	for _, p := range r.Points {
		fmt.Printf("%-16d %-12.4f %-12.4f\n", p.Size, p.MissRatio, p.ByteMissRatio)
	}
}

// WriteTo writes the curve as tab-delimited text: a header row, then one row
// per candidate size.
func (r *MRCResult) WriteTo(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "cache_size\tmiss_ratio\tbyte_miss_ratio\n"); err != nil {
		return err
	}
	for _, p := range r.Points {
		if _, err := fmt.Fprintf(w, "%d\t%.6f\t%.6f\n", p.Size, p.MissRatio, p.ByteMissRatio); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the curve to the given path, or to stdout when the path
// is empty.
func (r *MRCResult) WriteFile(path string) error {
	if path == "" {
		return r.WriteTo(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	if err := r.WriteTo(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
