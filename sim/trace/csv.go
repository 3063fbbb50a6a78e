package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mrcsim/mrcsim/sim"
)

// LoadCSV reads a plain-text trace file into a SliceReader. Expected columns:
//
//	time,key,size,op[,ttl[,next_access]]
//
// with a header row. op is one of get/set/delete; empty op defaults to get.
// Malformed rows are configuration errors and abort the load.
func LoadCSV(path string) (*SliceReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading trace header: %w", err)
	}

	var requests []sim.Request
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading trace row %d: %w", row, err)
		}
		row++
		if len(record) < 3 {
			return nil, fmt.Errorf("trace row %d: want at least time,key,size, got %d fields", row, len(record))
		}

		t, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trace row %d: invalid time %q: %w", row, record[0], err)
		}
		key, err := strconv.ParseUint(record[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trace row %d: invalid key %q: %w", row, record[1], err)
		}
		size, err := strconv.ParseInt(record[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trace row %d: invalid size %q: %w", row, record[2], err)
		}
		if size <= 0 {
			return nil, fmt.Errorf("trace row %d: size must be > 0, got %d", row, size)
		}

		req := sim.Request{Time: t, Key: key, Size: size, Op: sim.OpGet}
		if len(record) > 3 && record[3] != "" {
			switch op := sim.OpKind(record[3]); op {
			case sim.OpGet, sim.OpSet, sim.OpDelete:
				req.Op = op
			default:
				return nil, fmt.Errorf("trace row %d: unknown op %q", row, record[3])
			}
		}
		if len(record) > 4 && record[4] != "" {
			ttl, err := strconv.ParseInt(record[4], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("trace row %d: invalid ttl %q: %w", row, record[4], err)
			}
			req.TTL = ttl
		}
		if len(record) > 5 && record[5] != "" {
			next, err := strconv.ParseInt(record[5], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("trace row %d: invalid next_access %q: %w", row, record[5], err)
			}
			req.NextAccess = next
		}
		requests = append(requests, req)
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("trace file %s has no requests", path)
	}
	return NewSliceReader(requests), nil
}
