// Parsing helpers for the opaque per-policy parameter strings passed through
// the construction contracts, e.g. "exponent=1e-6,reconf-interval=20000".

package sim

import (
	"fmt"
	"strconv"
	"strings"
)

// parseParams splits a "key=value,key=value" string into a map.
// An empty string yields an empty map. Keys and values are trimmed.
func parseParams(s string) (map[string]string, error) {
	params := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return params, nil
	}
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed parameter %q (want key=value)", part)
		}
		key := strings.TrimSpace(kv[0])
		if key == "" {
			return nil, fmt.Errorf("malformed parameter %q (empty key)", part)
		}
		params[key] = strings.TrimSpace(kv[1])
	}
	return params, nil
}

// paramFloat reads a float parameter, returning def when the key is absent.
func paramFloat(params map[string]string, key string, def float64) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %s=%q: %w", key, raw, err)
	}
	return v, nil
}

// paramInt reads an integer parameter, returning def when the key is absent.
func paramInt(params map[string]string, key string, def int64) (int64, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %s=%q: %w", key, raw, err)
	}
	return v, nil
}

// paramBool reads a boolean parameter, returning def when the key is absent.
func paramBool(params map[string]string, key string, def bool) (bool, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parameter %s=%q: %w", key, raw, err)
	}
	return v, nil
}
