package trace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrcsim/mrcsim/sim"
)

func writeTrace(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeTrace(t, `time,key,size,op,ttl,next_access
1,100,512,get,,
2,101,1024,set,60,
3,100,512,,,9
4,101,1024,delete,,
`)
	reader, err := LoadCSV(path)
	require.NoError(t, err)
	require.Equal(t, 4, reader.Len())

	first, ok := reader.Next()
	require.True(t, ok)
	assert.Equal(t, sim.Request{Time: 1, Key: 100, Size: 512, Op: sim.OpGet}, first)

	second, _ := reader.Next()
	assert.Equal(t, sim.OpSet, second.Op)
	assert.Equal(t, int64(60), second.TTL)

	third, _ := reader.Next()
	assert.Equal(t, sim.OpGet, third.Op, "empty op defaults to get")
	assert.Equal(t, int64(9), third.NextAccess)

	fourth, _ := reader.Next()
	assert.Equal(t, sim.OpDelete, fourth.Op)

	_, ok = reader.Next()
	assert.False(t, ok)
}

func TestLoadCSV_MinimalColumns(t *testing.T) {
	path := writeTrace(t, "time,key,size\n1,7,100\n2,8,200\n")
	reader, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.Len())
}

func TestLoadCSV_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"too few fields", "time,key,size\n1,7\n"},
		{"bad time", "time,key,size\nx,7,100\n"},
		{"bad key", "time,key,size\n1,x,100\n"},
		{"bad size", "time,key,size\n1,7,x\n"},
		{"zero size", "time,key,size\n1,7,0\n"},
		{"negative size", "time,key,size\n1,7,-5\n"},
		{"unknown op", "time,key,size,op\n1,7,100,peek\n"},
		{"bad ttl", "time,key,size,op,ttl\n1,7,100,get,x\n"},
		{"bad next access", "time,key,size,op,ttl,next_access\n1,7,100,get,0,x\n"},
		{"no rows", "time,key,size\n"},
		{"empty file", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadCSV(writeTrace(t, tc.content))
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
		assert.Error(t, err)
	})
}

func TestSliceReader_ResetAndClone(t *testing.T) {
	reader := NewSliceReader([]sim.Request{
		{Key: 1, Size: 10}, {Key: 2, Size: 20},
	})

	first, _ := reader.Next()
	clone := reader.Clone()

	// Clones start at the beginning regardless of the parent's cursor.
	cloneFirst, ok := clone.Next()
	require.True(t, ok)
	assert.Equal(t, first, cloneFirst)

	reader.Next()
	_, ok = reader.Next()
	assert.False(t, ok)

	require.NoError(t, reader.Reset())
	again, ok := reader.Next()
	require.True(t, ok)
	assert.Equal(t, first, again)
}
