package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplers_DecisionsAreDeterministic(t *testing.T) {
	// GIVEN two samplers with identical configuration
	sp1, err := NewSpatialSampler(100, 7)
	require.NoError(t, err)
	sp2, err := NewSpatialSampler(100, 7)
	require.NoError(t, err)

	sh1, err := NewShardsSampler(ShardsFixedRate, 0.1, 0)
	require.NoError(t, err)
	sh2, err := NewShardsSampler(ShardsFixedRate, 0.1, 0)
	require.NoError(t, err)

	// THEN every key gets the same decision from both instances
	for key := uint64(0); key < 10000; key++ {
		assert.Equal(t, sp1.Sample(key), sp2.Sample(key), "spatial key %d", key)
		assert.Equal(t, sh1.Sample(key), sh2.Sample(key), "shards key %d", key)
	}
}

func TestSpatialSampler_SaltChangesSelection(t *testing.T) {
	a, err := NewSpatialSampler(10, 0)
	require.NoError(t, err)
	b, err := NewSpatialSampler(10, 12345)
	require.NoError(t, err)

	differs := false
	for key := uint64(0); key < 1000; key++ {
		if a.Sample(key) != b.Sample(key) {
			differs = true
			break
		}
	}
	assert.True(t, differs, "different salts should select different subsets")
}

func TestSpatialSampler_RatioMatchesInverse(t *testing.T) {
	s, err := NewSpatialSampler(100, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, s.Ratio(), 1e-12)

	// Selection rate over a large key space stays near the nominal ratio
	selected := 0
	const n = 200000
	for key := uint64(0); key < n; key++ {
		if s.Sample(key) {
			selected++
		}
	}
	assert.InDelta(t, 0.01, float64(selected)/n, 0.002)
}

func TestShardsSampler_RatioOneSamplesEverything(t *testing.T) {
	s, err := NewShardsSampler(ShardsFixedRate, 1.0, 0)
	require.NoError(t, err)
	for key := uint64(0); key < 10000; key++ {
		require.True(t, s.Sample(key), "ratio 1.0 must sample key %d", key)
	}
	assert.Equal(t, 1.0, s.Ratio())
}

func TestShardsSampler_FixedSizePopulationNeverExceedsTarget(t *testing.T) {
	// GIVEN a fixed-size sampler with a population target of 64
	s, err := NewShardsSampler(ShardsFixedSize, 1.0, 64)
	require.NoError(t, err)

	// WHEN 50,000 distinct objects stream through
	for key := uint64(0); key < 50000; key++ {
		if !s.Sample(key) {
			continue
		}
		s.Track(key)
		require.LessOrEqual(t, s.Population(), 64, "population exceeded target at key %d", key)
	}

	// THEN the boundary only ratcheted downward
	assert.Less(t, s.Ratio(), 1.0)
	assert.Greater(t, s.Ratio(), 0.0)
}

func TestShardsSampler_FixedSizeEvictedKeysStopSampling(t *testing.T) {
	s, err := NewShardsSampler(ShardsFixedSize, 1.0, 16)
	require.NoError(t, err)

	var evicted []uint64
	for key := uint64(0); key < 10000; key++ {
		if s.Sample(key) {
			evicted = append(evicted, s.Track(key)...)
		}
	}
	require.NotEmpty(t, evicted, "population pressure should have evicted keys")

	// Every evicted key now fails the boundary test
	for _, key := range evicted {
		assert.False(t, s.Sample(key), "evicted key %d should be outside the boundary", key)
	}
}

func TestShardsSampler_UntrackForgetsWithoutMovingBoundary(t *testing.T) {
	s, err := NewShardsSampler(ShardsFixedSize, 1.0, 8)
	require.NoError(t, err)

	var tracked []uint64
	for key := uint64(0); len(tracked) < 4; key++ {
		if s.Sample(key) && len(s.Track(key)) == 0 {
			tracked = append(tracked, key)
		}
	}
	before := s.Ratio()
	s.Untrack(tracked[0])
	assert.Equal(t, before, s.Ratio())
	assert.Equal(t, 3, s.Population())
}

func TestNewSampler_ConfigurationErrors(t *testing.T) {
	cases := []struct {
		name   string
		kind   string
		params string
	}{
		{"unknown kind", "temporal", ""},
		{"ratio above one", "shards", "ratio=1.5"},
		{"zero ratio", "shards", "ratio=0"},
		{"bad mode", "shards", "mode=sideways"},
		{"zero population", "shards", "mode=fixed-size,threshold=0"},
		{"zero inverse ratio", "spatial", "inverse-ratio=0"},
		{"malformed params", "spatial", "inverse-ratio"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSampler(tc.kind, tc.params)
			assert.Error(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestNewSampler_DefaultsAreUsable(t *testing.T) {
	s, err := NewSampler("shards", "")
	require.NoError(t, err)
	assert.InDelta(t, 0.01, s.Ratio(), 1e-6)

	s, err = NewSampler("spatial", "")
	require.NoError(t, err)
	assert.InDelta(t, 0.01, s.Ratio(), 1e-12)
}
