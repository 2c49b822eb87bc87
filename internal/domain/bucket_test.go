package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuckets(t *testing.T) {
	buckets := NewBuckets([]int{4000, 8000, 10000})

	require.Len(t, buckets, 4)
	assert.Equal(t, TrophyBucket{Min: 0, Max: 4000}, buckets[0])
	assert.Equal(t, TrophyBucket{Min: 4000, Max: 8000}, buckets[1])
	assert.Equal(t, TrophyBucket{Min: 8000, Max: 10000}, buckets[2])
	assert.Equal(t, TrophyBucket{Min: 10000, Max: -1}, buckets[3])
}

func TestBuckets_IndexFor(t *testing.T) {
	buckets := NewBuckets([]int{4000, 8000, 10000})

	tests := []struct {
		name     string
		trophies int
		expected int
	}{
		{"zero", 0, 0},
		{"mid first bucket", 3500, 0},
		{"lower boundary is exclusive of previous bucket", 4000, 1},
		{"just below boundary", 3999, 0},
		{"second bucket", 4200, 1},
		{"third bucket", 9999, 2},
		{"open-ended bucket", 10000, 3},
		{"far above all boundaries", 15000, 3},
		{"negative clamps to first", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buckets.IndexFor(tt.trophies))
		})
	}
}

func TestBuckets_Contiguous(t *testing.T) {
	// Every count lands in exactly one bucket.
	buckets := NewBuckets([]int{4000, 8000, 10000})
	for trophies := 0; trophies <= 12000; trophies += 250 {
		matches := 0
		for _, b := range buckets {
			if b.Contains(trophies) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "trophies=%d", trophies)
	}
}

func TestTrophyBucket_Label(t *testing.T) {
	assert.Equal(t, "0-4000", TrophyBucket{Min: 0, Max: 4000}.Label())
	assert.Equal(t, "10000+", TrophyBucket{Min: 10000, Max: -1}.Label())
}
