package domain

import "fmt"

// TrophyBucket is one disjoint trophy range used to stratify sampling.
// Min is inclusive, Max is exclusive; the last bucket is open-ended (Max < 0).
type TrophyBucket struct {
	Min int
	Max int
}

func (b TrophyBucket) Label() string {
	if b.Max < 0 {
		return fmt.Sprintf("%d+", b.Min)
	}
	return fmt.Sprintf("%d-%d", b.Min, b.Max)
}

func (b TrophyBucket) Contains(trophies int) bool {
	if trophies < b.Min {
		return false
	}
	return b.Max < 0 || trophies < b.Max
}

// Buckets is the full ordered partition of the trophy axis.
type Buckets []TrophyBucket

// NewBuckets builds contiguous buckets from interior boundaries, e.g.
// [4000 8000 10000] -> [0,4000) [4000,8000) [8000,10000) [10000,+).
func NewBuckets(bounds []int) Buckets {
	buckets := make(Buckets, 0, len(bounds)+1)
	lo := 0
	for _, b := range bounds {
		buckets = append(buckets, TrophyBucket{Min: lo, Max: b})
		lo = b
	}
	buckets = append(buckets, TrophyBucket{Min: lo, Max: -1})
	return buckets
}

// IndexFor maps a trophy count to its bucket index. Every non-negative count
// falls into exactly one bucket; negative counts clamp to the first.
func (bs Buckets) IndexFor(trophies int) int {
	for i, b := range bs {
		if b.Contains(trophies) {
			return i
		}
	}
	return 0
}
