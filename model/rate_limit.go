package model

// RateWindowBucket holds per-client request counts keyed by minute epoch
// (floor(unix/60)). Buckets older than the trailing window are prunable
// without affecting the window sum.
type RateWindowBucket struct {
	Buckets map[int64]int
}

func NewRateWindowBucket() *RateWindowBucket {
	return &RateWindowBucket{Buckets: make(map[int64]int)}
}

// Prune drops buckets that fall entirely before windowStart (unix seconds).
func (b *RateWindowBucket) Prune(windowStart int64) {
	for minute := range b.Buckets {
		if minute*60 <= windowStart {
			delete(b.Buckets, minute)
		}
	}
}

func (b *RateWindowBucket) Sum() int {
	total := 0
	for _, count := range b.Buckets {
		total += count
	}
	return total
}

func (b *RateWindowBucket) Increment(minute int64) {
	b.Buckets[minute]++
}
