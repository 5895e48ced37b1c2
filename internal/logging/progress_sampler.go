package logging

// ProgressSampler suppresses repetitive transfer logs, emitting only when the
// completed percentage crosses a bucket boundary. When the total is unknown
// it falls back to fixed byte steps.
type ProgressSampler struct {
	bucketSize float64
	byteStep   int64
	lastBucket int64
}

// NewProgressSampler constructs a sampler with the given percent bucket
// (default 10) and byte step for unknown totals (default 8 MiB).
func NewProgressSampler(bucketSize float64, byteStep int64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	if byteStep <= 0 {
		byteStep = 8 << 20
	}
	return &ProgressSampler{bucketSize: bucketSize, byteStep: byteStep, lastBucket: -1}
}

// ShouldLog reports whether a progress event for done of total bytes should
// be logged. A total of zero or less means the size is unknown.
func (s *ProgressSampler) ShouldLog(done, total int64) bool {
	if s == nil {
		return true
	}
	if done < 0 {
		return false
	}
	var bucket int64
	if total > 0 {
		percent := float64(done) / float64(total) * 100
		if percent > 100 {
			percent = 100
		}
		bucket = int64(percent / s.bucketSize)
	} else {
		bucket = done / s.byteStep
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state before a new transfer.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}
