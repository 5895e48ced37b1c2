package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	s := NewProgressSampler(0, 0)
	if s.bucketSize != 10 {
		t.Fatalf("bucketSize = %v, want 10", s.bucketSize)
	}
	if s.byteStep != 8<<20 {
		t.Fatalf("byteStep = %d", s.byteStep)
	}
	if s.lastBucket != -1 {
		t.Fatalf("lastBucket = %d, want -1", s.lastBucket)
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(1, 2) {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerKnownTotal(t *testing.T) {
	s := NewProgressSampler(25, 0)
	steps := []struct {
		done int64
		want bool
	}{
		{0, true},
		{10, false},
		{25, true},
		{30, false},
		{50, true},
		{99, true},
		{100, true},
		{120, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.done, 100); got != step.want {
			t.Fatalf("ShouldLog(%d) = %v, want %v", step.done, got, step.want)
		}
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	s := NewProgressSampler(10, 1000)
	if !s.ShouldLog(0, -1) {
		t.Fatal("expected first event to log")
	}
	if s.ShouldLog(999, -1) {
		t.Fatal("expected suppression inside step")
	}
	if !s.ShouldLog(1000, -1) {
		t.Fatal("expected log at step boundary")
	}
	if s.ShouldLog(-5, -1) {
		t.Fatal("negative progress should not log")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(50, 0)
	s.ShouldLog(60, 100)
	s.Reset()
	if !s.ShouldLog(0, 100) {
		t.Fatal("expected log after reset")
	}
}
