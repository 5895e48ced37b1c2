package classify

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"accentid/internal/accent"
)

func TestAccessorLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	a := NewAccessor(func() (*Classifier, error) {
		loads.Add(1)
		return New(&fakeModel{labels: accent.Count}, DefaultFeatureExtractor(), accent.Labels(), nil)
	})

	var wg sync.WaitGroup
	results := make([]*Classifier, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := a.Get()
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			results[i] = c
		}(i)
	}
	wg.Wait()
	if loads.Load() != 1 {
		t.Fatalf("loader ran %d times", loads.Load())
	}
	for _, c := range results {
		if c != results[0] {
			t.Fatal("accessor returned different classifiers")
		}
	}
}

func TestAccessorMemoizesFailure(t *testing.T) {
	var loads atomic.Int32
	cause := errors.New("model.onnx missing")
	a := NewAccessor(func() (*Classifier, error) {
		loads.Add(1)
		return nil, cause
	})
	for i := 0; i < 3; i++ {
		_, err := a.Get()
		var initErr *InitError
		if !errors.As(err, &initErr) || !errors.Is(err, cause) {
			t.Fatalf("expected InitError wrapping cause, got %v", err)
		}
	}
	if loads.Load() != 1 {
		t.Fatalf("loader ran %d times", loads.Load())
	}
}

func TestAccessorWithoutLoader(t *testing.T) {
	_, err := NewAccessor(nil).Get()
	var initErr *InitError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitError, got %v", err)
	}
}
