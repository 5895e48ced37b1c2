package classify

import (
	"errors"
	"sync"
)

// Loader builds the process classifier.
type Loader func() (*Classifier, error)

// Accessor memoizes the first Loader result, success or failure.
type Accessor struct {
	once       sync.Once
	load       Loader
	classifier *Classifier
	err        error
}

// NewAccessor wraps load so it runs at most once.
func NewAccessor(load Loader) *Accessor {
	return &Accessor{load: load}
}

// Get runs the loader on first use and returns the memoized result.
// Loader errors are reported as *InitError.
func (a *Accessor) Get() (*Classifier, error) {
	a.once.Do(func() {
		if a.load == nil {
			a.err = &InitError{Err: errors.New("no model loader configured")}
			return
		}
		a.classifier, a.err = a.load()
		if a.err == nil && a.classifier == nil {
			a.err = errors.New("loader returned no classifier")
		}
		if a.err != nil {
			var initErr *InitError
			if !errors.As(a.err, &initErr) {
				a.err = &InitError{Err: a.err}
			}
			a.classifier = nil
		}
	})
	return a.classifier, a.err
}

var (
	processMu       sync.Mutex
	processAccessor *Accessor
)

// Shared returns the process-wide classifier. The loader passed on the first
// call is the only one ever run; later loaders are ignored.
func Shared(load Loader) (*Classifier, error) {
	processMu.Lock()
	if processAccessor == nil {
		processAccessor = NewAccessor(load)
	}
	a := processAccessor
	processMu.Unlock()
	return a.Get()
}
