package compute

import (
	"errors"
	"fmt"
	"sync"
)

// Scope owns every object created during a run. Release functions are
// recorded in creation order and run in reverse order by Close.
//
// A stage pushes the release for an object immediately after the object
// is created, so a failure at any point leaves exactly the objects that
// exist on the stack.
type Scope struct {
	mu       sync.Mutex
	releases []release
	closed   bool
}

type release struct {
	name string
	fn   func() error
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Defer records a release that cannot fail.
func (s *Scope) Defer(name string, fn func()) {
	s.DeferErr(name, func() error {
		fn()
		return nil
	})
}

// DeferErr records a release that can fail. Failures are collected by Close.
func (s *Scope) DeferErr(name string, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// Late registration after Close: release right away so nothing leaks.
		if err := fn(); err != nil {
			slogger().Warn("compute: late release failed", "object", name, "err", err)
		}
		return
	}
	s.releases = append(s.releases, release{name: name, fn: fn})
}

// Len returns the number of objects still owned by the scope.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.releases)
}

// Names returns the owned object names in creation order.
func (s *Scope) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.releases))
	for i, r := range s.releases {
		names[i] = r.name
	}
	return names
}

// Close releases every owned object in reverse creation order. Every
// release runs even if an earlier one fails; failures are joined.
// Close is safe to call multiple times.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()

	var errs []error
	for i := len(releases) - 1; i >= 0; i-- {
		r := releases[i]
		slogger().Debug("compute: release", "object", r.name)
		if err := r.fn(); err != nil {
			slogger().Warn("compute: release failed", "object", r.name, "err", err)
			errs = append(errs, fmt.Errorf("release %s: %w", r.name, err))
		}
	}
	return errors.Join(errs...)
}
