package dftour

import (
	"sync"
)

// Releasable represents any resource that holds Arrow memory.
//
// DataFrames and Series implement it. Always call Release() when done with a
// resource; the usual pattern is defer:
//
//	df, err := dftour.NewDataFrame(names, weights)
//	if err != nil {
//		return err
//	}
//	defer df.Release()
type Releasable interface {
	Release()
}

// Scope tracks the intermediate results of a multi-step pipeline and releases
// them together.
//
// Example:
//
//	err := dftour.WithScope(func(scope *dftour.Scope) error {
//		derived, err := dftour.Keep(scope)(people.WithColumns(decade))
//		if err != nil {
//			return err
//		}
//		result, err := derived.GroupBy(dftour.Col("decade")).Len()
//		...
//	})
//	// derived is released here
//
// Scope is safe for concurrent use.
type Scope struct {
	mu        sync.Mutex
	resources []Releasable
}

// NewScope creates an empty scope
func NewScope() *Scope {
	return &Scope{}
}

// Track adds a resource to be released with the scope
func (s *Scope) Track(resource Releasable) {
	if resource == nil {
		return
	}
	s.mu.Lock()
	s.resources = append(s.resources, resource)
	s.mu.Unlock()
}

// Count returns the number of tracked resources
func (s *Scope) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources)
}

// ReleaseAll releases tracked resources, most recent first, and empties the
// scope
func (s *Scope) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.resources) - 1; i >= 0; i-- {
		s.resources[i].Release()
	}
	s.resources = s.resources[:0]
}

// Keep returns a function that tracks a successful DataFrame result in scope,
// so a pipeline step can be written as Keep(scope)(df.Filter(...)).
func Keep(scope *Scope) func(*DataFrame, error) (*DataFrame, error) {
	return func(df *DataFrame, err error) (*DataFrame, error) {
		if err != nil {
			return nil, err
		}
		scope.Track(df)
		return df, nil
	}
}

// WithScope runs fn with a fresh scope and releases everything it tracked
func WithScope(fn func(*Scope) error) error {
	scope := NewScope()
	defer scope.ReleaseAll()
	return fn(scope)
}

// WithDataFrame builds a DataFrame, passes it to fn and releases it afterwards
func WithDataFrame(factory func() (*DataFrame, error), fn func(*DataFrame) error) error {
	df, err := factory()
	if err != nil {
		return err
	}
	defer df.Release()
	return fn(df)
}
