// Package startup orders service dependencies (store, cache, broker, http)
// and retries the whole sequence with backoff until it comes up or the
// attempt budget is spent.
package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
)

// Dependency is one startable unit with optional ordering constraints.
type Dependency interface {
	Name() string
	DependsOn() []string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type status int

const (
	statusPending status = iota
	statusStarted
	statusStopped
	statusFailed
)

// Sequence starts dependencies in constraint order and stops them in the
// reverse of the order they started.
type Sequence struct {
	logger       ectologger.Logger
	dependencies map[string]Dependency
	order        []string
	statuses     map[string]status
	maxAttempts  int
}

func NewSequence(logger ectologger.Logger, maxAttempts int) *Sequence {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Sequence{
		logger:       logger,
		dependencies: make(map[string]Dependency),
		statuses:     make(map[string]status),
		maxAttempts:  maxAttempts,
	}
}

// Add registers a dependency. Registration order is the tiebreak when no
// constraint orders two dependencies.
func (s *Sequence) Add(dep Dependency) {
	s.dependencies[dep.Name()] = dep
	s.order = append(s.order, dep.Name())
}

// Start brings every dependency up, retrying the full sequence with
// fibonacci backoff on failure.
func (s *Sequence) Start(ctx context.Context) error {
	var lastErr error

	a, b := 1, 1
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		s.logger.WithField("attempt", attempt).Infof("Beginning startup attempt %d", attempt)

		lastErr = nil
		for _, name := range s.order {
			if err := s.start(ctx, s.dependencies[name]); err != nil {
				s.logger.WithError(err).Errorf("Startup dependency '%s' attempt %d failed", name, attempt)
				lastErr = err
				break
			}
		}
		if lastErr == nil {
			return nil
		}
		if attempt == s.maxAttempts {
			break
		}

		s.logger.Infof("Retrying in %d seconds (attempt %d/%d)", a, attempt, s.maxAttempts)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(a) * time.Second):
		}
		a, b = b, a+b
	}

	return fmt.Errorf("startup failed after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Sequence) start(ctx context.Context, dep Dependency) error {
	if s.statuses[dep.Name()] == statusStarted {
		return nil
	}

	for _, name := range dep.DependsOn() {
		upstream, ok := s.dependencies[name]
		if !ok {
			return fmt.Errorf("dependency '%s' requires unregistered dependency '%s'", dep.Name(), name)
		}
		if s.statuses[name] != statusStarted {
			if err := s.start(ctx, upstream); err != nil {
				return err
			}
		}
	}

	s.logger.WithField("dependency", dep.Name()).Infof("Starting dependency '%s'", dep.Name())
	if err := dep.Start(ctx); err != nil {
		s.statuses[dep.Name()] = statusFailed
		return err
	}
	s.statuses[dep.Name()] = statusStarted
	return nil
}

// Stop shuts started dependencies down in reverse registration order. It
// keeps going on error so one stuck dependency cannot strand the rest, and
// returns the first error seen.
func (s *Sequence) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(s.order) - 1; i >= 0; i-- {
		name := s.order[i]
		if s.statuses[name] != statusStarted {
			continue
		}

		s.logger.WithField("dependency", name).Infof("Stopping dependency '%s'", name)
		if err := s.dependencies[name].Stop(ctx); err != nil {
			s.logger.WithError(err).Errorf("Failed to stop dependency '%s'", name)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.statuses[name] = statusStopped
	}
	return firstErr
}

// Func adapts start/stop closures into a Dependency.
type Func struct {
	DependencyName string
	Requires       []string
	StartFunc      func(ctx context.Context) error
	StopFunc       func(ctx context.Context) error
}

func (f Func) Name() string        { return f.DependencyName }
func (f Func) DependsOn() []string { return f.Requires }

func (f Func) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f Func) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}
