package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestSequenceStartsInConstraintOrder(t *testing.T) {
	var started []string

	seq := NewSequence(testLogger(), 1)
	seq.Add(Func{
		DependencyName: "http",
		Requires:       []string{"database", "cache"},
		StartFunc: func(ctx context.Context) error {
			started = append(started, "http")
			return nil
		},
	})
	seq.Add(Func{
		DependencyName: "database",
		StartFunc: func(ctx context.Context) error {
			started = append(started, "database")
			return nil
		},
	})
	seq.Add(Func{
		DependencyName: "cache",
		Requires:       []string{"database"},
		StartFunc: func(ctx context.Context) error {
			started = append(started, "cache")
			return nil
		},
	})

	require.NoError(t, seq.Start(context.Background()))
	assert.Equal(t, []string{"database", "cache", "http"}, started)
}

func TestSequenceRetriesAndReportsLastError(t *testing.T) {
	attempts := 0

	seq := NewSequence(testLogger(), 3)
	seq.Add(Func{
		DependencyName: "database",
		StartFunc: func(ctx context.Context) error {
			attempts++
			return errors.New("connection refused")
		},
	})

	err := seq.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.ErrorContains(t, err, "startup failed after 3 attempts")
	assert.ErrorContains(t, err, "connection refused")
}

func TestSequenceStopsInReverseOrder(t *testing.T) {
	var stopped []string

	stop := func(name string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			stopped = append(stopped, name)
			return nil
		}
	}

	seq := NewSequence(testLogger(), 1)
	seq.Add(Func{DependencyName: "database", StopFunc: stop("database")})
	seq.Add(Func{DependencyName: "http", Requires: []string{"database"}, StopFunc: stop("http")})

	require.NoError(t, seq.Start(context.Background()))
	require.NoError(t, seq.Stop(context.Background()))

	assert.Equal(t, []string{"http", "database"}, stopped)
}

func TestSequenceRejectsUnknownRequirement(t *testing.T) {
	seq := NewSequence(testLogger(), 1)
	seq.Add(Func{DependencyName: "http", Requires: []string{"database"}})

	err := seq.Start(context.Background())
	assert.ErrorContains(t, err, "unregistered dependency")
}

func TestSequenceStopSkipsNeverStarted(t *testing.T) {
	var stopped []string

	seq := NewSequence(testLogger(), 1)
	seq.Add(Func{
		DependencyName: "database",
		StartFunc:      func(ctx context.Context) error { return errors.New("down") },
		StopFunc: func(ctx context.Context) error {
			stopped = append(stopped, "database")
			return nil
		},
	})

	require.Error(t, seq.Start(context.Background()))
	require.NoError(t, seq.Stop(context.Background()))
	assert.Empty(t, stopped)
}
