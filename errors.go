package starprobe

import (
	"errors"
	"fmt"

	"github.com/hupe1980/starprobe/internal/pool"
	"github.com/hupe1980/starprobe/internal/resource"
	"github.com/hupe1980/starprobe/octant"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrClosed is returned when the controller has been closed.
	ErrClosed = errors.New("controller closed")

	// ErrDegenerateRange is returned when a coordinate range has min == max
	// or a NaN bound.
	ErrDegenerateRange = errors.New("degenerate coordinate range")

	// ErrInvalidPivot is returned when the pivot has a NaN or infinite component.
	ErrInvalidPivot = errors.New("invalid pivot")

	// ErrMemoryLimitExceeded is returned when a built index does not fit the
	// configured memory limit.
	ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

	// errSuperseded resolves readiness waiters of a build replaced by a newer Initialize.
	errSuperseded = errors.New("build superseded")
)

// BuildError describes a failed index build.
//
// The original underlying error can be accessed via errors.Unwrap.
type BuildError struct {
	Generation uint64
	Points     int
	cause      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build generation %d (%d points): %v", e.Generation, e.Points, e.cause)
}

func (e *BuildError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, octant.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}
	if errors.Is(err, resource.ErrMemoryLimitExceeded) {
		return fmt.Errorf("%w: %w", ErrMemoryLimitExceeded, err)
	}
	if errors.Is(err, pool.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}
