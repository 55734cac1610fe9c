package core

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by a stream whose subscription or channel was closed.
	ErrClosed = errors.New("stream closed")
	// ErrLagged matches any *LaggedError.
	ErrLagged = errors.New("subscriber lagged")
)

// LaggedError reports that a subscriber fell behind and some events were
// dropped for it. The stream stays usable.
type LaggedError struct {
	Skipped uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("subscriber lagged: %d events skipped", e.Skipped)
}

// Is lets errors.Is(err, ErrLagged) match.
func (e *LaggedError) Is(target error) bool {
	return target == ErrLagged
}
