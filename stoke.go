package stoke

import (
	"errors"
	"fmt"
)

// Standard widths.
const (
	Width8  = 8
	Width16 = 16
	Width32 = 32
	Width64 = 64
)

var (
	ErrInterrupted         = errors.New("external interrupt")
	ErrSolverTimeout       = errors.New("solver timeout")
	ErrSolverCanceled      = errors.New("solver canceled")
	ErrSolverResourceLimit = errors.New("solver resource limit")
	ErrSolverUnknown       = errors.New("solver gave up")
	ErrNoModel             = errors.New("no model available")
)

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
