package module

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRunning = errors.New("module already running")
	ErrNotRunning     = errors.New("module not running")
)

// PanicError wraps a value recovered from a panicking Update or OnDecision.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Safely calls fn and turns a panic into a *PanicError.
func Safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
