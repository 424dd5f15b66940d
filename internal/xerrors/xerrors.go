// Package xerrors adds caller positions to errors. Wrap/Wrapf record the
// single frame that wrapped the error; New/Newf/WithStack record a stack.
// The log package reads both when rendering error_links and stacks.
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

const maxStackDepth = 64

type stacked struct {
	err error
	pcs []uintptr
}

func (s *stacked) Error() string       { return s.err.Error() }
func (s *stacked) Unwrap() error       { return s.err }
func (s *stacked) StackPCs() []uintptr { return s.pcs }

type wrapped struct {
	err error
	msg string
	pc  uintptr
}

func (w *wrapped) Error() string { return w.msg + ": " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
func (w *wrapped) PC() uintptr   { return w.pc }

// stackFrom captures the stack starting at the caller of the exported
// function that called it.
func stackFrom(err error) error {
	pcs := make([]uintptr, maxStackDepth)
	// runtime.Callers, stackFrom, exported func
	n := runtime.Callers(3, pcs)
	return &stacked{err: err, pcs: pcs[:n]}
}

func pcOfCaller() uintptr {
	var pcs [1]uintptr
	// runtime.Callers, pcOfCaller, exported func
	if runtime.Callers(3, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}

func New(msg string) error { return stackFrom(errors.New(msg)) }

func Newf(format string, args ...any) error { return stackFrom(fmt.Errorf(format, args...)) }

// WithStack attaches the current stack to err. nil stays nil.
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return stackFrom(err)
}

// EnsureTrace is WithStack unless something in the chain already has a stack.
func EnsureTrace(err error) error {
	if err == nil {
		return nil
	}
	var st interface{ StackPCs() []uintptr }
	if errors.As(err, &st) && len(st.StackPCs()) > 0 {
		return err
	}
	return stackFrom(err)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrapped{err: err, msg: msg, pc: pcOfCaller()}
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrapped{err: err, msg: fmt.Sprintf(format, args...), pc: pcOfCaller()}
}
