// services/rproc/errors.go
package rproc

import (
	"strconv"

	"rproc-go/errcode"
	"rproc-go/types"
)

// Stage errors surface their specific kind unchanged to the immediate caller.
// No stage swallows or reclassifies a subordinate's error; the underlying
// backend error stays reachable through Unwrap.

// ResetError reports a failed reset-line operation.
// Codes: errcode.Unsupported, errcode.BackendFault.
type ResetError struct {
	C    errcode.Code
	Line string
	Err  error
}

func (e *ResetError) Error() string {
	s := "reset"
	if e.Line != "" {
		s += " " + e.Line
	}
	s += ": " + string(e.C)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ResetError) Unwrap() error      { return e.Err }
func (e *ResetError) Code() errcode.Code { return e.C }

// PowerError reports a failed power-state transition.
// Code: errcode.BackendFault.
type PowerError struct {
	C   errcode.Code
	Op  string // "activate" | "idle"
	Err error
}

func (e *PowerError) Error() string {
	s := "power " + e.Op + ": " + string(e.C)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *PowerError) Unwrap() error      { return e.Err }
func (e *PowerError) Code() errcode.Code { return e.C }

// TimerError reports a failed timer pool operation for the requirement at
// Index. Codes: errcode.NotBound, errcode.Busy, errcode.NotFound,
// errcode.StartFailed.
type TimerError struct {
	C     errcode.Code
	Index int
	ID    int
	Cap   types.TimerCap
	Err   error
}

func (e *TimerError) Error() string {
	s := "timer " + strconv.Itoa(e.ID)
	if e.Cap != "" {
		s += " (" + string(e.Cap) + ")"
	}
	s += ": " + string(e.C)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *TimerError) Unwrap() error      { return e.Err }
func (e *TimerError) Code() errcode.Code { return e.C }
