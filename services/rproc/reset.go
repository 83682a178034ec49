// services/rproc/reset.go
package rproc

import (
	"rproc-go/errcode"
	"rproc-go/types"
)

// ResetController asserts and deasserts named hard reset lines for a
// subsystem instance. It is a thin wrapper over the platform reset-line
// service: no retries here, retry policy belongs to the caller.
type ResetController struct {
	backend ResetBackend
}

func NewResetController(b ResetBackend) *ResetController {
	return &ResetController{backend: b}
}

// Assert holds the named core in reset.
func (c *ResetController) Assert(id types.SubsystemID, line string) error {
	if err := checkInstance(id, line); err != nil {
		return err
	}
	if err := c.backend.AssertReset(id, line); err != nil {
		return &ResetError{C: errcode.BackendFault, Line: line, Err: err}
	}
	return nil
}

// Deassert releases the named core from reset. The pulse is irreversible:
// callers must not expect a rollback path.
func (c *ResetController) Deassert(id types.SubsystemID, line string) error {
	if err := checkInstance(id, line); err != nil {
		return err
	}
	if err := c.backend.DeassertReset(id, line); err != nil {
		return &ResetError{C: errcode.BackendFault, Line: line, Err: err}
	}
	return nil
}

// checkInstance rejects anything outside the two known shapes
// (single-core id 0, dual-core id 1).
func checkInstance(id types.SubsystemID, line string) error {
	if id != 0 && id != 1 {
		return &ResetError{C: errcode.Unsupported, Line: line}
	}
	return nil
}
