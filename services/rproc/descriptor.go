// services/rproc/descriptor.go
package rproc

import (
	"fmt"

	"rproc-go/errcode"
	"rproc-go/types"
)

// TimerSpec is one hardware-timer requirement: preferred capability tag plus
// the fixed identifier used when capability discovery cannot serve it.
type TimerSpec struct {
	Cap        types.TimerCap
	FallbackID int
}

// MemRegion is the boot-time physically-contiguous reservation for an
// instance.
type MemRegion struct {
	Base uint64
	Size uint64
}

// Descriptor is the static per-instance configuration of one remote
// processor subsystem. It is pure data: all behaviour is injected through
// backend capabilities at construction.
type Descriptor struct {
	ID    types.SubsystemID
	Name  string // e.g. "dsp", "ipu"
	Shape types.Shape

	// ResetLines in declared (assertion) order. Deassertion runs in reverse:
	// the secondary core's reset is released before the primary's.
	ResetLines []string

	// Timers the subsystem needs running before it can execute firmware.
	// Empty means none required.
	Timers []TimerSpec

	// Carried opaquely for the consuming subsystem; not interpreted here.
	Firmware string
	Mailbox  string

	// One or two hardware-module names. ModuleOpt covers configurations where
	// both cores of a dual-core subsystem are represented by one device.
	Module    string
	ModuleOpt string

	// IOMMU names the MMU this instance attaches to.
	IOMMU string

	Mem MemRegion

	// BootSetter, when present, is invoked by the service layer before
	// enable. Not this core's responsibility.
	BootSetter BootAddressSetter
}

// Validate enforces the two supported instance shapes: id 0 is single-core
// with one reset line, id 1 is dual-core with two.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor: missing name: %w", errcode.InvalidParams)
	}
	if len(d.ResetLines) == 0 {
		return fmt.Errorf("descriptor %s: no reset lines: %w", d.Name, errcode.InvalidParams)
	}
	if d.Module == "" {
		return fmt.Errorf("descriptor %s: missing module: %w", d.Name, errcode.InvalidParams)
	}
	switch d.Shape {
	case types.SingleCore:
		if d.ID != 0 || len(d.ResetLines) != 1 {
			return fmt.Errorf("descriptor %s: single-core must be id 0 with one reset line: %w",
				d.Name, errcode.InvalidShape)
		}
	case types.DualCore:
		if d.ID != 1 || len(d.ResetLines) != 2 {
			return fmt.Errorf("descriptor %s: dual-core must be id 1 with two reset lines: %w",
				d.Name, errcode.InvalidShape)
		}
	default:
		return fmt.Errorf("descriptor %s: unknown shape %q: %w", d.Name, d.Shape, errcode.InvalidShape)
	}
	return nil
}
