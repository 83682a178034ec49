// services/rproc/backends.go
package rproc

import "rproc-go/types"

// The orchestrator depends on small injected backend capabilities rather than
// callbacks stored in configuration data. All calls are bounded, synchronous
// hardware-register operations; retry policy belongs to callers.

// ResetBackend drives named per-subsystem hard reset lines.
type ResetBackend interface {
	AssertReset(id types.SubsystemID, line string) error
	DeassertReset(id types.SubsystemID, line string) error
}

// PowerBackend performs the platform power-state transitions for an instance.
type PowerBackend interface {
	Activate(id types.SubsystemID) error
	Idle(id types.SubsystemID) error
}

// Timer is an exclusively owned hardware timer handle.
type Timer interface {
	SetSource(src types.ClockSource) error
	Start() error
	Stop() error
	Free() error
}

// TimerBackend hands out hardware timers, by capability when the deployment
// supports capability-based discovery, or by fixed identifier.
type TimerBackend interface {
	// HasCapabilityDiscovery reports whether capability-based requests are
	// available. The answer is deployment-wide, not per-request.
	HasCapabilityDiscovery() bool
	RequestByCap(cap types.TimerCap) (Timer, error)
	RequestByID(id int) (Timer, error)
}

// ModuleHandle is an opaque reference to a discoverable on-chip functional
// block. The core threads it through without interpreting it.
type ModuleHandle interface {
	Name() string
}

// ModuleCatalog resolves hardware-module names at instance-build time.
// Absence is a fatal configuration error for that instance, not retried.
type ModuleCatalog interface {
	Lookup(name string) (ModuleHandle, bool)
}

// IOMMUContext is the opaque per-instance address-translation scope. Attached
// once at construction and never mutated by this core.
type IOMMUContext interface {
	Name() string
}

// IOMMUService attaches an instance to its MMU.
type IOMMUService interface {
	Attach(name string) (IOMMUContext, error)
}

// MemReserver confirms the boot-time physically-contiguous reservation for an
// instance. Sized and based at a fixed address per instance.
type MemReserver interface {
	Reserve(name string, base, size uint64) error
}

// BootAddressSetter writes a subsystem's boot address before enable. Optional
// per instance; invoked by the service layer, not the orchestrator.
type BootAddressSetter interface {
	SetBootAddress(addr uint32) error
}
