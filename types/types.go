package types

// ------------------------
// Subsystem addressing & shapes
// ------------------------

// SubsystemID is the stable per-instance identifier.
type SubsystemID int

// Shape describes the reset-line layout of a subsystem.
type Shape string

const (
	// SingleCore subsystems hold one reset line (id 0).
	SingleCore Shape = "single_core"
	// DualCore subsystems hold two reset lines, primary first (id 1).
	DualCore Shape = "dual_core"
)

// ------------------------
// Timer capabilities
// ------------------------

// TimerCap is a symbolic property used to select a hardware timer without
// hardcoding its identifier.
type TimerCap string

const (
	CapIPUIRQ TimerCap = "ipu_irq"
	CapDSPIRQ TimerCap = "dsp_irq"
)

// ClockSource selects the functional clock parent for a bound timer.
type ClockSource string

const (
	SysClock ClockSource = "sys_clk"
	Clock32K ClockSource = "32k_clk"
)

// ------------------------
// Service / subsystem state (retained on the bus)
// ------------------------

type ServiceState struct {
	Level  string `json:"level"`  // "idle", "ready", "stopped"
	Status string `json:"status"` // freeform short code
	TSms   int64  `json:"ts_ms"`
}

// Subsystem levels.
const (
	LevelOffline = "offline"
	LevelActive  = "active"
	LevelFailed  = "failed"
)

type SubsystemState struct {
	Level  string `json:"level"`           // offline | active | failed
	Status string `json:"status"`          // short code, e.g. "reset_deassert_failed"
	Error  string `json:"error,omitempty"` // machine-readable cause
	TSms   int64  `json:"ts_ms"`
}

// ------------------------
// Control payloads
// ------------------------

// TransitionRequest drives the "enable" and "disable" verbs. Configure is
// true on cold transitions (acquire or release timer bindings) and false on
// restart paths that reuse live bindings.
type TransitionRequest struct {
	Configure bool `json:"configure"`
	// BootAddr, when set on an enable, is handed to the subsystem's
	// boot-address capability before the transition starts.
	BootAddr *uint32 `json:"boot_addr,omitempty"`
}

// ------------------------
// Generic replies
// ------------------------

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
