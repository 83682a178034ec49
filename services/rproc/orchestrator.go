// services/rproc/orchestrator.go
package rproc

import (
	"github.com/rs/zerolog"

	"rproc-go/errcode"
)

// Orchestrator sequences the reset lines, the power-state transition and the
// timer pool of one subsystem instance. It holds no locks; the owner
// guarantees at most one in-flight transition per instance.
type Orchestrator struct {
	desc   *Descriptor
	reset  *ResetController
	timers *TimerPool
	power  PowerBackend
	log    zerolog.Logger

	// Runtime state: per-line deassertion, index-aligned with
	// desc.ResetLines. All lines start asserted.
	deasserted []bool
}

func NewOrchestrator(desc *Descriptor, reset *ResetController, timers *TimerPool,
	power PowerBackend, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		desc:       desc,
		reset:      reset,
		timers:     timers,
		power:      power,
		log:        log.With().Str("subsystem", desc.Name).Logger(),
		deasserted: make([]bool, len(desc.ResetLines)),
	}
}

func (o *Orchestrator) Descriptor() *Descriptor { return o.desc }
func (o *Orchestrator) Timers() *TimerPool      { return o.timers }

// Active reports the externally observable invariant: every reset line
// deasserted and, where timers are required, every binding live and running.
func (o *Orchestrator) Active() bool {
	for _, d := range o.deasserted {
		if !d {
			return false
		}
	}
	return o.timers.Bound() && o.timers.Running()
}

// Enable brings the subsystem into a runnable state.
//
// Reset lines are released in reverse declared order: on the dual-core shape
// the secondary core's reset goes first, then the primary's. The ordering is
// a hardware dependency, not a convention. A deassert failure aborts
// immediately; the pulse is irreversible, so lines already released stay
// released and no rollback is attempted. Only once every line is released is
// the power domain activated, and only then is the timer pool brought up.
func (o *Orchestrator) Enable(configure bool) error {
	lines := o.desc.ResetLines
	for i := len(lines) - 1; i >= 0; i-- {
		if err := o.reset.Deassert(o.desc.ID, lines[i]); err != nil {
			o.stageFailed("reset_deassert", lines[i], err)
			return err
		}
		o.deasserted[i] = true
	}

	if err := o.power.Activate(o.desc.ID); err != nil {
		perr := &PowerError{C: errcode.BackendFault, Op: "activate", Err: err}
		o.stageFailed("power_activate", "", perr)
		return perr
	}

	if err := o.timers.AcquireAndStart(configure); err != nil {
		o.stageFailed("timers", "", err)
		return err
	}
	return nil
}

// Disable tears the subsystem down.
//
// The timer pool is stopped (and with configure, released) first; that path
// is best-effort and never blocks the shutdown. The power domain is then
// idled: if idling fails the reset lines are left untouched, preserving the
// rule that reset is only asserted on an already-idled device. Assertion
// runs in declared order, primary core first; the first failure is returned
// rather than silently completing a partial disable.
func (o *Orchestrator) Disable(configure bool) error {
	if failed := o.timers.StopAndRelease(configure); failed > 0 {
		o.log.Warn().Int("failures", failed).Msg("timer teardown reported failures")
	}

	if err := o.power.Idle(o.desc.ID); err != nil {
		perr := &PowerError{C: errcode.BackendFault, Op: "idle", Err: err}
		o.stageFailed("power_idle", "", perr)
		return perr
	}

	for i, line := range o.desc.ResetLines {
		if err := o.reset.Assert(o.desc.ID, line); err != nil {
			o.stageFailed("reset_assert", line, err)
			return err
		}
		o.deasserted[i] = false
	}
	return nil
}

func (o *Orchestrator) stageFailed(stage, line string, err error) {
	ev := o.log.Error().Str("stage", stage).Str("code", string(errcode.Of(err)))
	if line != "" {
		ev = ev.Str("line", line)
	}
	ev.Err(err).Msg("lifecycle transition failed")
}
