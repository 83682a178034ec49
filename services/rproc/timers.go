// services/rproc/timers.go
package rproc

import (
	"rproc-go/errcode"
	"rproc-go/types"
)

// TimerPool owns the hardware-timer bindings of one subsystem instance.
// Acquisition is all-or-nothing across the requirement sequence; teardown is
// best-effort and exhaustive. The pool holds no locks: the owner serializes
// calls per instance.
type TimerPool struct {
	backend TimerBackend
	specs   []TimerSpec
	bound   []Timer // nil when unacquired; exclusively owned once set
	running []bool
}

func NewTimerPool(backend TimerBackend, specs []TimerSpec) *TimerPool {
	return &TimerPool{
		backend: backend,
		specs:   specs,
		bound:   make([]Timer, len(specs)),
		running: make([]bool, len(specs)),
	}
}

// Bound reports whether every requirement holds a live binding. Vacuously
// true when the instance requires no timers.
func (p *TimerPool) Bound() bool {
	for i := range p.specs {
		if p.bound[i] == nil {
			return false
		}
	}
	return true
}

// Running reports whether every bound timer is started.
func (p *TimerPool) Running() bool {
	for i := range p.specs {
		if !p.running[i] {
			return false
		}
	}
	return true
}

// AcquireAndStart brings the pool up. With configure set it acquires a
// binding for every requirement in declared order, binding the reference
// clock as it goes; an acquisition failure at index k releases every binding
// below k and reports busy (or not_found when the identifier and capability
// are unknown). Without configure it only restarts timers bound by an
// earlier configure pass; a missing binding then is a caller-sequencing bug
// and reports not_bound.
//
// Once every requirement is bound, all timers are started. A start failure
// at that stage leaves the bindings allocated but unstarted: the caller must
// disable explicitly to clean up. Acquisition and post-acquisition failures
// are deliberately different domains.
func (p *TimerPool) AcquireAndStart(configure bool) error {
	if len(p.specs) == 0 {
		return nil
	}

	if !configure {
		for i, spec := range p.specs {
			if p.bound[i] == nil {
				return &TimerError{C: errcode.NotBound, Index: i, ID: spec.FallbackID, Cap: spec.Cap}
			}
		}
	} else {
		for i, spec := range p.specs {
			t, err := p.request(spec)
			if err != nil {
				p.releaseBelow(i)
				return &TimerError{C: acquireCode(err), Index: i, ID: spec.FallbackID, Cap: spec.Cap, Err: err}
			}
			if err := t.SetSource(types.SysClock); err != nil {
				_ = t.Free()
				p.releaseBelow(i)
				return &TimerError{C: errcode.Busy, Index: i, ID: spec.FallbackID, Cap: spec.Cap, Err: err}
			}
			p.bound[i] = t
		}
	}

	for i, spec := range p.specs {
		if p.running[i] {
			continue
		}
		if err := p.bound[i].Start(); err != nil {
			// Hardware was validated at acquisition; if the backend still
			// reports a failure the bindings stay allocated and the caller
			// must tear down via StopAndRelease.
			return &TimerError{C: errcode.StartFailed, Index: i, ID: spec.FallbackID, Cap: spec.Cap, Err: err}
		}
		p.running[i] = true
	}
	return nil
}

// request tries capability-based acquisition when the deployment supports
// it, falling back to the fixed identifier; otherwise it goes straight to
// the identifier.
func (p *TimerPool) request(spec TimerSpec) (Timer, error) {
	if p.backend.HasCapabilityDiscovery() {
		if t, err := p.backend.RequestByCap(spec.Cap); err == nil {
			return t, nil
		}
	}
	return p.backend.RequestByID(spec.FallbackID)
}

func acquireCode(err error) errcode.Code {
	if errcode.Of(err) == errcode.NotFound {
		return errcode.NotFound
	}
	return errcode.Busy
}

// releaseBelow rolls back bindings at indices < k, newest first.
func (p *TimerPool) releaseBelow(k int) {
	for i := k - 1; i >= 0; i-- {
		t := p.bound[i]
		if t == nil {
			continue
		}
		if p.running[i] {
			_ = t.Stop()
			p.running[i] = false
		}
		_ = t.Free()
		p.bound[i] = nil
	}
}

// StopAndRelease stops every bound timer and, with configure set, frees the
// handles and clears the bindings. It never short-circuits: a stuck timer
// must not block freeing the others. Individual stop/free failures are
// reported as a count, not an error, because this path runs during teardown
// where partial failure must not block forward progress.
func (p *TimerPool) StopAndRelease(configure bool) int {
	failed := 0
	for i := range p.specs {
		t := p.bound[i]
		if t == nil {
			continue
		}
		if err := t.Stop(); err != nil {
			failed++
		}
		p.running[i] = false
		if configure {
			if err := t.Free(); err != nil {
				failed++
			}
			p.bound[i] = nil
		}
	}
	return failed
}
