// services/rproc/fakes_test.go
package rproc

import (
	"fmt"

	"rproc-go/errcode"
	"rproc-go/types"
)

// journal records backend calls across fakes so tests can assert on the
// exact interleaved sequence.
type journal struct {
	entries []string
}

func (j *journal) add(format string, a ...any) {
	j.entries = append(j.entries, fmt.Sprintf(format, a...))
}

// ---- reset backend ----

type fakeReset struct {
	j      *journal
	failOn map[string]error // "assert cpu0" / "deassert cpu1" -> error
}

func newFakeReset(j *journal) *fakeReset {
	return &fakeReset{j: j, failOn: map[string]error{}}
}

func (f *fakeReset) AssertReset(id types.SubsystemID, line string) error {
	f.j.add("assert %s", line)
	return f.failOn["assert "+line]
}

func (f *fakeReset) DeassertReset(id types.SubsystemID, line string) error {
	f.j.add("deassert %s", line)
	return f.failOn["deassert "+line]
}

// ---- power backend ----

type fakePower struct {
	j           *journal
	activateErr error
	idleErr     error
}

func newFakePower(j *journal) *fakePower { return &fakePower{j: j} }

func (f *fakePower) Activate(id types.SubsystemID) error {
	f.j.add("activate %d", id)
	return f.activateErr
}

func (f *fakePower) Idle(id types.SubsystemID) error {
	f.j.add("idle %d", id)
	return f.idleErr
}

// ---- timer backend ----

type fakeTimer struct {
	j       *journal
	id      int
	claimed bool
	running bool
	source  types.ClockSource

	sourceErr error
	startErr  error
	stopErr   error
	freeErr   error
}

func (t *fakeTimer) SetSource(src types.ClockSource) error {
	t.j.add("t%d source %s", t.id, src)
	if t.sourceErr != nil {
		return t.sourceErr
	}
	t.source = src
	return nil
}

func (t *fakeTimer) Start() error {
	t.j.add("t%d start", t.id)
	if t.startErr != nil {
		return t.startErr
	}
	t.running = true
	return nil
}

func (t *fakeTimer) Stop() error {
	t.j.add("t%d stop", t.id)
	if t.stopErr != nil {
		return t.stopErr
	}
	t.running = false
	return nil
}

func (t *fakeTimer) Free() error {
	t.j.add("t%d free", t.id)
	if t.freeErr != nil {
		return t.freeErr
	}
	t.claimed = false
	t.running = false
	return nil
}

type fakeTimerBackend struct {
	j            *journal
	capDiscovery bool

	capToID map[types.TimerCap]int
	capErr  map[types.TimerCap]error
	idErr   map[int]error

	timers map[int]*fakeTimer
}

func newFakeTimerBackend(j *journal, capDiscovery bool) *fakeTimerBackend {
	return &fakeTimerBackend{
		j:            j,
		capDiscovery: capDiscovery,
		capToID:      map[types.TimerCap]int{},
		capErr:       map[types.TimerCap]error{},
		idErr:        map[int]error{},
		timers:       map[int]*fakeTimer{},
	}
}

func (f *fakeTimerBackend) HasCapabilityDiscovery() bool { return f.capDiscovery }

func (f *fakeTimerBackend) RequestByCap(cap types.TimerCap) (Timer, error) {
	f.j.add("request cap=%s", cap)
	if err := f.capErr[cap]; err != nil {
		return nil, err
	}
	id, ok := f.capToID[cap]
	if !ok {
		return nil, errcode.NotFound
	}
	return f.claim(id)
}

func (f *fakeTimerBackend) RequestByID(id int) (Timer, error) {
	f.j.add("request id=%d", id)
	if err := f.idErr[id]; err != nil {
		return nil, err
	}
	return f.claim(id)
}

func (f *fakeTimerBackend) claim(id int) (Timer, error) {
	t, ok := f.timers[id]
	if !ok {
		t = &fakeTimer{j: f.j, id: id}
		f.timers[id] = t
	}
	if t.claimed {
		return nil, errcode.Busy
	}
	t.claimed = true
	return t, nil
}

// claimedCount reports how many fake timers are currently handed out.
func (f *fakeTimerBackend) claimedCount() int {
	n := 0
	for _, t := range f.timers {
		if t.claimed {
			n++
		}
	}
	return n
}
