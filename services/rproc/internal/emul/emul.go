// services/rproc/internal/emul/emul.go
//
// Host-side emulation of the SoC services the lifecycle core is injected
// with: reset lines, power domains, module catalog, IOMMUs, contiguous
// reservations and general-purpose timers. Used by the selftest binary and
// the service tests; nothing here touches real hardware.
package emul

import (
	"fmt"
	"strconv"
	"sync"

	"rproc-go/errcode"
	rproc "rproc-go/services/rproc"
	"rproc-go/types"
)

// SoC models one OMAP4-class part: a single-core DSP subsystem (id 0, line
// "dsp") and a dual-M3 subsystem (id 1, lines "cpu0"/"cpu1"), eleven
// general-purpose timers of which GPT3 routes an interrupt to the IPU and
// GPT5 to the DSP.
type SoC struct {
	mu sync.Mutex

	capDiscovery bool

	lines   map[string]bool // "<id>/<line>" -> asserted
	powered map[types.SubsystemID]bool
	timers  map[int]*Timer
	order   []int

	reserved map[string]rproc.MemRegion

	transcript []string
}

func NewSoC(capDiscovery bool) *SoC {
	s := &SoC{
		capDiscovery: capDiscovery,
		lines: map[string]bool{
			lineKey(0, "dsp"):  true,
			lineKey(1, "cpu0"): true,
			lineKey(1, "cpu1"): true,
		},
		powered:  map[types.SubsystemID]bool{},
		timers:   map[int]*Timer{},
		reserved: map[string]rproc.MemRegion{},
	}
	caps := map[int]types.TimerCap{
		3: types.CapIPUIRQ,
		5: types.CapDSPIRQ,
	}
	for id := 1; id <= 11; id++ {
		s.timers[id] = &Timer{soc: s, id: id, cap: caps[id]}
		s.order = append(s.order, id)
	}
	return s
}

func lineKey(id types.SubsystemID, line string) string {
	return strconv.Itoa(int(id)) + "/" + line
}

func (s *SoC) record(format string, a ...any) {
	s.transcript = append(s.transcript, fmt.Sprintf(format, a...))
}

// Transcript returns a copy of the recorded backend calls, in order.
func (s *SoC) Transcript() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// ---- rproc.ResetBackend ----

func (s *SoC) AssertReset(id types.SubsystemID, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := lineKey(id, line)
	if _, ok := s.lines[k]; !ok {
		return errcode.NotFound
	}
	s.lines[k] = true
	s.record("assert %s", k)
	return nil
}

func (s *SoC) DeassertReset(id types.SubsystemID, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := lineKey(id, line)
	if _, ok := s.lines[k]; !ok {
		return errcode.NotFound
	}
	s.lines[k] = false
	s.record("deassert %s", k)
	return nil
}

// LineAsserted reports whether a reset line is currently held.
func (s *SoC) LineAsserted(id types.SubsystemID, line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[lineKey(id, line)]
}

// ---- rproc.PowerBackend ----

func (s *SoC) Activate(id types.SubsystemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.powered[id] = true
	s.record("activate %d", id)
	return nil
}

func (s *SoC) Idle(id types.SubsystemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.powered[id] = false
	s.record("idle %d", id)
	return nil
}

func (s *SoC) Powered(id types.SubsystemID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.powered[id]
}

// ---- rproc.ModuleCatalog ----

type module struct{ name string }

func (m module) Name() string { return m.name }

func (s *SoC) Lookup(name string) (rproc.ModuleHandle, bool) {
	switch name {
	case "dsp", "ipu":
		return module{name: name}, true
	}
	return nil, false
}

// ---- rproc.IOMMUService ----

type iommu struct{ name string }

func (m iommu) Name() string { return m.name }

func (s *SoC) Attach(name string) (rproc.IOMMUContext, error) {
	switch name {
	case "mmu_dsp", "mmu_ipu":
		return iommu{name: name}, nil
	}
	return nil, errcode.NotFound
}

// ---- rproc.MemReserver ----

func (s *SoC) Reserve(name string, base, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.reserved[name]; ok && prev.Base != base {
		return errcode.Busy
	}
	s.reserved[name] = rproc.MemRegion{Base: base, Size: size}
	s.record("reserve %s base=0x%x size=0x%x", name, base, size)
	return nil
}

// ---- rproc.TimerBackend ----

func (s *SoC) HasCapabilityDiscovery() bool { return s.capDiscovery }

func (s *SoC) RequestByCap(cap types.TimerCap) (rproc.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cap == "" {
		return nil, errcode.NotFound
	}
	found := false
	for _, id := range s.order {
		t := s.timers[id]
		if t.cap != cap {
			continue
		}
		found = true
		if !t.claimed {
			t.claimed = true
			s.record("request cap=%s -> gpt%d", cap, id)
			return t, nil
		}
	}
	if !found {
		return nil, errcode.NotFound
	}
	return nil, errcode.Busy
}

func (s *SoC) RequestByID(id int) (rproc.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[id]
	if !ok {
		return nil, errcode.NotFound
	}
	if t.claimed {
		return nil, errcode.Busy
	}
	t.claimed = true
	s.record("request id=%d -> gpt%d", id, id)
	return t, nil
}

// TimerRunning reports whether the given timer is counting.
func (s *SoC) TimerRunning(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[id]
	return ok && t.running
}

// ClaimedTimers counts timers currently handed out.
func (s *SoC) ClaimedTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if t.claimed {
			n++
		}
	}
	return n
}

// ---- Timer handle ----

// Timer implements rproc.Timer over the emulated pool.
type Timer struct {
	soc     *SoC
	id      int
	cap     types.TimerCap
	claimed bool
	running bool
	source  types.ClockSource
}

func (t *Timer) SetSource(src types.ClockSource) error {
	t.soc.mu.Lock()
	defer t.soc.mu.Unlock()
	t.source = src
	t.soc.record("gpt%d source=%s", t.id, src)
	return nil
}

func (t *Timer) Start() error {
	t.soc.mu.Lock()
	defer t.soc.mu.Unlock()
	t.running = true
	t.soc.record("gpt%d start", t.id)
	return nil
}

func (t *Timer) Stop() error {
	t.soc.mu.Lock()
	defer t.soc.mu.Unlock()
	t.running = false
	t.soc.record("gpt%d stop", t.id)
	return nil
}

func (t *Timer) Free() error {
	t.soc.mu.Lock()
	defer t.soc.mu.Unlock()
	t.claimed = false
	t.running = false
	t.soc.record("gpt%d free", t.id)
	return nil
}

// ---- Boot-address capability ----

// BootRegister emulates the control-module register a DSP-class subsystem
// boots from.
type BootRegister struct {
	soc  *SoC
	name string
	addr uint32
}

func (s *SoC) BootRegister(name string) *BootRegister {
	return &BootRegister{soc: s, name: name}
}

func (b *BootRegister) SetBootAddress(addr uint32) error {
	b.soc.mu.Lock()
	defer b.soc.mu.Unlock()
	b.addr = addr
	b.soc.record("bootaddr %s=0x%x", b.name, addr)
	return nil
}

func (b *BootRegister) Addr() uint32 {
	b.soc.mu.Lock()
	defer b.soc.mu.Unlock()
	return b.addr
}
