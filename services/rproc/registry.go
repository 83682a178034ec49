// services/rproc/registry.go
package rproc

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"rproc-go/errcode"
	"rproc-go/types"
)

// Backends bundles the hardware services every orchestrator is built on.
type Backends struct {
	Reset  ResetBackend
	Power  PowerBackend
	Timers TimerBackend
}

// Platform bundles the one-shot construction-time collaborators.
type Platform struct {
	Modules ModuleCatalog
	IOMMUs  IOMMUService
	Mem     MemReserver

	// BootSetters maps subsystem name to its optional boot-address
	// capability (typically only the DSP-class instance has one).
	BootSetters map[string]BootAddressSetter
}

// Instance is one registered subsystem: its descriptor, orchestrator, and
// the opaque handles resolved at build time.
type Instance struct {
	Desc    *Descriptor
	Orch    *Orchestrator
	Modules []ModuleHandle
	IOMMU   IOMMUContext
}

// Registry maps subsystem identifiers to built instances. It is constructed
// once at process start and passed by reference; there are no process-wide
// mutable tables.
type Registry struct {
	byID   map[types.SubsystemID]*Instance
	byName map[string]*Instance
	order  []*Instance
}

// BuildRegistry builds and registers an instance per descriptor. A
// descriptor that fails to build is skipped and reported; the remaining
// instances still register, matching the per-instance error discipline of
// boot-time device construction. The returned error joins the per-instance
// failures, if any.
func BuildRegistry(descs []*Descriptor, be Backends, plat Platform, log zerolog.Logger) (*Registry, error) {
	r := &Registry{
		byID:   make(map[types.SubsystemID]*Instance, len(descs)),
		byName: make(map[string]*Instance, len(descs)),
	}
	var errs []error
	for _, d := range descs {
		inst, err := buildInstance(d, be, plat, log)
		if err != nil {
			log.Error().Str("subsystem", d.Name).Err(err).Msg("instance build failed")
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
			continue
		}
		r.add(inst)
	}
	return r, errors.Join(errs...)
}

func buildInstance(d *Descriptor, be Backends, plat Platform, log zerolog.Logger) (*Instance, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	mh, ok := plat.Modules.Lookup(d.Module)
	if !ok {
		return nil, fmt.Errorf("module %q: %w", d.Module, errcode.UnknownModule)
	}
	modules := []ModuleHandle{mh}
	// A dual-core subsystem may carry a secondary module entry when both
	// cores are represented by a single instance.
	if d.ModuleOpt != "" {
		mh2, ok := plat.Modules.Lookup(d.ModuleOpt)
		if !ok {
			return nil, fmt.Errorf("module %q: %w", d.ModuleOpt, errcode.UnknownModule)
		}
		modules = append(modules, mh2)
	}

	var mmu IOMMUContext
	if d.IOMMU != "" {
		var err error
		mmu, err = plat.IOMMUs.Attach(d.IOMMU)
		if err != nil {
			return nil, fmt.Errorf("iommu %q: %w", d.IOMMU, err)
		}
	}

	if d.Mem.Size > 0 && plat.Mem != nil {
		// Reservation trouble is reported but does not unregister the
		// instance; the region was fixed at boot and a later enable will
		// surface any real fault.
		if err := plat.Mem.Reserve(d.Name, d.Mem.Base, d.Mem.Size); err != nil {
			log.Error().Str("subsystem", d.Name).Err(err).Msg("contiguous reservation failed")
		}
	}

	if d.BootSetter == nil {
		d.BootSetter = plat.BootSetters[d.Name]
	}

	orch := NewOrchestrator(d,
		NewResetController(be.Reset),
		NewTimerPool(be.Timers, d.Timers),
		be.Power, log)

	return &Instance{Desc: d, Orch: orch, Modules: modules, IOMMU: mmu}, nil
}

// add registers an instance. Duplicate ids or names panic to catch
// configuration mistakes at start-up.
func (r *Registry) add(inst *Instance) {
	if _, exists := r.byID[inst.Desc.ID]; exists {
		panic(fmt.Sprintf("rproc: duplicate subsystem id %d", inst.Desc.ID))
	}
	if _, exists := r.byName[inst.Desc.Name]; exists {
		panic(fmt.Sprintf("rproc: duplicate subsystem name %q", inst.Desc.Name))
	}
	r.byID[inst.Desc.ID] = inst
	r.byName[inst.Desc.Name] = inst
	r.order = append(r.order, inst)
}

func (r *Registry) ByID(id types.SubsystemID) (*Instance, bool) {
	inst, ok := r.byID[id]
	return inst, ok
}

func (r *Registry) ByName(name string) (*Instance, bool) {
	inst, ok := r.byName[name]
	return inst, ok
}

// Instances returns the registered instances in declared order.
func (r *Registry) Instances() []*Instance { return r.order }
