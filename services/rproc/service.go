// services/rproc/service.go
package rproc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"rproc-go/bus"
	"rproc-go/errcode"
	"rproc-go/services/rproc/config"
	"rproc-go/types"
)

// Service is the bus-facing device-power surface of the lifecycle core. One
// goroutine owns every orchestrator, so transitions are naturally serialized
// per instance and the core stays lock-free.
type Service struct {
	conn *bus.Connection
	be   Backends
	plat Platform
	log  zerolog.Logger

	reg *Registry

	cfgSub  *bus.Subscription
	ctrlSub *bus.Subscription
}

func NewService(conn *bus.Connection, be Backends, plat Platform, log zerolog.Logger) *Service {
	return &Service{
		conn: conn,
		be:   be,
		plat: plat,
		log:  log.With().Str("service", "rproc").Logger(),
	}
}

func (s *Service) Run(ctx context.Context) {
	s.cfgSub = s.conn.Subscribe(topicConfig())
	s.ctrlSub = s.conn.Subscribe(ctrlWildcard())
	defer s.conn.Unsubscribe(s.cfgSub)
	defer s.conn.Unsubscribe(s.ctrlSub)

	s.pubServiceState("idle", "awaiting_config")

	for {
		select {
		case <-ctx.Done():
			s.pubServiceState("stopped", "context_cancelled")
			return

		case msg := <-s.cfgSub.Channel():
			if s.reg != nil {
				// The registry is built once at start; later config
				// publications are ignored rather than half-applied.
				s.log.Warn().Msg("config republished after build, ignoring")
				continue
			}
			cfg, err := config.Decode(msg.Payload)
			if err != nil {
				s.log.Error().Err(err).Msg("config decode failed")
				s.pubServiceState("idle", "config_decode_failed")
				continue
			}
			s.applyConfig(cfg)
			s.pubServiceState("ready", "configured")

		case m := <-s.ctrlSub.Channel():
			if s.reg == nil {
				s.replyErr(m, errcode.NotReady)
				continue
			}
			s.handleControl(m)
		}
	}
}

func (s *Service) applyConfig(cfg config.Config) {
	descs := descriptorsFromConfig(cfg)
	reg, err := BuildRegistry(descs, s.be, s.plat, s.log)
	if err != nil {
		// Per-instance failures were already logged; the survivors still
		// register and serve.
		s.log.Warn().Err(err).Msg("registry built with failures")
	}
	s.reg = reg
	for _, inst := range reg.Instances() {
		s.pubSubState(inst.Desc.Name, types.LevelOffline, "registered", nil)
	}
}

func (s *Service) handleControl(m *bus.Message) {
	// rproc/sub/<name>/control/<verb>
	if m.Topic.Len() < 5 {
		s.replyErr(m, errcode.InvalidTopic)
		return
	}
	name := m.Topic.At(2)
	verb := m.Topic.At(4)

	inst, ok := s.reg.ByName(name)
	if !ok {
		s.replyErr(m, errcode.UnknownSubsystem)
		return
	}

	req, code := asTransition(m.Payload)
	if code != "" {
		s.replyErr(m, code)
		return
	}

	switch verb {
	case "enable":
		s.doEnable(m, inst, req)
	case "disable":
		s.doDisable(m, inst, req)
	default:
		s.replyErr(m, errcode.Unsupported)
	}
}

func (s *Service) doEnable(m *bus.Message, inst *Instance, req types.TransitionRequest) {
	// The boot address is written before the cores leave reset.
	if req.BootAddr != nil && inst.Desc.BootSetter != nil {
		if err := inst.Desc.BootSetter.SetBootAddress(*req.BootAddr); err != nil {
			s.log.Error().Str("subsystem", inst.Desc.Name).Err(err).Msg("boot address write failed")
			s.pubSubState(inst.Desc.Name, types.LevelFailed, "boot_address_failed", err)
			s.replyErr(m, errcode.BackendFault)
			return
		}
	}

	if err := inst.Orch.Enable(req.Configure); err != nil {
		// The instance stays in its partial state; an explicit disable
		// restores invariants before a retry.
		s.pubSubState(inst.Desc.Name, types.LevelFailed, "enable_failed", err)
		s.replyErr(m, errcode.Of(err))
		return
	}
	s.pubSubState(inst.Desc.Name, types.LevelActive, "enabled", nil)
	s.replyOK(m)
}

func (s *Service) doDisable(m *bus.Message, inst *Instance, req types.TransitionRequest) {
	if err := inst.Orch.Disable(req.Configure); err != nil {
		s.pubSubState(inst.Desc.Name, types.LevelFailed, "disable_failed", err)
		s.replyErr(m, errcode.Of(err))
		return
	}
	s.pubSubState(inst.Desc.Name, types.LevelOffline, "disabled", nil)
	s.replyOK(m)
}

// -----------------------------------------------------------------------------
// Payload handling / replies / state
// -----------------------------------------------------------------------------

// asTransition accepts a typed request, a JSON-like map, or nil (defaults:
// configure=true).
func asTransition(payload any) (types.TransitionRequest, errcode.Code) {
	req := types.TransitionRequest{Configure: true}
	switch v := payload.(type) {
	case nil:
		return req, ""
	case types.TransitionRequest:
		return v, ""
	case *types.TransitionRequest:
		return *v, ""
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return req, errcode.InvalidPayload
		}
		if err := json.Unmarshal(b, &req); err != nil {
			return req, errcode.InvalidPayload
		}
		return req, ""
	default:
		return req, errcode.InvalidPayload
	}
}

func (s *Service) replyOK(m *bus.Message) {
	if m.CanReply() {
		s.conn.Reply(m, types.OKReply{OK: true}, false)
	}
}

func (s *Service) replyErr(m *bus.Message, code errcode.Code) {
	if !m.CanReply() {
		return
	}
	if code == "" {
		code = errcode.Error
	}
	s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(code)}, false)
}

func (s *Service) pubServiceState(level, status string) {
	s.conn.Publish(s.conn.NewMessage(
		topicServiceState(),
		types.ServiceState{Level: level, Status: status, TSms: nowMs()},
		true,
	))
}

func (s *Service) pubSubState(name, level, status string, err error) {
	st := types.SubsystemState{Level: level, Status: status, TSms: nowMs()}
	if err != nil {
		st.Error = string(errcode.Of(err))
	}
	s.conn.Publish(s.conn.NewMessage(subState(name), st, true))
}

func nowMs() int64 { return time.Now().UnixMilli() }

// descriptorsFromConfig maps deployment config onto descriptors. Validation
// happens at registry build.
func descriptorsFromConfig(cfg config.Config) []*Descriptor {
	descs := make([]*Descriptor, 0, len(cfg.Subsystems))
	for _, sc := range cfg.Subsystems {
		d := &Descriptor{
			ID:         types.SubsystemID(sc.ID),
			Name:       sc.Name,
			Shape:      types.Shape(sc.Shape),
			ResetLines: sc.ResetLines,
			Firmware:   sc.Firmware,
			Mailbox:    sc.Mailbox,
			Module:     sc.Module,
			ModuleOpt:  sc.ModuleOpt,
			IOMMU:      sc.IOMMU,
			Mem:        MemRegion{Base: sc.Mem.Base, Size: sc.Mem.Size},
		}
		for _, tc := range sc.Timers {
			d.Timers = append(d.Timers, TimerSpec{
				Cap:        types.TimerCap(tc.Cap),
				FallbackID: tc.FallbackID,
			})
		}
		descs = append(descs, d)
	}
	return descs
}
