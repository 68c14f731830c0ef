package game

import (
	"time"

	"github.com/tmwgo/server/internal/core/tick"
	"github.com/tmwgo/server/internal/net"
	"github.com/tmwgo/server/internal/net/packet"
	"github.com/tmwgo/server/internal/world"
	"go.uber.org/zap"
)

// InputSystem drains packet queues from all sessions and dispatches them
// through the packet registry. Phase 0 (Input).
type InputSystem struct {
	netServer  *net.Server
	registry   *packet.Registry
	deps       *Deps
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(netServer *net.Server, registry *packet.Registry, deps *Deps, maxPerTick int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		netServer:  netServer,
		registry:   registry,
		deps:       deps,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() tick.Phase { return tick.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.netServer.NewSessions():
			s.deps.Sessions.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	// Drain packets from each session (up to maxPerTick per session)
	for id, sess := range s.deps.Sessions.Raw() {
		if sess.IsClosed() {
			s.handleDisconnect(sess)
			s.deps.Sessions.Remove(id)
			continue
		}

		for i := 0; i < s.maxPerTick; i++ {
			select {
			case data := <-sess.InQueue:
				if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
					s.log.Debug("packet dispatch error",
						zap.Uint64("session", sess.ID),
						zap.Error(err),
					)
				}
			default:
				goto nextSession
			}
		}
	nextSession:
	}
}

// handleDisconnect removes the character from the world. Its handles go
// stale before the broadcast, so a script running later this tick cannot
// touch the departed character.
func (s *InputSystem) handleDisconnect(sess *net.Session) {
	chr := s.deps.World.RemoveCharacter(sess.ID)
	if chr == nil {
		return
	}
	s.log.Info("character left world",
		zap.Uint64("session", sess.ID),
		zap.String("name", chr.Name),
	)
	w := packet.NewWriterWithOpcode(packet.GPMSG_BEING_LEAVE)
	w.WriteD(chr.ID)
	s.deps.Sessions.Broadcast(w.Bytes())
}

// ScriptSystem runs every scripted NPC's update entry point once per tick.
// Phase 1 (Update).
type ScriptSystem struct {
	manager *Manager
}

func NewScriptSystem(m *Manager) *ScriptSystem {
	return &ScriptSystem{manager: m}
}

func (s *ScriptSystem) Phase() tick.Phase { return tick.PhaseUpdate }

func (s *ScriptSystem) Update(_ time.Duration) {
	s.manager.UpdateNpcs()
}

// OutputSystem applies pending warps and flushes buffered packets to the
// writer goroutines. Phase 2 (Output).
type OutputSystem struct {
	deps *Deps
}

func NewOutputSystem(deps *Deps) *OutputSystem {
	return &OutputSystem{deps: deps}
}

func (s *OutputSystem) Phase() tick.Phase { return tick.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	s.deps.World.AllCharacters(func(chr *world.Character) {
		if chr.HasWarp {
			chr.X = chr.WarpX
			chr.Y = chr.WarpY
			chr.HasWarp = false
		}
	})
	s.deps.Sessions.ForEach(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

// CleanupSystem closes scripts whose NPCs were removed during the tick.
// Phase 3 (Cleanup).
type CleanupSystem struct {
	manager *Manager
}

func NewCleanupSystem(m *Manager) *CleanupSystem {
	return &CleanupSystem{manager: m}
}

func (s *CleanupSystem) Phase() tick.Phase { return tick.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.manager.Sweep()
}
