// Package ws exposes the coordination core over a websocket endpoint:
// remote producers (AI controllers, network clients, test harnesses)
// submit motion intents and poll motion state as JSON messages.
package ws

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"github.com/younwookim/motioncore/internal/application/core"
	"github.com/younwookim/motioncore/internal/domain/motion"
	"github.com/younwookim/motioncore/internal/ecs"
)

// Server bridges websocket connections to the core. The core itself is
// single-threaded; mu serializes handler access against the tick loop,
// which must call Lock/Unlock around Tick via LockedTick.
type Server struct {
	mu       sync.Mutex
	core     *core.Core
	upgrader websocket.Upgrader
}

// NewServer creates a websocket front end for the core.
func NewServer(c *core.Core) *Server {
	return &Server{
		core: c,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// LockedTick runs one core tick under the server's lock. The owning
// loop calls this instead of core.Tick directly.
func (s *Server) LockedTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.core.Tick()
}

// Handle upgrades the connection and serves messages until it closes.
func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	slog.Info("client connected", "remote", conn.RemoteAddr())

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("client read failed", "remote", conn.RemoteAddr(), "error", err)
			}
			return
		}
		reply := s.handleMessage(data)
		if reply == nil {
			continue
		}
		if err := conn.WriteJSON(reply); err != nil {
			slog.Warn("client write failed", "remote", conn.RemoteAddr(), "error", err)
			return
		}
	}
}

func (s *Server) handleMessage(data []byte) any {
	msg, err := ParseMessage(data)
	if err != nil {
		return &ErrorMessage{Type: MessageTypeError, Message: err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := msg.(type) {
	case *SubmitMessage:
		return s.submit(m)
	case *QueryMessage:
		return s.query(ecs.EntityID(m.EntityID), nil)
	case *BlockedMessage:
		dir := mgl64.Vec2{m.Direction[0], m.Direction[1]}
		blocked := s.core.IsMovementBlocked(ecs.EntityID(m.EntityID), dir)
		return s.query(ecs.EntityID(m.EntityID), &blocked)
	case *ClearMessage:
		s.core.ClearEntityRequests(ecs.EntityID(m.EntityID))
		return nil
	case *StatsMessage:
		st := s.core.Statistics()
		return &StatsResultMessage{
			Type:       MessageTypeStats,
			Total:      st.Total,
			Successful: st.Successful,
			Failed:     st.Failed,
			Blocked:    st.Blocked,
			Conflicted: st.Conflicted,
			Active:     st.Active,
			Queued:     st.Queued,
		}
	default:
		return &ErrorMessage{Type: MessageTypeError, Message: "unhandled message"}
	}
}

func (s *Server) submit(m *SubmitMessage) any {
	t, ok := motion.TypeFromString(m.Motion)
	if !ok {
		return &ErrorMessage{Type: MessageTypeError, Message: "unknown motion kind " + m.Motion}
	}
	req := motion.NewRequest(
		ecs.EntityID(m.EntityID),
		t,
		mgl64.Vec2{m.Direction[0], m.Direction[1]},
		m.Magnitude,
		priorityFromString(m.Priority),
		s.core.Now(),
	)
	resp := s.core.Submit(req)
	return &ResponseMessage{
		Type:     MessageTypeResponse,
		EntityID: m.EntityID,
		Outcome:  resp.Outcome.String(),
		Reason:   resp.Reason,
		Position: [2]float64{resp.ActualPosition[0], resp.ActualPosition[1]},
		Velocity: [2]float64{resp.ActualVelocity[0], resp.ActualVelocity[1]},
		Grounded: resp.IsGrounded,
	}
}

func (s *Server) query(id ecs.EntityID, blocked *bool) any {
	q, err := s.core.QueryMotion(id)
	if err != nil {
		return &ErrorMessage{Type: MessageTypeError, Message: err.Error()}
	}
	return &MotionMessage{
		Type:                MessageTypeMotion,
		EntityID:            int64(id),
		Position:            [2]float64{q.Position[0], q.Position[1]},
		Velocity:            [2]float64{q.Velocity[0], q.Velocity[1]},
		Grounded:            q.IsGrounded,
		EffectivelyGrounded: q.IsEffectivelyGrounded,
		Blocked:             blocked,
	}
}

func priorityFromString(s string) motion.Priority {
	switch s {
	case "low":
		return motion.PriorityLow
	case "high":
		return motion.PriorityHigh
	case "critical":
		return motion.PriorityCritical
	default:
		return motion.PriorityNormal
	}
}
