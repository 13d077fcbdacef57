// Package motion defines the request/response protocol between movement
// intent producers (input, AI, scripted effects) and the physics authority.
package motion

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/younwookim/motioncore/internal/ecs"
)

// Type identifies the kind of movement intent.
type Type int

const (
	TypeWalk Type = iota
	TypeDash
	TypeJump
	TypeStop
	TypeImpulse
)

// String returns the string representation of the request type
func (t Type) String() string {
	switch t {
	case TypeWalk:
		return "walk"
	case TypeDash:
		return "dash"
	case TypeJump:
		return "jump"
	case TypeStop:
		return "stop"
	case TypeImpulse:
		return "impulse"
	default:
		return "unknown"
	}
}

// TypeFromString parses a request type name as used on the wire.
func TypeFromString(s string) (Type, bool) {
	switch s {
	case "walk":
		return TypeWalk, true
	case "dash":
		return TypeDash, true
	case "jump":
		return TypeJump, true
	case "stop":
		return TypeStop, true
	case "impulse":
		return TypeImpulse, true
	}
	return 0, false
}

// Priority orders competing requests for one entity.
// Higher values win conflicts against the active request.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String returns the string representation of the priority
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Request is an immutable movement intent for one entity. Adapters create
// one per expressed intent; the processor consumes it exactly once.
type Request struct {
	EntityID  ecs.EntityID
	Type      Type
	Direction mgl64.Vec2 // unit vector, or zero for Stop
	Magnitude float64    // speed or force, depending on Type
	Priority  Priority
	Timestamp time.Time
}

// NewRequest builds a request stamped with the given time. Direction is
// stored as given; the validator checks the raw length and dispatch
// normalizes through NormalizedDirection.
func NewRequest(id ecs.EntityID, t Type, dir mgl64.Vec2, magnitude float64, prio Priority, now time.Time) Request {
	return Request{
		EntityID:  id,
		Type:      t,
		Direction: dir,
		Magnitude: magnitude,
		Priority:  prio,
		Timestamp: now,
	}
}

// Age returns how long ago the request was created.
func (r Request) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}

// NormalizedDirection returns the direction scaled to unit length.
// A zero direction stays zero.
func (r Request) NormalizedDirection() mgl64.Vec2 {
	l := r.Direction.Len()
	if l == 0 {
		return mgl64.Vec2{}
	}
	return r.Direction.Mul(1 / l)
}

// Finite reports whether all numeric fields are finite.
func (r Request) Finite() bool {
	return finite(r.Direction[0]) && finite(r.Direction[1]) && finite(r.Magnitude)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
