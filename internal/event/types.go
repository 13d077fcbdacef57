package event

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/younwookim/motioncore/internal/ecs"
)

type MotionBlockedEvent struct {
	EntityID  ecs.EntityID
	Direction mgl64.Vec2
}

type GroundedEvent struct {
	EntityID ecs.EntityID
	Position mgl64.Vec2
}

type RequestRejectedEvent struct {
	EntityID ecs.EntityID
	Type     string
	Rule     string
	Message  string
}
