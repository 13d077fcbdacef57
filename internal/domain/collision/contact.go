package collision

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/younwookim/motioncore/internal/ecs"
)

// Kind classifies what an entity is touching.
type Kind int

const (
	KindWall Kind = iota
	KindCeiling
	KindGround
	KindTrigger
	KindEntity
	KindOther
)

// String returns the string representation of the contact kind
func (k Kind) String() string {
	switch k {
	case KindWall:
		return "wall"
	case KindCeiling:
		return "ceiling"
	case KindGround:
		return "ground"
	case KindTrigger:
		return "trigger"
	case KindEntity:
		return "entity"
	default:
		return "other"
	}
}

// Contact records one active collision against an entity.
// Contacts are produced by the collision detector each tick and consumed
// read-only by the collision ledger; nothing else mutates them.
type Contact struct {
	ID     int64
	Kind   Kind
	Normal mgl64.Vec2 // unit vector pointing away from the surface
	Point  mgl64.Vec2
	Active bool

	// Other is the touched entity for KindEntity contacts, 0 otherwise.
	Other ecs.EntityID
}

// Opposes reports whether moving along dir pushes into this contact's
// surface. A zero dot product (sliding parallel) does not oppose.
func (c Contact) Opposes(dir mgl64.Vec2) bool {
	return c.Normal.Dot(dir) < 0
}
