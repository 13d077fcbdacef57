package ecs

import "github.com/go-gl/mathgl/mgl64"

// EntityID is a unique identifier for an entity (never recycled).
// Signed so adapters can pass through untrusted ids and let the
// validator reject negatives instead of silently wrapping them.
type EntityID int64

// Collider is an axis-aligned box centered on the entity position.
type Collider struct {
	Width  float64
	Height float64
}

// HalfExtents returns the collider's half width and half height.
func (c Collider) HalfExtents() mgl64.Vec2 {
	return mgl64.Vec2{c.Width / 2, c.Height / 2}
}

// World is the entity arena: stable ids plus the component tables that
// are not owned by any single system. Motion state deliberately lives
// elsewhere; the physics authority holds its own table.
type World struct {
	nextID EntityID

	// Components
	Collider map[EntityID]Collider

	// Tags
	IsStatic map[EntityID]struct{}

	ids          []EntityID
	destroyHooks []func(EntityID)
}

// NewWorld creates a new empty world
func NewWorld() *World {
	return &World{
		nextID:   1, // 0 is "nil"
		Collider: make(map[EntityID]Collider),
		IsStatic: make(map[EntityID]struct{}),
	}
}

// NewEntity returns a new unique entity ID
func (w *World) NewEntity() EntityID {
	id := w.nextID
	w.nextID++
	w.ids = append(w.ids, id)
	return id
}

// CreateBody creates an entity with a collider
func (w *World) CreateBody(width, height float64, static bool) EntityID {
	id := w.NewEntity()
	w.Collider[id] = Collider{Width: width, Height: height}
	if static {
		w.IsStatic[id] = struct{}{}
	}
	return id
}

// DestroyEntity removes all components for an entity and notifies the
// registered destroy hooks so dependent tables (physics state, request
// queues, validator history) are purged in the same call.
func (w *World) DestroyEntity(id EntityID) {
	if _, ok := w.Collider[id]; !ok {
		return
	}
	delete(w.Collider, id)
	delete(w.IsStatic, id)
	for i, eid := range w.ids {
		if eid == id {
			w.ids = append(w.ids[:i], w.ids[i+1:]...)
			break
		}
	}
	for _, hook := range w.destroyHooks {
		hook(id)
	}
}

// Exists checks if an entity has a Collider component
func (w *World) Exists(id EntityID) bool {
	_, ok := w.Collider[id]
	return ok
}

// Entities returns all live entity ids in creation order.
func (w *World) Entities() []EntityID {
	out := make([]EntityID, len(w.ids))
	copy(out, w.ids)
	return out
}

// OnDestroy registers a hook invoked whenever an entity is destroyed.
func (w *World) OnDestroy(hook func(EntityID)) {
	w.destroyHooks = append(w.destroyHooks, hook)
}
