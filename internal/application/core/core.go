// Package core wires the validator, processor, physics authority and
// collision ledgers into the narrow surface game entities talk to:
// submit a motion intent, query motion state, tick once per frame.
package core

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/younwookim/motioncore/internal/application/system"
	"github.com/younwookim/motioncore/internal/domain/collision"
	"github.com/younwookim/motioncore/internal/domain/motion"
	"github.com/younwookim/motioncore/internal/ecs"
	"github.com/younwookim/motioncore/internal/event"
	"github.com/younwookim/motioncore/internal/infrastructure/config"
)

// ContactSource is the external collision-detection collaborator: each
// tick it resolves any overlap with solid geometry and supplies the
// contacts currently touching an entity.
type ContactSource interface {
	// Depenetrate returns the corrected position for a collider that
	// integration carried inside solid geometry; a legal position comes
	// back unchanged.
	Depenetrate(id ecs.EntityID, pos mgl64.Vec2, col ecs.Collider) mgl64.Vec2
	ContactsFor(id ecs.EntityID, pos mgl64.Vec2, col ecs.Collider) []collision.Contact
}

// Tracer receives every processed response; see the trace package.
type Tracer interface {
	Record(tick uint64, resp motion.Response)
}

// MotionQuery is the read-back view consumers poll.
type MotionQuery struct {
	Position              mgl64.Vec2
	Velocity              mgl64.Vec2
	IsGrounded            bool
	IsEffectivelyGrounded bool
}

// Core is the coordination facade. It is single-threaded by contract:
// all calls happen on the game loop goroutine, which is what serializes
// access to per-entity state.
type Core struct {
	cfg       *config.CoreConfig
	world     *ecs.World
	bus       *event.Bus
	detector  ContactSource
	authority *system.Authority
	validator *system.Validator
	ledgers   *system.LedgerSet
	processor *system.Processor
	tracer    Tracer

	tick uint64
	now  func() time.Time
}

// New builds a core over the given world and contact source. Destroying
// a world entity purges its physics state, ledger, queues and validator
// history through the arena's destroy hook.
func New(cfg *config.CoreConfig, world *ecs.World, bus *event.Bus, detector ContactSource) *Core {
	authority := system.NewAuthority(cfg.Physics)
	validator := system.NewValidator(cfg.Validation)
	ledgers := system.NewLedgerSet(time.Duration(cfg.Grounding.CoyoteTimeMS) * time.Millisecond)
	processor := system.NewProcessor(cfg.Queue, validator, authority, ledgers, bus)

	c := &Core{
		cfg:       cfg,
		world:     world,
		bus:       bus,
		detector:  detector,
		authority: authority,
		validator: validator,
		ledgers:   ledgers,
		processor: processor,
		now:       time.Now,
	}
	world.OnDestroy(func(id ecs.EntityID) {
		c.processor.ClearEntityRequests(id)
		c.validator.Forget(id)
		c.ledgers.Remove(id)
		c.authority.Remove(id)
	})
	return c
}

// SetClock overrides the shared time source for the core and every
// subsystem it owns.
func (c *Core) SetClock(now func() time.Time) {
	c.now = now
	c.validator.SetClock(now)
	c.processor.SetClock(now)
	c.authority.SetClock(now)
}

// SetTracer installs an optional response tracer.
func (c *Core) SetTracer(t Tracer) {
	c.tracer = t
}

// Spawn creates an entity with a collider and registers its body with
// the physics authority.
func (c *Core) Spawn(pos mgl64.Vec2, width, height float64, static bool) (ecs.EntityID, error) {
	id := c.world.CreateBody(width, height, static)
	body := system.DefaultBody(pos)
	body.Static = static
	if static {
		body.AffectedByGravity = false
	}
	if err := c.authority.Register(id, body); err != nil {
		c.world.DestroyEntity(id)
		return 0, fmt.Errorf("spawn: %w", err)
	}
	return id, nil
}

// Submit routes one motion request through validation, conflict
// resolution and dispatch. Safe to call at any point in the frame.
func (c *Core) Submit(req motion.Request) motion.Response {
	resp := c.processor.ProcessRequest(req)
	if c.tracer != nil {
		c.tracer.Record(c.tick, resp)
	}
	return resp
}

// Tick advances one frame: refresh contacts, integrate free motion,
// sync the collision ledgers, then drain the per-entity request queues.
// New requests submitted after Tick are dispatched within the same frame.
func (c *Core) Tick() {
	c.tick++

	for _, id := range c.world.Entities() {
		if !c.authority.Has(id) {
			continue
		}
		pos, err := c.authority.Position(id)
		if err != nil {
			continue
		}
		col := c.world.Collider[id]
		// Push entities that last tick's integration left inside a tile
		// back onto the surface before contacts are derived; otherwise a
		// landing reads as embedded with phantom walls on both sides.
		if resolved := c.detector.Depenetrate(id, pos, col); resolved != pos {
			if err := c.authority.ResolvePenetration(id, resolved); err == nil {
				pos = resolved
			}
		}
		contacts := c.detector.ContactsFor(id, pos, col)
		landed, airborne, err := c.authority.SetContacts(id, contacts)
		if err != nil {
			continue
		}
		if landed {
			c.bus.Publish(event.EventEntityLanded, event.GroundedEvent{EntityID: id, Position: pos})
		}
		if airborne {
			c.bus.Publish(event.EventEntityAirborne, event.GroundedEvent{EntityID: id, Position: pos})
		}
	}

	c.authority.Step(c.cfg.Physics.Timestep)

	for _, id := range c.world.Entities() {
		if snap, err := c.authority.Snapshot(id); err == nil {
			c.ledgers.Sync(snap)
		}
	}

	c.processor.ProcessQueued()
}

// QueryMotion returns the authoritative motion view for an entity.
func (c *Core) QueryMotion(id ecs.EntityID) (MotionQuery, error) {
	snap, err := c.authority.Snapshot(id)
	if err != nil {
		return MotionQuery{}, err
	}
	return MotionQuery{
		Position:              snap.Position,
		Velocity:              snap.Velocity,
		IsGrounded:            snap.IsGrounded,
		IsEffectivelyGrounded: c.ledgers.For(id).IsEffectivelyGrounded(c.now()),
	}, nil
}

// IsMovementBlocked reports whether moving along dir would push the
// entity into an active wall or ceiling contact.
func (c *Core) IsMovementBlocked(id ecs.EntityID, dir mgl64.Vec2) bool {
	return c.ledgers.For(id).IsMovementBlocked(dir)
}

// Ledger exposes the read-only contact views for an entity.
func (c *Core) Ledger(id ecs.EntityID) *system.Ledger {
	return c.ledgers.For(id)
}

// ClearEntityRequests cancels the entity's active and queued requests.
func (c *Core) ClearEntityRequests(id ecs.EntityID) {
	c.processor.ClearEntityRequests(id)
}

// Statistics returns the processor's running counters.
func (c *Core) Statistics() system.Statistics {
	return c.processor.Statistics()
}

// Now returns the core's clock reading; adapters use it to stamp requests.
func (c *Core) Now() time.Time {
	return c.now()
}
