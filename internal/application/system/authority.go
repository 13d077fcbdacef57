package system

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/younwookim/motioncore/internal/domain/collision"
	"github.com/younwookim/motioncore/internal/ecs"
	"github.com/younwookim/motioncore/internal/infrastructure/config"
)

// ErrUnknownEntity is returned for entities not registered with the authority.
var ErrUnknownEntity = errors.New("unknown entity")

// Body describes the physical parameters of an entity at registration time.
type Body struct {
	Position          mgl64.Vec2
	Mass              float64
	GravityScale      float64
	Friction          float64
	Restitution       float64
	Static            bool
	AffectedByGravity bool
}

// DefaultBody returns a unit-mass dynamic body at the given position.
func DefaultBody(pos mgl64.Vec2) Body {
	return Body{
		Position:          pos,
		Mass:              1,
		GravityScale:      1,
		Friction:          1,
		Restitution:       0,
		AffectedByGravity: true,
	}
}

// Snapshot is a read-only copy of an entity's physics state. Every
// component outside the authority sees motion state only through these.
type Snapshot struct {
	EntityID          ecs.EntityID
	Position          mgl64.Vec2
	Velocity          mgl64.Vec2
	Acceleration      mgl64.Vec2
	AccumulatedForces mgl64.Vec2
	Mass              float64
	GravityScale      float64
	Friction          float64
	Restitution       float64
	IsStatic          bool
	AffectedByGravity bool
	IsGrounded        bool
	WasGrounded       bool
	ActiveContacts    []collision.Contact
	ContactPointCount int
	LastUpdateTime    time.Time
	UpdateCount       uint64
}

// physicsState is the mutable record behind a Snapshot. It is unexported:
// the only code that can write position/velocity/forces lives in this file.
type physicsState struct {
	id                ecs.EntityID
	position          mgl64.Vec2
	velocity          mgl64.Vec2
	acceleration      mgl64.Vec2
	accumulatedForces mgl64.Vec2
	mass              float64
	gravityScale      float64
	friction          float64
	restitution       float64
	isStatic          bool
	affectedByGravity bool
	isGrounded        bool
	wasGrounded       bool
	contacts          []collision.Contact
	lastUpdateTime    time.Time
	updateCount       uint64
}

// Authority is the single owner of all entity motion state. Motion calls
// change velocity directly and clear the force accumulator before
// returning, so adjustments can never carry across frames and re-apply
// themselves; gravity, friction and position advance once per tick in
// Step regardless of how many requests ran.
type Authority struct {
	cfg    config.PhysicsSettings
	states map[ecs.EntityID]*physicsState
	now    func() time.Time
}

// NewAuthority creates an authority with the given physics settings.
func NewAuthority(cfg config.PhysicsSettings) *Authority {
	return &Authority{
		cfg:    cfg,
		states: make(map[ecs.EntityID]*physicsState),
		now:    time.Now,
	}
}

// SetClock overrides the authority's time source.
func (a *Authority) SetClock(now func() time.Time) {
	a.now = now
}

// Register adds an entity to the authority's table.
func (a *Authority) Register(id ecs.EntityID, body Body) error {
	if _, ok := a.states[id]; ok {
		return fmt.Errorf("entity %d already registered", id)
	}
	mass := body.Mass
	if mass <= 0 {
		mass = a.cfg.DefaultMass
	}
	a.states[id] = &physicsState{
		id:                id,
		position:          body.Position,
		mass:              mass,
		gravityScale:      body.GravityScale,
		friction:          body.Friction,
		restitution:       body.Restitution,
		isStatic:          body.Static,
		affectedByGravity: body.AffectedByGravity,
		lastUpdateTime:    a.now(),
	}
	return nil
}

// Remove drops an entity from the table. Removing twice is a no-op.
func (a *Authority) Remove(id ecs.EntityID) {
	delete(a.states, id)
}

// Has reports whether the entity is registered.
func (a *Authority) Has(id ecs.EntityID) bool {
	_, ok := a.states[id]
	return ok
}

// RequestMovement sets the entity's velocity to speed along dir. Only the
// component along dir changes, so a falling entity keeps its fall velocity
// while being steered horizontally.
func (a *Authority) RequestMovement(id ecs.EntityID, dir mgl64.Vec2, speed float64) (Snapshot, error) {
	st, ok := a.states[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("request movement: %w (id=%d)", ErrUnknownEntity, id)
	}
	if st.isStatic {
		return st.snapshot(), nil
	}
	if l := dir.Len(); l > 0 {
		dir = dir.Mul(1 / l)
	}
	along := st.velocity.Dot(dir)
	st.velocity = st.velocity.Add(dir.Mul(speed - along))
	a.settle(st)
	return st.snapshot(), nil
}

// RequestJump applies an instantaneous upward velocity change. Grounding
// eligibility (including coyote time) is the processor's concern; the
// authority only executes.
func (a *Authority) RequestJump(id ecs.EntityID, force float64) (Snapshot, error) {
	st, ok := a.states[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("request jump: %w (id=%d)", ErrUnknownEntity, id)
	}
	if st.isStatic {
		return st.snapshot(), nil
	}
	st.velocity[1] = -force / st.mass
	st.isGrounded = false
	a.settle(st)
	return st.snapshot(), nil
}

// RequestStop halts the entity: velocity and any pending forces go to zero.
func (a *Authority) RequestStop(id ecs.EntityID) (Snapshot, error) {
	st, ok := a.states[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("request stop: %w (id=%d)", ErrUnknownEntity, id)
	}
	if st.isStatic {
		return st.snapshot(), nil
	}
	st.velocity = mgl64.Vec2{}
	a.settle(st)
	return st.snapshot(), nil
}

// RequestImpulse applies an instantaneous momentum change.
func (a *Authority) RequestImpulse(id ecs.EntityID, impulse mgl64.Vec2) (Snapshot, error) {
	st, ok := a.states[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("request impulse: %w (id=%d)", ErrUnknownEntity, id)
	}
	if st.isStatic {
		return st.snapshot(), nil
	}
	st.velocity = st.velocity.Add(impulse.Mul(1 / st.mass))
	a.settle(st)
	return st.snapshot(), nil
}

// ResolvePenetration moves an entity to the position the collision
// detector computed after pushing it back out of solid geometry. Velocity
// is untouched; SetContacts cancels the components pointing into surfaces.
func (a *Authority) ResolvePenetration(id ecs.EntityID, pos mgl64.Vec2) error {
	st, ok := a.states[id]
	if !ok {
		return fmt.Errorf("resolve penetration: %w (id=%d)", ErrUnknownEntity, id)
	}
	if st.isStatic {
		return nil
	}
	st.position = pos
	return nil
}

// Position returns the entity's authoritative position.
func (a *Authority) Position(id ecs.EntityID) (mgl64.Vec2, error) {
	st, ok := a.states[id]
	if !ok {
		return mgl64.Vec2{}, fmt.Errorf("position: %w (id=%d)", ErrUnknownEntity, id)
	}
	return st.position, nil
}

// Velocity returns the entity's authoritative velocity.
func (a *Authority) Velocity(id ecs.EntityID) (mgl64.Vec2, error) {
	st, ok := a.states[id]
	if !ok {
		return mgl64.Vec2{}, fmt.Errorf("velocity: %w (id=%d)", ErrUnknownEntity, id)
	}
	return st.velocity, nil
}

// IsGrounded reports the raw (non-coyote) grounded flag.
func (a *Authority) IsGrounded(id ecs.EntityID) (bool, error) {
	st, ok := a.states[id]
	if !ok {
		return false, fmt.Errorf("is grounded: %w (id=%d)", ErrUnknownEntity, id)
	}
	return st.isGrounded, nil
}

// Snapshot returns the full read-only state for an entity.
func (a *Authority) Snapshot(id ecs.EntityID) (Snapshot, error) {
	st, ok := a.states[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("snapshot: %w (id=%d)", ErrUnknownEntity, id)
	}
	return st.snapshot(), nil
}

// SetContacts installs this tick's contact list for an entity and derives
// the grounded flag. Returns whether the entity landed or left the ground
// on this update.
func (a *Authority) SetContacts(id ecs.EntityID, contacts []collision.Contact) (landed, airborne bool, err error) {
	st, ok := a.states[id]
	if !ok {
		return false, false, fmt.Errorf("set contacts: %w (id=%d)", ErrUnknownEntity, id)
	}
	st.contacts = append(st.contacts[:0], contacts...)

	grounded := false
	for _, c := range contacts {
		if c.Active && c.Kind == collision.KindGround {
			grounded = true
			break
		}
	}
	st.wasGrounded = st.isGrounded
	st.isGrounded = grounded
	if grounded && st.velocity[1] > 0 {
		// Landing kills downward velocity; restitution bounces a share back.
		st.velocity[1] = -st.velocity[1] * st.restitution
	}
	for _, c := range contacts {
		if !c.Active {
			continue
		}
		// Stop dead against opposing walls and ceilings so velocity does
		// not keep winding up against a surface across frames.
		if (c.Kind == collision.KindWall || c.Kind == collision.KindCeiling) && c.Normal.Dot(st.velocity) < 0 {
			st.velocity = st.velocity.Sub(c.Normal.Mul(c.Normal.Dot(st.velocity)))
		}
	}
	return grounded && !st.wasGrounded, !grounded && st.wasGrounded, nil
}

// Step integrates motion (gravity, friction, position) for every dynamic
// entity. This is the only place a tick advances position, so interleaved
// requests can never integrate an entity twice in one frame. Called once
// per tick by the coordinator before queued requests are drained.
func (a *Authority) Step(dt float64) {
	for _, st := range a.states {
		a.integrate(st, dt)
	}
}

// settle finishes a direct velocity change by clamping the result and
// clearing the force accumulator. Position is left for Step.
func (a *Authority) settle(st *physicsState) {
	st.velocity[0] = clamp(st.velocity[0], a.cfg.MaxSpeedClamp)
	st.velocity[1] = clamp(st.velocity[1], a.cfg.MaxSpeedClamp)
	st.accumulatedForces = mgl64.Vec2{}
	st.lastUpdateTime = a.now()
	st.updateCount++
}

// integrate advances one entity by dt and unconditionally clears the
// force accumulator. Every mutating call path clears it the same way,
// which is what makes cross-frame force accumulation structurally
// impossible.
func (a *Authority) integrate(st *physicsState, dt float64) {
	if st.isStatic {
		st.accumulatedForces = mgl64.Vec2{}
		st.lastUpdateTime = a.now()
		st.updateCount++
		return
	}

	forces := mgl64.Vec2{
		clamp(st.accumulatedForces[0], a.cfg.MaxForceClamp),
		clamp(st.accumulatedForces[1], a.cfg.MaxForceClamp),
	}
	accel := forces.Mul(1 / st.mass)
	if st.affectedByGravity && !st.isGrounded {
		accel[1] += a.cfg.Gravity * st.gravityScale
	}

	st.velocity = st.velocity.Add(accel.Mul(dt))

	if st.isGrounded && st.friction > 0 {
		damp := 1 - a.cfg.GroundFriction*st.friction*dt
		if damp < 0 {
			damp = 0
		}
		st.velocity[0] *= damp
	}

	if st.velocity[1] > a.cfg.MaxFallSpeed {
		st.velocity[1] = a.cfg.MaxFallSpeed
	}
	st.velocity[0] = clamp(st.velocity[0], a.cfg.MaxSpeedClamp)
	st.velocity[1] = clamp(st.velocity[1], a.cfg.MaxSpeedClamp)

	st.position = st.position.Add(st.velocity.Mul(dt))
	st.acceleration = accel

	// The accumulation-prevention contract: nothing survives the tick.
	st.accumulatedForces = mgl64.Vec2{}
	st.lastUpdateTime = a.now()
	st.updateCount++
}

func (st *physicsState) snapshot() Snapshot {
	contacts := make([]collision.Contact, len(st.contacts))
	copy(contacts, st.contacts)
	active := 0
	for _, c := range contacts {
		if c.Active {
			active++
		}
	}
	return Snapshot{
		EntityID:          st.id,
		Position:          st.position,
		Velocity:          st.velocity,
		Acceleration:      st.acceleration,
		AccumulatedForces: st.accumulatedForces,
		Mass:              st.mass,
		GravityScale:      st.gravityScale,
		Friction:          st.friction,
		Restitution:       st.restitution,
		IsStatic:          st.isStatic,
		AffectedByGravity: st.affectedByGravity,
		IsGrounded:        st.isGrounded,
		WasGrounded:       st.wasGrounded,
		ActiveContacts:    contacts,
		ContactPointCount: active,
		LastUpdateTime:    st.lastUpdateTime,
		UpdateCount:       st.updateCount,
	}
}

func clamp(v, bound float64) float64 {
	return math.Max(-bound, math.Min(bound, v))
}
