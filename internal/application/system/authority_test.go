package system

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/younwookim/motioncore/internal/domain/collision"
	"github.com/younwookim/motioncore/internal/ecs"
	"github.com/younwookim/motioncore/internal/infrastructure/config"
)

func createTestAuthority(t *testing.T) (*Authority, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	a := NewAuthority(config.Default().Physics)
	a.SetClock(clock.now)
	return a, clock
}

func registerDynamic(t *testing.T, a *Authority, id ecs.EntityID, pos mgl64.Vec2) {
	t.Helper()
	require.NoError(t, a.Register(id, DefaultBody(pos)))
}

func ground(t *testing.T, a *Authority, id ecs.EntityID) {
	t.Helper()
	_, _, err := a.SetContacts(id, []collision.Contact{
		{ID: 1, Kind: collision.KindGround, Normal: mgl64.Vec2{0, -1}, Active: true},
	})
	require.NoError(t, err)
}

func TestAuthority_RegisterRejectsDuplicates(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})

	err := a.Register(1, DefaultBody(mgl64.Vec2{}))
	require.Error(t, err)
	assert.True(t, a.Has(1))
}

func TestAuthority_UnknownEntityErrors(t *testing.T) {
	a, _ := createTestAuthority(t)

	_, err := a.RequestMovement(7, mgl64.Vec2{1, 0}, 100)
	require.ErrorIs(t, err, ErrUnknownEntity)
	_, err = a.RequestJump(7, 300)
	require.ErrorIs(t, err, ErrUnknownEntity)
	_, err = a.RequestStop(7)
	require.ErrorIs(t, err, ErrUnknownEntity)
	_, err = a.RequestImpulse(7, mgl64.Vec2{1, 0})
	require.ErrorIs(t, err, ErrUnknownEntity)
	err = a.ResolvePenetration(7, mgl64.Vec2{})
	require.ErrorIs(t, err, ErrUnknownEntity)
	_, err = a.Snapshot(7)
	require.ErrorIs(t, err, ErrUnknownEntity)
}

func TestAuthority_MovementReachesTargetSpeed(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})
	ground(t, a, 1)

	snap, err := a.RequestMovement(1, mgl64.Vec2{1, 0}, 100)
	require.NoError(t, err)
	assert.InDelta(t, 100, snap.Velocity[0], 1e-9)
	assert.InDelta(t, 0, snap.Velocity[1], 1e-9)

	// Repeating the same request holds the speed instead of stacking it.
	snap, err = a.RequestMovement(1, mgl64.Vec2{1, 0}, 100)
	require.NoError(t, err)
	assert.InDelta(t, 100, snap.Velocity[0], 1e-9)
}

func TestAuthority_MovementPreservesCrossAxisVelocity(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})

	// Falling entity steered sideways: only the component along the
	// requested direction changes, the fall velocity is kept.
	snap, err := a.RequestImpulse(1, mgl64.Vec2{0, 120})
	require.NoError(t, err)
	require.InDelta(t, 120, snap.Velocity[1], 1e-9)

	snap, err = a.RequestMovement(1, mgl64.Vec2{1, 0}, 100)
	require.NoError(t, err)
	assert.InDelta(t, 100, snap.Velocity[0], 1e-9)
	assert.InDelta(t, 120, snap.Velocity[1], 1e-9)
}

func TestAuthority_MovementAppliesLegalSpeedsExactly(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})
	ground(t, a, 1)

	// The validator's upper walk and dash magnitudes must come out of the
	// authority untrimmed, including a full dash reversal.
	snap, err := a.RequestMovement(1, mgl64.Vec2{1, 0}, 500)
	require.NoError(t, err)
	assert.InDelta(t, 500, snap.Velocity[0], 1e-9)

	_, err = a.RequestImpulse(1, mgl64.Vec2{-1500, 0})
	require.NoError(t, err)
	snap, err = a.RequestMovement(1, mgl64.Vec2{1, 0}, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 1000, snap.Velocity[0], 1e-9)
}

func TestAuthority_RequestsLeaveIntegrationToStep(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{10, 20})
	ground(t, a, 1)

	cfg := config.Default().Physics

	// However many requests land within a frame, position and gravity
	// advance only in Step, exactly once per tick.
	for i := 0; i < 4; i++ {
		snap, err := a.RequestMovement(1, mgl64.Vec2{1, 0}, 100)
		require.NoError(t, err)
		assert.Equal(t, mgl64.Vec2{10, 20}, snap.Position)
	}

	damp := 1 - cfg.GroundFriction*cfg.Timestep
	perTick := 100 * damp * cfg.Timestep
	for i := 0; i < 30; i++ {
		_, err := a.RequestMovement(1, mgl64.Vec2{1, 0}, 100)
		require.NoError(t, err)
		a.Step(cfg.Timestep)
	}
	pos, err := a.Position(1)
	require.NoError(t, err)
	assert.InDelta(t, 10+30*perTick, pos[0], 1e-9)
	assert.LessOrEqual(t, pos[0]-10, 100*30*cfg.Timestep, "displacement stays under the speed ceiling")
}

func TestAuthority_ForcesNeverSurviveTheCall(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})
	ground(t, a, 1)

	snap, err := a.RequestMovement(1, mgl64.Vec2{1, 0}, 100)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec2{}, snap.AccumulatedForces)

	snap, err = a.RequestImpulse(1, mgl64.Vec2{50, 0})
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec2{}, snap.AccumulatedForces)

	a.Step(config.Default().Physics.Timestep)
	snap, err = a.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec2{}, snap.AccumulatedForces)
}

func TestAuthority_JumpSetsUpwardVelocity(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{0, 100})
	ground(t, a, 1)

	snap, err := a.RequestJump(1, 300)
	require.NoError(t, err)
	assert.False(t, snap.IsGrounded)
	// Jumping changes velocity instantly; position advances in Step.
	assert.InDelta(t, -300, snap.Velocity[1], 1e-9)
	assert.InDelta(t, 100, snap.Position[1], 1e-9)

	dt := config.Default().Physics.Timestep
	a.Step(dt)
	pos, err := a.Position(1)
	require.NoError(t, err)
	assert.Less(t, pos[1], 100.0, "upward motion decreases y")
}

func TestAuthority_StopZeroesMotion(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})
	ground(t, a, 1)

	_, err := a.RequestMovement(1, mgl64.Vec2{1, 0}, 300)
	require.NoError(t, err)

	snap, err := a.RequestStop(1)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec2{}, snap.Velocity)
	assert.Equal(t, mgl64.Vec2{}, snap.AccumulatedForces)
}

func TestAuthority_StaticBodiesIgnoreRequests(t *testing.T) {
	a, _ := createTestAuthority(t)
	body := DefaultBody(mgl64.Vec2{10, 20})
	body.Static = true
	require.NoError(t, a.Register(1, body))

	snap, err := a.RequestMovement(1, mgl64.Vec2{1, 0}, 100)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec2{10, 20}, snap.Position)
	assert.Equal(t, mgl64.Vec2{}, snap.Velocity)

	snap, err = a.RequestImpulse(1, mgl64.Vec2{500, 0})
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec2{}, snap.Velocity)

	a.Step(config.Default().Physics.Timestep)
	pos, err := a.Position(1)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec2{10, 20}, pos)
}

func TestAuthority_GravityAndFallCap(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})

	cfg := config.Default().Physics
	a.Step(cfg.Timestep)
	vel, err := a.Velocity(1)
	require.NoError(t, err)
	assert.InDelta(t, cfg.Gravity*cfg.Timestep, vel[1], 1e-9)

	// A long free fall saturates at the terminal speed.
	for i := 0; i < 120; i++ {
		a.Step(cfg.Timestep)
	}
	vel, err = a.Velocity(1)
	require.NoError(t, err)
	assert.InDelta(t, cfg.MaxFallSpeed, vel[1], 1e-9)
}

func TestAuthority_GroundFrictionSlowsWalk(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})
	ground(t, a, 1)

	_, err := a.RequestMovement(1, mgl64.Vec2{1, 0}, 200)
	require.NoError(t, err)

	cfg := config.Default().Physics
	a.Step(cfg.Timestep)
	vel, err := a.Velocity(1)
	require.NoError(t, err)
	assert.Less(t, vel[0], 200.0)
	assert.Positive(t, vel[0])
}

func TestAuthority_SetContactsDerivesGrounding(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})

	// Falling, then a ground contact appears: lands and the fall stops.
	_, err := a.RequestImpulse(1, mgl64.Vec2{0, 150})
	require.NoError(t, err)

	landed, airborne, err := a.SetContacts(1, []collision.Contact{
		{ID: 1, Kind: collision.KindGround, Normal: mgl64.Vec2{0, -1}, Active: true},
	})
	require.NoError(t, err)
	assert.True(t, landed)
	assert.False(t, airborne)

	vel, err := a.Velocity(1)
	require.NoError(t, err)
	assert.InDelta(t, 0, vel[1], 1e-9, "landing with zero restitution kills fall speed")

	// Contact gone again: airborne transition fires once.
	landed, airborne, err = a.SetContacts(1, nil)
	require.NoError(t, err)
	assert.False(t, landed)
	assert.True(t, airborne)
}

func TestAuthority_InactiveGroundContactDoesNotGround(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})

	landed, _, err := a.SetContacts(1, []collision.Contact{
		{ID: 1, Kind: collision.KindGround, Normal: mgl64.Vec2{0, -1}, Active: false},
	})
	require.NoError(t, err)
	assert.False(t, landed)

	grounded, err := a.IsGrounded(1)
	require.NoError(t, err)
	assert.False(t, grounded)
}

func TestAuthority_WallContactCancelsVelocityIntoWall(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})
	ground(t, a, 1)

	_, err := a.RequestMovement(1, mgl64.Vec2{1, 0}, 120)
	require.NoError(t, err)

	// Wall on the right: its normal points back at the entity.
	_, _, err = a.SetContacts(1, []collision.Contact{
		{ID: 1, Kind: collision.KindGround, Normal: mgl64.Vec2{0, -1}, Active: true},
		{ID: 2, Kind: collision.KindWall, Normal: mgl64.Vec2{-1, 0}, Active: true},
	})
	require.NoError(t, err)

	vel, err := a.Velocity(1)
	require.NoError(t, err)
	assert.InDelta(t, 0, vel[0], 1e-9)
}

func TestAuthority_RestitutionBouncesOnLanding(t *testing.T) {
	a, _ := createTestAuthority(t)
	body := DefaultBody(mgl64.Vec2{})
	body.Restitution = 0.5
	require.NoError(t, a.Register(1, body))

	_, err := a.RequestImpulse(1, mgl64.Vec2{0, 200})
	require.NoError(t, err)
	snap, err := a.Snapshot(1)
	require.NoError(t, err)
	fall := snap.Velocity[1]
	require.Positive(t, fall)

	_, _, err = a.SetContacts(1, []collision.Contact{
		{ID: 1, Kind: collision.KindGround, Normal: mgl64.Vec2{0, -1}, Active: true},
	})
	require.NoError(t, err)

	vel, err := a.Velocity(1)
	require.NoError(t, err)
	assert.InDelta(t, -fall*0.5, vel[1], 1e-9)
}

func TestAuthority_RemoveForgetsEntity(t *testing.T) {
	a, _ := createTestAuthority(t)
	registerDynamic(t, a, 1, mgl64.Vec2{})

	a.Remove(1)
	a.Remove(1)

	assert.False(t, a.Has(1))
	_, err := a.Position(1)
	assert.ErrorIs(t, err, ErrUnknownEntity)
}
