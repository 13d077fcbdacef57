// Package input translates keyboard state into motion requests. Intent
// derivation stays out of the core; this adapter only produces the
// request values the processor consumes.
package input

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/younwookim/motioncore/internal/domain/motion"
	"github.com/younwookim/motioncore/internal/ecs"
)

// Tuning holds the magnitudes this adapter attaches to intents. The
// values must sit inside the validator's per-type ceilings.
type Tuning struct {
	WalkSpeed float64
	DashSpeed float64
	JumpForce float64
}

// DefaultTuning returns magnitudes well inside the validator ceilings.
func DefaultTuning() Tuning {
	return Tuning{
		WalkSpeed: 180,
		DashSpeed: 500,
		JumpForce: 320,
	}
}

// State is one frame's sampled input.
type State struct {
	Left        bool
	Right       bool
	JumpPressed bool
	DashPressed bool
	StopPressed bool
}

// walkRepeatGap spaces out walk resubmission for a held key. 20/s keeps a
// held key well under the validator's 30/s same-type ceiling; one walk
// per 60 Hz frame would trip it within four frames and stay locked out.
const walkRepeatGap = 50 * time.Millisecond

// Keyboard produces motion requests for one controlled entity.
type Keyboard struct {
	entity     ecs.EntityID
	tuning     Tuning
	facing     float64 // -1 left, +1 right; dashes go the way we last walked
	heldDir    float64 // walk direction currently held, 0 when idle
	lastWalkAt time.Time
}

// NewKeyboard creates an adapter bound to an entity.
func NewKeyboard(entity ecs.EntityID, tuning Tuning) *Keyboard {
	return &Keyboard{entity: entity, tuning: tuning, facing: 1}
}

// Sample reads the current ebiten key state.
func (k *Keyboard) Sample() State {
	return State{
		Left:        ebiten.IsKeyPressed(ebiten.KeyA),
		Right:       ebiten.IsKeyPressed(ebiten.KeyD),
		JumpPressed: inpututil.IsKeyJustPressed(ebiten.KeyW),
		DashPressed: inpututil.IsKeyJustPressed(ebiten.KeySpace),
		StopPressed: inpututil.IsKeyJustPressed(ebiten.KeyS),
	}
}

// Requests converts a sampled state into motion requests stamped at now.
// Walks are edge-triggered with a slow repeat: a direction change submits
// immediately, a held key resubmits every walkRepeatGap, and releasing
// the key submits a stop. Separated from Sample so it can be exercised
// without a display.
func (k *Keyboard) Requests(st State, now time.Time) []motion.Request {
	var out []motion.Request

	dx := 0.0
	if st.Left {
		dx -= 1
	}
	if st.Right {
		dx += 1
	}
	stop := st.StopPressed
	if dx != 0 {
		k.facing = dx
		if dx != k.heldDir || now.Sub(k.lastWalkAt) >= walkRepeatGap {
			k.lastWalkAt = now
			out = append(out, motion.NewRequest(k.entity, motion.TypeWalk,
				mgl64.Vec2{dx, 0}, k.tuning.WalkSpeed, motion.PriorityNormal, now))
		}
	} else if k.heldDir != 0 {
		stop = true
	}
	k.heldDir = dx
	if st.JumpPressed {
		out = append(out, motion.NewRequest(k.entity, motion.TypeJump,
			mgl64.Vec2{0, -1}, k.tuning.JumpForce, motion.PriorityHigh, now))
	}
	if st.DashPressed {
		out = append(out, motion.NewRequest(k.entity, motion.TypeDash,
			mgl64.Vec2{k.facing, 0}, k.tuning.DashSpeed, motion.PriorityHigh, now))
	}
	if stop {
		out = append(out, motion.NewRequest(k.entity, motion.TypeStop,
			mgl64.Vec2{}, 0, motion.PriorityNormal, now))
	}
	return out
}
