package motion

import "github.com/go-gl/mathgl/mgl64"

// Outcome is the terminal disposition of a request.
type Outcome int

const (
	// OutcomeSuccess means the physics authority applied the motion.
	OutcomeSuccess Outcome = iota
	// OutcomeBlocked means an active wall/ceiling contact opposed the motion.
	OutcomeBlocked
	// OutcomeFailed covers validation rejection, conflicts, and authority errors.
	OutcomeFailed
	// OutcomeQueued means the request waits in the entity's queue and will be
	// dispatched on a later tick; poll QueryMotion for the effect.
	OutcomeQueued
)

// String returns the string representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeFailed:
		return "failed"
	case OutcomeQueued:
		return "queued"
	default:
		return "unknown"
	}
}

// Response reports what became of a request. ActualVelocity/ActualPosition
// are the authoritative post-dispatch values; for queued and failed
// requests they carry the last known state.
type Response struct {
	Request        Request
	Outcome        Outcome
	ActualVelocity mgl64.Vec2
	ActualPosition mgl64.Vec2
	IsGrounded     bool
	Reason         string
}

// Succeeded reports whether the motion was applied.
func (r Response) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}
