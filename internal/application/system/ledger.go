package system

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/younwookim/motioncore/internal/domain/collision"
	"github.com/younwookim/motioncore/internal/ecs"
)

// Ledger is the per-entity record of active contacts. It consumes one
// physics snapshot per tick and answers the two questions the rest of
// the core cares about: "does grounding still count" (coyote window)
// and "would moving this way hit something".
type Ledger struct {
	id     ecs.EntityID
	coyote time.Duration

	contacts       []collision.Contact
	isGrounded     bool
	lastGroundedAt time.Time
	everGrounded   bool
}

// NewLedger creates a ledger for one entity with the given coyote window.
func NewLedger(id ecs.EntityID, coyote time.Duration) *Ledger {
	return &Ledger{id: id, coyote: coyote}
}

// EntityID returns the entity this ledger tracks.
func (l *Ledger) EntityID() ecs.EntityID {
	return l.id
}

// SyncWithPhysics refreshes the ledger from an authoritative snapshot.
// The snapshot is the only input; the ledger never mutates contacts.
func (l *Ledger) SyncWithPhysics(snap Snapshot) {
	l.contacts = append(l.contacts[:0], snap.ActiveContacts...)
	l.isGrounded = snap.IsGrounded
	if snap.IsGrounded {
		l.lastGroundedAt = snap.LastUpdateTime
		l.everGrounded = true
	}
}

// IsEffectivelyGrounded reports grounding with the coyote grace window.
// Exactly the window boundary still counts as grounded; one millisecond
// past it does not.
func (l *Ledger) IsEffectivelyGrounded(now time.Time) bool {
	if l.isGrounded {
		return true
	}
	if !l.everGrounded {
		return false
	}
	return now.Sub(l.lastGroundedAt) <= l.coyote
}

// IsGrounded reports the raw grounded flag from the last sync.
func (l *Ledger) IsGrounded() bool {
	return l.isGrounded
}

// IsMovementBlocked reports whether moving along dir pushes into an
// active wall or ceiling contact. Sliding parallel to a surface is never
// blocking, and ground/trigger/entity contacts never block here.
func (l *Ledger) IsMovementBlocked(dir mgl64.Vec2) bool {
	for _, c := range l.contacts {
		if !c.Active {
			continue
		}
		if c.Kind != collision.KindWall && c.Kind != collision.KindCeiling {
			continue
		}
		if c.Opposes(dir) {
			return true
		}
	}
	return false
}

// ActiveContacts returns a copy of the currently active contacts.
func (l *Ledger) ActiveContacts() []collision.Contact {
	var out []collision.Contact
	for _, c := range l.contacts {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}

// GroundContact returns the first active ground contact, if any.
func (l *Ledger) GroundContact() (collision.Contact, bool) {
	for _, c := range l.contacts {
		if c.Active && c.Kind == collision.KindGround {
			return c, true
		}
	}
	return collision.Contact{}, false
}

// WallContacts returns all active wall contacts.
func (l *Ledger) WallContacts() []collision.Contact {
	var out []collision.Contact
	for _, c := range l.contacts {
		if c.Active && c.Kind == collision.KindWall {
			out = append(out, c)
		}
	}
	return out
}

// HasActiveContact reports whether anything is currently touching.
func (l *Ledger) HasActiveContact() bool {
	for _, c := range l.contacts {
		if c.Active {
			return true
		}
	}
	return false
}

// LedgerSet owns the ledgers for all entities, created lazily.
type LedgerSet struct {
	coyote  time.Duration
	ledgers map[ecs.EntityID]*Ledger
}

// NewLedgerSet creates an empty set with a shared coyote window.
func NewLedgerSet(coyote time.Duration) *LedgerSet {
	return &LedgerSet{
		coyote:  coyote,
		ledgers: make(map[ecs.EntityID]*Ledger),
	}
}

// For returns the entity's ledger, creating it on first use.
func (s *LedgerSet) For(id ecs.EntityID) *Ledger {
	l, ok := s.ledgers[id]
	if !ok {
		l = NewLedger(id, s.coyote)
		s.ledgers[id] = l
	}
	return l
}

// Sync routes a snapshot to the owning ledger.
func (s *LedgerSet) Sync(snap Snapshot) {
	s.For(snap.EntityID).SyncWithPhysics(snap)
}

// Remove drops an entity's ledger.
func (s *LedgerSet) Remove(id ecs.EntityID) {
	delete(s.ledgers, id)
}
