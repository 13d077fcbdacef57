package system

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/younwookim/motioncore/internal/domain/motion"
	"github.com/younwookim/motioncore/internal/ecs"
	"github.com/younwookim/motioncore/internal/event"
	"github.com/younwookim/motioncore/internal/infrastructure/config"
)

// Statistics are the processor's running counters.
type Statistics struct {
	Total      uint64
	Successful uint64
	Failed     uint64
	Blocked    uint64
	Conflicted uint64
	Guarded    uint64
	Active     int
	Queued     int
}

type queuedRequest struct {
	req motion.Request
	seq int64
}

// Processor turns validated motion requests into physics authority calls.
// Per entity it tracks at most one active request plus a bounded pending
// queue; queued requests are promoted once per tick, highest priority
// first, FIFO within a priority.
type Processor struct {
	cfg       config.QueueConfig
	validator *Validator
	authority *Authority
	ledgers   *LedgerSet
	bus       *event.Bus

	active map[ecs.EntityID]motion.Request
	queues map[ecs.EntityID][]queuedRequest
	seq    int64 // counts up for arrivals
	front  int64 // counts down for preempted requeues
	stats  Statistics
	now    func() time.Time
}

// NewProcessor wires the processor to its collaborators. bus may be nil.
func NewProcessor(cfg config.QueueConfig, validator *Validator, authority *Authority, ledgers *LedgerSet, bus *event.Bus) *Processor {
	return &Processor{
		cfg:       cfg,
		validator: validator,
		authority: authority,
		ledgers:   ledgers,
		bus:       bus,
		active:    make(map[ecs.EntityID]motion.Request),
		queues:    make(map[ecs.EntityID][]queuedRequest),
		now:       time.Now,
	}
}

// SetClock overrides the processor's time source.
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// ProcessRequest validates, resolves conflicts and dispatches one request.
// It always returns a response; nothing escapes as a panic or error.
func (p *Processor) ProcessRequest(req motion.Request) motion.Response {
	p.stats.Total++

	speed := 0.0
	if vel, err := p.authority.Velocity(req.EntityID); err == nil {
		speed = vel.Len()
	}
	res := p.validator.Validate(req, speed)
	if !res.OK {
		p.stats.Failed++
		if p.bus != nil {
			p.bus.Publish(event.EventRequestRejected, event.RequestRejectedEvent{
				EntityID: req.EntityID,
				Type:     req.Type.String(),
				Rule:     string(res.Rule),
				Message:  res.Message,
			})
		}
		return p.fail(req, fmt.Sprintf("%s: %s", res.Rule, res.Message))
	}
	if res.RequiresAccumulationGuard {
		p.stats.Guarded++
	}

	active, busy := p.active[req.EntityID]
	if !busy {
		return p.dispatch(req)
	}

	switch {
	case req.Type == motion.TypeStop && active.Type != motion.TypeStop:
		// Stop preempts: the interrupted request goes back to the front
		// of its priority class and the stop runs now.
		p.requeueFront(active)
		delete(p.active, req.EntityID)
		return p.dispatch(req)
	case req.Priority > active.Priority:
		p.enqueue(req)
		return motion.Response{
			Request: req,
			Outcome: motion.OutcomeQueued,
			Reason:  "queued behind active request",
		}
	default:
		p.stats.Conflicted++
		return p.fail(req, "conflict with active request")
	}
}

// ProcessQueued is the once-per-tick drain: it retires last tick's active
// requests, drops queued entries that expired while waiting, and promotes
// at most one pending request per entity.
func (p *Processor) ProcessQueued() {
	now := p.now()

	ids := make([]ecs.EntityID, 0, len(p.active)+len(p.queues))
	seen := make(map[ecs.EntityID]struct{}, cap(ids))
	for id := range p.active {
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	for id := range p.queues {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		delete(p.active, id)
		p.expire(id, now)
		if req, ok := p.pop(id); ok {
			p.dispatch(req)
		}
	}
}

// ClearEntityRequests purges the active marker and the queue for an
// entity. Required on respawn/destroy so stale queued motion cannot
// reanimate a reset entity. Calling it twice is a no-op.
func (p *Processor) ClearEntityRequests(id ecs.EntityID) {
	delete(p.active, id)
	delete(p.queues, id)
}

// ActiveRequest returns the currently active request for an entity.
func (p *Processor) ActiveRequest(id ecs.EntityID) (motion.Request, bool) {
	req, ok := p.active[id]
	return req, ok
}

// PendingRequests returns the queued requests for an entity in drain order.
func (p *Processor) PendingRequests(id ecs.EntityID) []motion.Request {
	q := append([]queuedRequest(nil), p.queues[id]...)
	sort.SliceStable(q, func(i, j int) bool {
		if q[i].req.Priority != q[j].req.Priority {
			return q[i].req.Priority > q[j].req.Priority
		}
		return q[i].seq < q[j].seq
	})
	out := make([]motion.Request, len(q))
	for i, e := range q {
		out[i] = e.req
	}
	return out
}

// Statistics returns the counters plus current active/queued totals.
func (p *Processor) Statistics() Statistics {
	s := p.stats
	s.Active = len(p.active)
	for _, q := range p.queues {
		s.Queued += len(q)
	}
	return s
}

// dispatch routes the request to the authority and marks it active for
// this tick. Authority panics become Failed responses, never crashes.
func (p *Processor) dispatch(req motion.Request) (resp motion.Response) {
	p.active[req.EntityID] = req

	defer func() {
		if r := recover(); r != nil {
			slog.Error("physics authority panicked",
				"entity", req.EntityID, "type", req.Type.String(), "panic", r)
			delete(p.active, req.EntityID)
			p.stats.Failed++
			resp = p.fail(req, fmt.Sprintf("physics failure: %v", r))
		}
	}()

	dir := req.NormalizedDirection()
	ledger := p.ledgers.For(req.EntityID)

	switch req.Type {
	case motion.TypeWalk, motion.TypeDash:
		if ledger.IsMovementBlocked(dir) {
			return p.blocked(req, "movement opposed by wall or ceiling contact")
		}
		snap, err := p.authority.RequestMovement(req.EntityID, dir, req.Magnitude)
		return p.finish(req, snap, err)
	case motion.TypeJump:
		if !ledger.IsEffectivelyGrounded(p.now()) {
			return p.blocked(req, "jump requires ground contact within the coyote window")
		}
		snap, err := p.authority.RequestJump(req.EntityID, req.Magnitude)
		return p.finish(req, snap, err)
	case motion.TypeStop:
		snap, err := p.authority.RequestStop(req.EntityID)
		return p.finish(req, snap, err)
	case motion.TypeImpulse:
		if ledger.IsMovementBlocked(dir) {
			return p.blocked(req, "impulse opposed by wall or ceiling contact")
		}
		snap, err := p.authority.RequestImpulse(req.EntityID, dir.Mul(req.Magnitude))
		return p.finish(req, snap, err)
	default:
		delete(p.active, req.EntityID)
		p.stats.Failed++
		return p.fail(req, fmt.Sprintf("unknown request type %d", req.Type))
	}
}

func (p *Processor) finish(req motion.Request, snap Snapshot, err error) motion.Response {
	if err != nil {
		slog.Error("physics dispatch failed",
			"entity", req.EntityID, "type", req.Type.String(), "error", err)
		delete(p.active, req.EntityID)
		p.stats.Failed++
		return p.fail(req, err.Error())
	}
	p.stats.Successful++
	return motion.Response{
		Request:        req,
		Outcome:        motion.OutcomeSuccess,
		ActualVelocity: snap.Velocity,
		ActualPosition: snap.Position,
		IsGrounded:     snap.IsGrounded,
	}
}

func (p *Processor) blocked(req motion.Request, reason string) motion.Response {
	p.stats.Blocked++
	if p.bus != nil {
		p.bus.Publish(event.EventMotionBlocked, event.MotionBlockedEvent{
			EntityID:  req.EntityID,
			Direction: req.NormalizedDirection(),
		})
	}
	resp := motion.Response{Request: req, Outcome: motion.OutcomeBlocked, Reason: reason}
	if snap, err := p.authority.Snapshot(req.EntityID); err == nil {
		resp.ActualVelocity = snap.Velocity
		resp.ActualPosition = snap.Position
		resp.IsGrounded = snap.IsGrounded
	}
	return resp
}

func (p *Processor) fail(req motion.Request, reason string) motion.Response {
	resp := motion.Response{Request: req, Outcome: motion.OutcomeFailed, Reason: reason}
	if snap, err := p.authority.Snapshot(req.EntityID); err == nil {
		resp.ActualVelocity = snap.Velocity
		resp.ActualPosition = snap.Position
		resp.IsGrounded = snap.IsGrounded
	}
	return resp
}

// enqueue appends to the entity queue in arrival order.
func (p *Processor) enqueue(req motion.Request) {
	p.seq++
	p.push(req, p.seq)
}

// requeueFront returns a preempted request ahead of its priority class so
// it resumes before later arrivals of the same priority.
func (p *Processor) requeueFront(req motion.Request) {
	p.front--
	p.push(req, p.front)
}

// push inserts with the given drain order, evicting the oldest pending
// entry when the capacity is hit.
func (p *Processor) push(req motion.Request, seq int64) {
	q := p.queues[req.EntityID]
	if len(q) >= p.cfg.Capacity {
		oldest := 0
		for i := 1; i < len(q); i++ {
			if q[i].seq < q[oldest].seq {
				oldest = i
			}
		}
		slog.Debug("evicting oldest queued request",
			"entity", req.EntityID, "evicted", q[oldest].req.Type.String())
		q = append(q[:oldest], q[oldest+1:]...)
	}
	p.queues[req.EntityID] = append(q, queuedRequest{req: req, seq: seq})
}

// expire drops queued entries older than the queue age limit. Checked
// lazily at drain time; there is no timer.
func (p *Processor) expire(id ecs.EntityID, now time.Time) {
	q := p.queues[id]
	if len(q) == 0 {
		return
	}
	maxAge := time.Duration(p.cfg.MaxAgeMS) * time.Millisecond
	kept := q[:0]
	for _, e := range q {
		if e.req.Age(now) > maxAge {
			slog.Debug("dropping expired queued request",
				"entity", id, "type", e.req.Type.String(), "age", e.req.Age(now).Round(time.Millisecond))
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		delete(p.queues, id)
		return
	}
	p.queues[id] = kept
}

// pop removes and returns the best pending request: highest priority,
// then earliest arrival.
func (p *Processor) pop(id ecs.EntityID) (motion.Request, bool) {
	q := p.queues[id]
	if len(q) == 0 {
		return motion.Request{}, false
	}
	best := 0
	for i := 1; i < len(q); i++ {
		if q[i].req.Priority > q[best].req.Priority ||
			(q[i].req.Priority == q[best].req.Priority && q[i].seq < q[best].seq) {
			best = i
		}
	}
	req := q[best].req
	q = append(q[:best], q[best+1:]...)
	if len(q) == 0 {
		delete(p.queues, id)
	} else {
		p.queues[id] = q
	}
	return req, true
}
