package system

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/younwookim/motioncore/internal/domain/motion"
	"github.com/younwookim/motioncore/internal/ecs"
	"github.com/younwookim/motioncore/internal/infrastructure/config"
)

// Validator checks motion requests before they reach the processor.
// Each call is stateless, but the validator keeps per-entity history
// (rate window, recent types, rapid-run tracker) that feeds the next
// call. It never returns an error; rejections are structured results.
type Validator struct {
	cfg       config.ValidationConfig
	histories map[ecs.EntityID]*requestHistory
	now       func() time.Time
}

type typeEntry struct {
	t  motion.Type
	at time.Time
}

type requestHistory struct {
	window         []time.Time // accepted requests inside the rate window
	types          []typeEntry // last N request types, newest last
	lastRequestAt  time.Time
	rapidRun       int // consecutive requests under the rapid gap
	rapidSequences int // completed rapid runs longer than the threshold
}

// NewValidator creates a validator with the given thresholds.
func NewValidator(cfg config.ValidationConfig) *Validator {
	return &Validator{
		cfg:       cfg,
		histories: make(map[ecs.EntityID]*requestHistory),
		now:       time.Now,
	}
}

// SetClock overrides the validator's time source. Tests use this to hit
// exact window boundaries.
func (v *Validator) SetClock(now func() time.Time) {
	v.now = now
}

// Validate checks one request. currentSpeed is the entity's current speed
// magnitude, used for the global resultant ceiling; pass 0 if unknown.
func (v *Validator) Validate(req motion.Request, currentSpeed float64) motion.ValidationResult {
	if res, ok := v.checkIntegrity(req); !ok {
		return res
	}

	now := v.now()
	if age := req.Age(now); age > v.maxAge() {
		return motion.Invalid(motion.RuleRequestExpired,
			fmt.Sprintf("request is %v old, limit is %v", age.Round(time.Millisecond), v.maxAge()),
			"submit requests within the same frame they are created")
	}

	h := v.history(req.EntityID)
	defer h.record(req.Type, now, v.cfg)

	// Sliding-window rate limit. Only accepted requests occupy the window,
	// so a rejected burst does not extend its own penalty.
	h.trimWindow(now, v.rateWindow())
	if len(h.window) >= v.cfg.RateLimit {
		return motion.Invalid(motion.RuleRateLimitExceeded,
			fmt.Sprintf("entity %d exceeded %d requests per %v", req.EntityID, v.cfg.RateLimit, v.rateWindow()),
			"throttle the request source or batch intents per frame")
	}

	if res, ok := v.checkPattern(h, req, now); !ok {
		return res
	}
	if res, ok := v.checkCeilings(req, currentSpeed); !ok {
		return res
	}

	h.window = append(h.window, now)

	if !h.lastRequestAt.IsZero() && now.Sub(h.lastRequestAt) < v.softWarnGap() {
		return motion.ValidWithGuard(
			fmt.Sprintf("requests arriving %v apart, below the %v frame gap; forces will be bounded",
				now.Sub(h.lastRequestAt).Round(time.Millisecond), v.softWarnGap()))
	}
	return motion.Valid()
}

// Forget drops all history for an entity. Called on destroy/respawn.
func (v *Validator) Forget(id ecs.EntityID) {
	delete(v.histories, id)
}

// RapidSequences returns how many rapid request runs (more than the
// configured run length, each under the rapid gap) an entity has produced.
func (v *Validator) RapidSequences(id ecs.EntityID) int {
	if h, ok := v.histories[id]; ok {
		return h.rapidSequences
	}
	return 0
}

func (v *Validator) checkIntegrity(req motion.Request) (motion.ValidationResult, bool) {
	if req.EntityID < 0 {
		return motion.Invalid(motion.RuleInvalidEntity,
			fmt.Sprintf("entity id %d is negative", req.EntityID), ""), false
	}
	if !req.Finite() {
		return motion.Invalid(motion.RuleNonFiniteInput,
			"direction or magnitude is NaN or infinite", ""), false
	}
	if req.Magnitude < 0 {
		return motion.Invalid(motion.RuleInvalidMagnitude,
			fmt.Sprintf("magnitude %v is negative", req.Magnitude), "use a direction flip instead of a negative magnitude"), false
	}
	if req.Type == motion.TypeStop {
		// Stop is always structurally valid; mismatched fields are noted
		// so a misbehaving adapter shows up in the logs.
		if req.Direction.Len() != 0 || req.Magnitude != 0 {
			slog.Warn("stop request carries direction or magnitude",
				"entity", req.EntityID, "direction", req.Direction, "magnitude", req.Magnitude)
		}
		return motion.ValidationResult{}, true
	}
	l := req.Direction.Len()
	if l < v.cfg.MinDirectionLen || l > v.cfg.MaxDirectionLen {
		return motion.Invalid(motion.RuleInvalidDirection,
			fmt.Sprintf("direction length %v outside [%v, %v]", l, v.cfg.MinDirectionLen, v.cfg.MaxDirectionLen),
			"pass a unit vector; use stop to halt"), false
	}
	return motion.ValidationResult{}, true
}

func (v *Validator) checkPattern(h *requestHistory, req motion.Request, now time.Time) (motion.ValidationResult, bool) {
	// A-B-A-B oscillation over the last three entries plus this request.
	// Stop is exempt: stop/walk/stop taps are legitimate control.
	n := len(h.types)
	if req.Type != motion.TypeStop && n >= 3 {
		p1, p2, p3 := h.types[n-1], h.types[n-2], h.types[n-3]
		alternating := req.Type == p2.t && p1.t == p3.t && req.Type != p1.t
		if alternating && p1.t != motion.TypeStop {
			return motion.Invalid(motion.RuleOscillation,
				fmt.Sprintf("alternating %s/%s pattern detected", p1.t, req.Type),
				"debounce the intent source"), false
		}
	}

	// Same-type instantaneous rate. The tracked history is small, so the
	// rate is measured over the recent same-type samples rather than a
	// full second of traffic.
	sameType := make([]time.Time, 0, len(h.types))
	for _, e := range h.types {
		if e.t == req.Type {
			sameType = append(sameType, e.at)
		}
	}
	if len(sameType) >= 4 {
		span := now.Sub(sameType[0]).Seconds()
		if span > 0 {
			rate := float64(len(sameType)) / span
			if rate > float64(v.cfg.SpamRatePerSecond) {
				return motion.Invalid(motion.RuleSpam,
					fmt.Sprintf("%s requests at %.0f/s exceed the %d/s ceiling", req.Type, rate, v.cfg.SpamRatePerSecond),
					"coalesce repeated intents into one request per frame"), false
			}
		}
	}
	return motion.ValidationResult{}, true
}

func (v *Validator) checkCeilings(req motion.Request, currentSpeed float64) (motion.ValidationResult, bool) {
	c := v.cfg
	switch req.Type {
	case motion.TypeWalk:
		if req.Magnitude > c.WalkMaxSpeed {
			return motion.Invalid(motion.RuleSpeedTooHigh,
				fmt.Sprintf("walk speed %v exceeds %v", req.Magnitude, c.WalkMaxSpeed),
				"use dash for higher speeds"), false
		}
		if req.Magnitude < c.WalkMinSpeed {
			return motion.Invalid(motion.RuleSpeedTooLow,
				fmt.Sprintf("walk speed %v is below %v", req.Magnitude, c.WalkMinSpeed),
				"use stop to halt"), false
		}
	case motion.TypeDash:
		if req.Magnitude > c.DashMaxSpeed {
			return motion.Invalid(motion.RuleSpeedTooHigh,
				fmt.Sprintf("dash speed %v exceeds %v", req.Magnitude, c.DashMaxSpeed), ""), false
		}
		if req.Magnitude < c.DashMinSpeed {
			return motion.Invalid(motion.RuleSpeedTooLow,
				fmt.Sprintf("dash speed %v is below %v", req.Magnitude, c.DashMinSpeed),
				"use walk for lower speeds"), false
		}
	case motion.TypeJump:
		if req.Direction[1] >= 0 {
			return motion.Invalid(motion.RuleInvalidDirection,
				fmt.Sprintf("jump direction y=%v is not upward", req.Direction[1]),
				"jump direction needs a strictly negative y component"), false
		}
		if req.Magnitude == 0 {
			return motion.Invalid(motion.RuleInvalidMagnitude, "jump force must be positive", ""), false
		}
		if req.Magnitude > c.JumpMaxForce {
			return motion.Invalid(motion.RuleForceTooHigh,
				fmt.Sprintf("jump force %v exceeds %v", req.Magnitude, c.JumpMaxForce), ""), false
		}
	case motion.TypeImpulse:
		if req.Magnitude == 0 {
			return motion.Invalid(motion.RuleInvalidMagnitude, "impulse force must be positive", ""), false
		}
		if req.Magnitude > c.ImpulseMaxForce {
			return motion.Invalid(motion.RuleForceTooHigh,
				fmt.Sprintf("impulse force %v exceeds %v", req.Magnitude, c.ImpulseMaxForce), ""), false
		}
	}

	resultant := req.Magnitude
	if req.Type == motion.TypeImpulse || req.Type == motion.TypeJump {
		resultant += currentSpeed
	}
	if resultant > c.GlobalCeiling {
		return motion.Invalid(motion.RuleResultantTooHigh,
			fmt.Sprintf("implied speed/force %v exceeds the global %v ceiling", resultant, c.GlobalCeiling), ""), false
	}
	return motion.ValidationResult{}, true
}

func (v *Validator) history(id ecs.EntityID) *requestHistory {
	h, ok := v.histories[id]
	if !ok {
		h = &requestHistory{}
		v.histories[id] = h
	}
	return h
}

func (v *Validator) maxAge() time.Duration {
	return time.Duration(v.cfg.MaxRequestAgeMS) * time.Millisecond
}

func (v *Validator) rateWindow() time.Duration {
	return time.Duration(v.cfg.RateWindowMS) * time.Millisecond
}

func (v *Validator) softWarnGap() time.Duration {
	return time.Duration(v.cfg.SoftWarnGapMS) * time.Millisecond
}

// record updates the per-entity trackers after every non-expired request,
// accepted or not, so a rejected burst is still visible to the pattern
// checks that follow it.
func (h *requestHistory) record(t motion.Type, now time.Time, cfg config.ValidationConfig) {
	h.types = append(h.types, typeEntry{t: t, at: now})
	if len(h.types) > cfg.HistoryLength {
		h.types = h.types[len(h.types)-cfg.HistoryLength:]
	}
	if !h.lastRequestAt.IsZero() && now.Sub(h.lastRequestAt) < time.Duration(cfg.RapidGapMS)*time.Millisecond {
		h.rapidRun++
		if h.rapidRun == cfg.RapidRunLength+1 {
			h.rapidSequences++
		}
	} else {
		h.rapidRun = 0
	}
	h.lastRequestAt = now
}

func (h *requestHistory) trimWindow(now time.Time, window time.Duration) {
	cut := 0
	for cut < len(h.window) && now.Sub(h.window[cut]) >= window {
		cut++
	}
	h.window = h.window[cut:]
}
