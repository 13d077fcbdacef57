package ws

import (
	"encoding/json"
	"fmt"
)

// Message types routed by the "type" tag.
const (
	MessageTypeSubmit  = "submit"
	MessageTypeQuery   = "query"
	MessageTypeBlocked = "blocked"
	MessageTypeClear   = "clear"
	MessageTypeStats   = "stats"

	MessageTypeResponse = "response"
	MessageTypeMotion   = "motion"
	MessageTypeError    = "error"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

// SubmitMessage carries one motion intent.
type SubmitMessage struct {
	Type      string     `json:"type"`
	EntityID  int64      `json:"entityId"`
	Motion    string     `json:"motion"` // walk|dash|jump|stop|impulse
	Direction [2]float64 `json:"direction"`
	Magnitude float64    `json:"magnitude"`
	Priority  string     `json:"priority,omitempty"` // low|normal|high|critical
}

// QueryMessage asks for an entity's motion view.
type QueryMessage struct {
	Type     string `json:"type"`
	EntityID int64  `json:"entityId"`
}

// BlockedMessage asks whether a direction is blocked for an entity.
type BlockedMessage struct {
	Type      string     `json:"type"`
	EntityID  int64      `json:"entityId"`
	Direction [2]float64 `json:"direction"`
}

// ClearMessage cancels an entity's active and queued requests.
type ClearMessage struct {
	Type     string `json:"type"`
	EntityID int64  `json:"entityId"`
}

// StatsMessage asks for the processor counters.
type StatsMessage struct {
	Type string `json:"type"`
}

// ResponseMessage reports the outcome of a submit.
type ResponseMessage struct {
	Type     string     `json:"type"`
	EntityID int64      `json:"entityId"`
	Outcome  string     `json:"outcome"`
	Reason   string     `json:"reason,omitempty"`
	Position [2]float64 `json:"position"`
	Velocity [2]float64 `json:"velocity"`
	Grounded bool       `json:"grounded"`
}

// MotionMessage answers a query.
type MotionMessage struct {
	Type                string     `json:"type"`
	EntityID            int64      `json:"entityId"`
	Position            [2]float64 `json:"position"`
	Velocity            [2]float64 `json:"velocity"`
	Grounded            bool       `json:"grounded"`
	EffectivelyGrounded bool       `json:"effectivelyGrounded"`
	Blocked             *bool      `json:"blocked,omitempty"`
}

// StatsResultMessage answers a stats request.
type StatsResultMessage struct {
	Type       string `json:"type"`
	Total      uint64 `json:"total"`
	Successful uint64 `json:"successful"`
	Failed     uint64 `json:"failed"`
	Blocked    uint64 `json:"blocked"`
	Conflicted uint64 `json:"conflicted"`
	Active     int    `json:"active"`
	Queued     int    `json:"queued"`
}

// ErrorMessage reports a protocol-level problem.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ParseMessage routes an inbound frame to its concrete message type.
// Submit frames are schema-validated before decoding so malformed
// intents are rejected with a reason instead of zero values.
func ParseMessage(data []byte) (any, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	switch base.Type {
	case MessageTypeSubmit:
		if err := validateSubmit(data); err != nil {
			return nil, fmt.Errorf("invalid submit message: %w", err)
		}
		var msg SubmitMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing submit message: %w", err)
		}
		return &msg, nil

	case MessageTypeQuery:
		var msg QueryMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing query message: %w", err)
		}
		return &msg, nil

	case MessageTypeBlocked:
		var msg BlockedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing blocked message: %w", err)
		}
		return &msg, nil

	case MessageTypeClear:
		var msg ClearMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing clear message: %w", err)
		}
		return &msg, nil

	case MessageTypeStats:
		var msg StatsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("error parsing stats message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unknown message type %q", base.Type)
	}
}
