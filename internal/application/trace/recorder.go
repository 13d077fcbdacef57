// Package trace records every processed motion response as one JSONL
// entry, zstd compressed, for offline diagnosis of movement bugs.
package trace

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/younwookim/motioncore/internal/domain/motion"
)

// Record is one trace line.
type Record struct {
	Tick     uint64     `json:"tick"`
	EntityID int64      `json:"entityId"`
	Type     string     `json:"type"`
	Priority string     `json:"priority"`
	Outcome  string     `json:"outcome"`
	Reason   string     `json:"reason,omitempty"`
	Position [2]float64 `json:"pos"`
	Velocity [2]float64 `json:"vel"`
	Grounded bool       `json:"grounded,omitempty"`
}

// Recorder streams records through a zstd writer. Not safe for
// concurrent use; the game loop owns it.
type Recorder struct {
	zw    *zstd.Encoder
	enc   *json.Encoder
	count int
}

// NewRecorder wraps w in a compressed JSONL stream.
func NewRecorder(w io.Writer) (*Recorder, error) {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace writer: %w", err)
	}
	return &Recorder{zw: zw, enc: json.NewEncoder(zw)}, nil
}

// Record appends one response. Implements core.Tracer.
func (r *Recorder) Record(tick uint64, resp motion.Response) {
	rec := Record{
		Tick:     tick,
		EntityID: int64(resp.Request.EntityID),
		Type:     resp.Request.Type.String(),
		Priority: resp.Request.Priority.String(),
		Outcome:  resp.Outcome.String(),
		Reason:   resp.Reason,
		Position: [2]float64{resp.ActualPosition[0], resp.ActualPosition[1]},
		Velocity: [2]float64{resp.ActualVelocity[0], resp.ActualVelocity[1]},
		Grounded: resp.IsGrounded,
	}
	// Encoding into a compressed stream can only fail on the underlying
	// writer; a broken trace must never take the game loop down with it.
	_ = r.enc.Encode(rec)
	r.count++
}

// Count returns how many records were written.
func (r *Recorder) Count() int {
	return r.count
}

// Close flushes the compressed stream.
func (r *Recorder) Close() error {
	return r.zw.Close()
}

// Read decodes a full trace back into records.
func Read(rd io.Reader) ([]Record, error) {
	zr, err := zstd.NewReader(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	defer zr.Close()

	var out []Record
	dec := json.NewDecoder(zr)
	for {
		var rec Record
		if err := dec.Decode(&rec); err == io.EOF {
			return out, nil
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode trace record: %w", err)
		}
		out = append(out, rec)
	}
}
