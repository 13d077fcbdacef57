package trace

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/younwookim/motioncore/internal/domain/motion"
)

func TestRecorder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRecorder(&buf)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.Record(1, motion.Response{
		Request:        motion.NewRequest(7, motion.TypeWalk, mgl64.Vec2{1, 0}, 100, motion.PriorityNormal, now),
		Outcome:        motion.OutcomeSuccess,
		ActualVelocity: mgl64.Vec2{100, 0},
		ActualPosition: mgl64.Vec2{48, 54},
		IsGrounded:     true,
	})
	r.Record(2, motion.Response{
		Request: motion.NewRequest(7, motion.TypeJump, mgl64.Vec2{0, -1}, 300, motion.PriorityHigh, now),
		Outcome: motion.OutcomeBlocked,
		Reason:  "jump requires ground contact within the coyote window",
	})
	require.Equal(t, 2, r.Count())
	require.NoError(t, r.Close())

	records, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, uint64(1), records[0].Tick)
	assert.Equal(t, int64(7), records[0].EntityID)
	assert.Equal(t, "walk", records[0].Type)
	assert.Equal(t, "success", records[0].Outcome)
	assert.Equal(t, [2]float64{100, 0}, records[0].Velocity)
	assert.True(t, records[0].Grounded)

	assert.Equal(t, "blocked", records[1].Outcome)
	assert.Equal(t, "high", records[1].Priority)
	assert.NotEmpty(t, records[1].Reason)
}

func TestRecorder_EmptyTrace(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRecorder(&buf)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	records, err := Read(&buf)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRead_GarbageFails(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a zstd stream")))
	assert.Error(t, err)
}
