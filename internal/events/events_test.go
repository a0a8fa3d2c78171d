package events

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestConstructors(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		event   BaseEvent
		subject string
		key     string
		want    any
	}{
		{"proposed", FriendProposed(a, b), "events.friend.proposed", "other_id", b.String()},
		{"accepted", FriendAccepted(a, b), "events.friend.accepted", "subject_id", a.String()},
		{"unlock", UnlockRecorded(a, b, "midtrans", "tx-1"), "events.unlock.recorded", "provider_ref", "tx-1"},
		{"thread", ThreadOpened(uuid.Nil, a, b, true), "events.thread.opened", "created", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.subject, Subject(tt.event))
			assert.Equal(t, tt.want, tt.event.Payload()[tt.key])
			assert.False(t, tt.event.Timestamp().IsZero())
			assert.Contains(t, tt.event.Payload(), "occurred_at")
		})
	}
}

func TestEmitter_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	pub := &recordingPublisher{err: errors.New("bus down")}
	e := NewEmitter(pub, zap.New(core))

	e.Emit(context.Background(), FriendProposed(uuid.New(), uuid.New()))

	require.Len(t, pub.events, 1)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "publish event failed", logs.All()[0].Message)
}

func TestEmitter_NilSafe(t *testing.T) {
	var e *Emitter
	assert.NotPanics(t, func() {
		e.Emit(context.Background(), FriendProposed(uuid.New(), uuid.New()))
	})

	assert.NotPanics(t, func() {
		NewEmitter(nil, zap.NewNop()).Emit(context.Background(), FriendAccepted(uuid.New(), uuid.New()))
	})
}
