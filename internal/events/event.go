// Package events publishes domain events to the message bus. Publishing is
// best-effort: a failed publish is logged and never fails the operation
// that produced it.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types. Each is published on subject "events.<type>".
const (
	TypeFriendProposed = "friend.proposed"
	TypeFriendAccepted = "friend.accepted"
	TypeUnlockRecorded = "unlock.recorded"
	TypeThreadOpened   = "thread.opened"
)

type Event interface {
	EventType() string
	Payload() map[string]any
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]any
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]any {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func newEvent(eventType string, data map[string]any) BaseEvent {
	now := time.Now().UTC()
	data["occurred_at"] = now
	return BaseEvent{Type: eventType, Data: data, OccurredAt: now}
}

func FriendProposed(subjectID, otherID uuid.UUID) BaseEvent {
	return newEvent(TypeFriendProposed, map[string]any{
		"subject_id": subjectID.String(),
		"other_id":   otherID.String(),
	})
}

func FriendAccepted(subjectID, otherID uuid.UUID) BaseEvent {
	return newEvent(TypeFriendAccepted, map[string]any{
		"subject_id": subjectID.String(),
		"other_id":   otherID.String(),
	})
}

func UnlockRecorded(payerID, targetID uuid.UUID, provider, providerRef string) BaseEvent {
	return newEvent(TypeUnlockRecorded, map[string]any{
		"payer_id":     payerID.String(),
		"target_id":    targetID.String(),
		"provider":     provider,
		"provider_ref": providerRef,
	})
}

func ThreadOpened(threadID, openedBy, otherID uuid.UUID, created bool) BaseEvent {
	return newEvent(TypeThreadOpened, map[string]any{
		"thread_id": threadID.String(),
		"opened_by": openedBy.String(),
		"other_id":  otherID.String(),
		"created":   created,
	})
}
