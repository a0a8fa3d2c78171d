package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the storage-side identity every other row hangs off.
// Credentials live with the authentication collaborator, not here.
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type NarrativeStatus string

const (
	NarrativeDraft     NarrativeStatus = "draft"
	NarrativePublished NarrativeStatus = "published"
)

// Narrative is a story a user wrote about their situation.
//
// Only narratives that are both published and shared take part in matching.
// This service never mutates them; the authoring workflow owns the rows.
type Narrative struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Tags      []string        `json:"tags"`
	Status    NarrativeStatus `json:"status"`
	Shared    bool            `json:"shared"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Eligible reports whether the narrative may be used as a matching signal.
func (n Narrative) Eligible() bool {
	return n.Status == NarrativePublished && n.Shared
}

type RelationshipStatus string

const (
	RelationshipPending  RelationshipStatus = "pending"
	RelationshipAccepted RelationshipStatus = "accepted"
	RelationshipBlocked  RelationshipStatus = "blocked"
)

// Relationship is one directed edge subject -> other.
//
// An accepted friendship is stored as two rows, one per direction. Each row
// is written independently, so a symmetric check must look at both.
type Relationship struct {
	SubjectID uuid.UUID          `json:"subject_id"`
	OtherID   uuid.UUID          `json:"other_id"`
	Status    RelationshipStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

// Unlock is the entitlement a payer bought to contact one target.
// Keyed by (PayerID, TargetID); Paid never goes back to false.
type Unlock struct {
	PayerID     uuid.UUID `json:"payer_id"`
	TargetID    uuid.UUID `json:"target_id"`
	Paid        bool      `json:"paid"`
	Provider    string    `json:"provider"`
	ProviderRef string    `json:"provider_ref"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Thread is the single private conversation between two users.
// UserA always sorts before UserB, see CanonicalPair.
type Thread struct {
	ID        uuid.UUID `json:"id"`
	UserA     uuid.UUID `json:"user_a"`
	UserB     uuid.UUID `json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
}

// Has reports whether userID is one of the two participants.
func (t Thread) Has(userID uuid.UUID) bool {
	return t.UserA == userID || t.UserB == userID
}

// Other returns the participant that is not userID.
func (t Thread) Other(userID uuid.UUID) uuid.UUID {
	if t.UserA == userID {
		return t.UserB
	}
	return t.UserA
}

// ThreadSummary is a thread as seen from one participant's inbox.
type ThreadSummary struct {
	ID           uuid.UUID `json:"id"`
	OtherUserID  uuid.UUID `json:"other_user_id"`
	LastMessage  string    `json:"last_message"`
	LastActivity time.Time `json:"last_activity"`
}

// ThreadMessage is append-only. IDs grow with insertion order, which is what
// the cursor pagination relies on.
type ThreadMessage struct {
	ID        int64     `json:"id"`
	ThreadID  uuid.UUID `json:"thread_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CanonicalPair orders two user ids lexicographically on their string form.
// Every pair-keyed lookup normalizes through here before touching storage.
func CanonicalPair(a, b uuid.UUID) (lo, hi uuid.UUID) {
	if a.String() <= b.String() {
		return a, b
	}
	return b, a
}
