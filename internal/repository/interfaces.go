package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/confide/internal/models"
)

// Every method takes ctx first: it is request-scoped and carries the
// caller's deadline down to the driver.
//
// Lookups return nil, nil when the row does not exist. Callers decide
// whether absence is an error.

// UserRepository is the identity table every other row references.
type UserRepository interface {
	// Create inserts a user with a fresh id.
	Create(ctx context.Context, displayName string) (*models.User, error)

	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// Exists is the cheap check used before creating rows that point at a user.
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
}

// NarrativeRepository reads the published+shared pool. Narratives are written
// by the authoring workflow; Create exists for seeding and tests.
type NarrativeRepository interface {
	Create(ctx context.Context, n models.Narrative) (*models.Narrative, error)

	// ListEligibleByOwner returns the owner's published+shared narratives, newest first.
	ListEligibleByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Narrative, error)

	// ListEligibleExcluding returns everyone else's published+shared narratives, newest first.
	ListEligibleExcluding(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Narrative, error)
}

// RelationshipRepository stores directed consent edges.
type RelationshipRepository interface {
	// InsertPending creates subject->other as pending unless an edge already
	// exists in either direction. Reports whether a row was written.
	InsertPending(ctx context.Context, subjectID, otherID uuid.UUID) (bool, error)

	// AcceptPending flips from->to from pending to accepted in one conditional
	// update, unless to->from is blocked. Reports whether a row changed.
	AcceptPending(ctx context.Context, fromID, toID uuid.UUID) (bool, error)

	// UpsertAccepted writes subject->other as accepted. A blocked edge is left alone.
	UpsertAccepted(ctx context.Context, subjectID, otherID uuid.UUID) error

	Get(ctx context.Context, subjectID, otherID uuid.UUID) (*models.Relationship, error)

	// HasAccepted checks the single directed edge subject->other.
	HasAccepted(ctx context.Context, subjectID, otherID uuid.UUID) (bool, error)
}

// UnlockRepository is the payment entitlement ledger.
type UnlockRepository interface {
	// UpsertPaid inserts or updates the (payer, target) row with paid = true
	// and the latest provider reference. Safe to repeat.
	UpsertPaid(ctx context.Context, payerID, targetID uuid.UUID, provider, providerRef string) error

	Get(ctx context.Context, payerID, targetID uuid.UUID) (*models.Unlock, error)
}

// ThreadRepository maps canonical user pairs to threads.
type ThreadRepository interface {
	// CreateOrGet inserts the (lo, hi) thread or, when it already exists,
	// returns the existing row. created is true only for the inserting call.
	// lo must sort before hi.
	CreateOrGet(ctx context.Context, lo, hi uuid.UUID) (thread *models.Thread, created bool, err error)

	GetByID(ctx context.Context, threadID uuid.UUID) (*models.Thread, error)

	// ListByUser returns the user's threads with their latest message.
	// Order is unspecified; callers sort.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ThreadSummary, error)
}

// MessageRepository handles thread message persistence.
type MessageRepository interface {
	Create(ctx context.Context, threadID, senderID uuid.UUID, body string) (*models.ThreadMessage, error)

	// ListByThread returns up to limit messages older than the before cursor
	// (0 = from the latest), oldest first.
	ListByThread(ctx context.Context, threadID uuid.UUID, before int64, limit int) ([]models.ThreadMessage, error)
}

// Store bundles every repository one backend provides.
type Store struct {
	Users         UserRepository
	Narratives    NarrativeRepository
	Relationships RelationshipRepository
	Unlocks       UnlockRepository
	Threads       ThreadRepository
	Messages      MessageRepository
}
