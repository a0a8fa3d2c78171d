package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/confide/internal/db"
	"github.com/lalith-99/confide/internal/models"
	"github.com/lalith-99/confide/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	conn, err := db.OpenSQLite(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn)
}

func createUser(t *testing.T, s repository.Store, name string) uuid.UUID {
	t.Helper()
	u, err := s.Users.Create(context.Background(), name)
	require.NoError(t, err)
	return u.ID
}

func TestUserStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := createUser(t, s, "ana")

	u, err := s.Users.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "ana", u.DisplayName)

	ok, err := s.Users.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	missing, err := s.Users.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	ok, err = s.Users.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNarrativeStore_EligibleOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	me := createUser(t, s, "me")
	other := createUser(t, s, "other")

	base := time.Now().Add(-time.Hour)
	seed := []models.Narrative{
		{OwnerID: me, Body: "mine published", Tags: []string{"grief"}, Status: models.NarrativePublished, Shared: true, CreatedAt: base},
		{OwnerID: me, Body: "mine draft", Status: models.NarrativeDraft, Shared: true, CreatedAt: base},
		{OwnerID: other, Body: "older", Status: models.NarrativePublished, Shared: true, CreatedAt: base.Add(time.Minute)},
		{OwnerID: other, Body: "newer", Tags: []string{"loss", "work"}, Status: models.NarrativePublished, Shared: true, CreatedAt: base.Add(2 * time.Minute)},
		{OwnerID: other, Body: "private", Status: models.NarrativePublished, Shared: false, CreatedAt: base},
	}
	for _, n := range seed {
		_, err := s.Narratives.Create(ctx, n)
		require.NoError(t, err)
	}

	mine, err := s.Narratives.ListEligibleByOwner(ctx, me, 3)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "mine published", mine[0].Body)
	assert.Equal(t, []string{"grief"}, mine[0].Tags)

	others, err := s.Narratives.ListEligibleExcluding(ctx, me, 300)
	require.NoError(t, err)
	require.Len(t, others, 2)
	assert.Equal(t, "newer", others[0].Body, "newest first")
	assert.Equal(t, []string{"loss", "work"}, others[0].Tags)
	assert.Equal(t, "older", others[1].Body)

	capped, err := s.Narratives.ListEligibleExcluding(ctx, me, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)
}

func TestNarrativeStore_MalformedTagsReadAsEmpty(t *testing.T) {
	conn, err := db.OpenSQLite(t.TempDir())
	require.NoError(t, err)
	defer conn.Close()
	s := NewStore(conn)
	ctx := context.Background()
	owner := createUser(t, s, "owner")

	n, err := s.Narratives.Create(ctx, models.Narrative{OwnerID: owner, Body: "x", Status: models.NarrativePublished, Shared: true})
	require.NoError(t, err)
	_, err = conn.Exec(`UPDATE narratives SET tags_json = 'not json' WHERE id = ?`, n.ID)
	require.NoError(t, err)

	list, err := s.Narratives.ListEligibleExcluding(ctx, uuid.New(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Tags)
}

func TestRelationshipStore_InsertPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, s, "a")
	b := createUser(t, s, "b")

	inserted, err := s.Relationships.InsertPending(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same direction again is absorbed.
	inserted, err = s.Relationships.InsertPending(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Reverse direction is blocked by the existing edge.
	inserted, err = s.Relationships.InsertPending(ctx, b, a)
	require.NoError(t, err)
	assert.False(t, inserted)

	r, err := s.Relationships.Get(ctx, a, b)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, models.RelationshipPending, r.Status)

	reverse, err := s.Relationships.Get(ctx, b, a)
	require.NoError(t, err)
	assert.Nil(t, reverse)
}

func TestRelationshipStore_Accept(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, s, "a")
	b := createUser(t, s, "b")

	_, err := s.Relationships.InsertPending(ctx, a, b)
	require.NoError(t, err)

	ok, err := s.Relationships.HasAccepted(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, ok)

	changed, err := s.Relationships.AcceptPending(ctx, a, b)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.Relationships.AcceptPending(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, changed, "second accept is a no-op")

	require.NoError(t, s.Relationships.UpsertAccepted(ctx, b, a))
	require.NoError(t, s.Relationships.UpsertAccepted(ctx, b, a))

	for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
		ok, err := s.Relationships.HasAccepted(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestRelationshipStore_UpsertAcceptedKeepsBlocked(t *testing.T) {
	conn, err := db.OpenSQLite(t.TempDir())
	require.NoError(t, err)
	defer conn.Close()
	s := NewStore(conn)
	ctx := context.Background()
	a := createUser(t, s, "a")
	b := createUser(t, s, "b")

	_, err = conn.Exec(`INSERT INTO relationships (subject_id, other_id, status, created_at) VALUES (?, ?, 'blocked', 0)`, a, b)
	require.NoError(t, err)

	require.NoError(t, s.Relationships.UpsertAccepted(ctx, a, b))

	r, err := s.Relationships.Get(ctx, a, b)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, models.RelationshipBlocked, r.Status)
}

func TestRelationshipStore_AcceptPendingBlockedReverse(t *testing.T) {
	conn, err := db.OpenSQLite(t.TempDir())
	require.NoError(t, err)
	defer conn.Close()
	s := NewStore(conn)
	ctx := context.Background()
	a := createUser(t, s, "a")
	b := createUser(t, s, "b")

	_, err = s.Relationships.InsertPending(ctx, a, b)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO relationships (subject_id, other_id, status, created_at) VALUES (?, ?, 'blocked', 0)`, b, a)
	require.NoError(t, err)

	changed, err := s.Relationships.AcceptPending(ctx, a, b)
	require.NoError(t, err)
	assert.False(t, changed)

	r, err := s.Relationships.Get(ctx, a, b)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, models.RelationshipPending, r.Status)
}

func TestUnlockStore_Idempotent(t *testing.T) {
	conn, err := db.OpenSQLite(t.TempDir())
	require.NoError(t, err)
	defer conn.Close()
	s := NewStore(conn)
	ctx := context.Background()
	payer := createUser(t, s, "payer")
	target := createUser(t, s, "target")

	u, err := s.Unlocks.Get(ctx, payer, target)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, s.Unlocks.UpsertPaid(ctx, payer, target, "midtrans", "tx-1"))
	require.NoError(t, s.Unlocks.UpsertPaid(ctx, payer, target, "midtrans", "tx-2"))

	var count int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM unlocks`).Scan(&count))
	assert.Equal(t, 1, count)

	u, err = s.Unlocks.Get(ctx, payer, target)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.True(t, u.Paid)
	assert.Equal(t, "tx-2", u.ProviderRef)

	// Directional: the reverse pair is untouched.
	rev, err := s.Unlocks.Get(ctx, target, payer)
	require.NoError(t, err)
	assert.Nil(t, rev)
}

func TestThreadStore_CreateOrGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lo, hi := models.CanonicalPair(createUser(t, s, "a"), createUser(t, s, "b"))

	first, created, err := s.Threads.CreateOrGet(ctx, lo, hi)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.Threads.CreateOrGet(ctx, lo, hi)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	got, err := s.Threads.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, lo, got.UserA)
	assert.Equal(t, hi, got.UserB)

	none, err := s.Threads.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestThreadStore_ConcurrentCreateOrGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lo, hi := models.CanonicalPair(createUser(t, s, "a"), createUser(t, s, "b"))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[uuid.UUID]int{}
		creates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			th, created, err := s.Threads.CreateOrGet(ctx, lo, hi)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			ids[th.ID]++
			if created {
				creates++
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.Equal(t, 1, creates)
}

func TestThreadStore_ListByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	me := createUser(t, s, "me")
	x := createUser(t, s, "x")
	y := createUser(t, s, "y")

	lo, hi := models.CanonicalPair(me, x)
	withX, _, err := s.Threads.CreateOrGet(ctx, lo, hi)
	require.NoError(t, err)
	lo, hi = models.CanonicalPair(me, y)
	_, _, err = s.Threads.CreateOrGet(ctx, lo, hi)
	require.NoError(t, err)

	_, err = s.Messages.Create(ctx, withX.ID, me, "hello")
	require.NoError(t, err)
	_, err = s.Messages.Create(ctx, withX.ID, x, "hi back")
	require.NoError(t, err)

	list, err := s.Threads.ListByUser(ctx, me)
	require.NoError(t, err)
	require.Len(t, list, 2)

	byOther := map[uuid.UUID]models.ThreadSummary{}
	for _, ts := range list {
		byOther[ts.OtherUserID] = ts
	}
	assert.Equal(t, "hi back", byOther[x].LastMessage)
	assert.Equal(t, "", byOther[y].LastMessage)

	theirs, err := s.Threads.ListByUser(ctx, x)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, me, theirs[0].OtherUserID)
}

func TestMessageStore_Paging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, s, "a")
	b := createUser(t, s, "b")
	lo, hi := models.CanonicalPair(a, b)
	th, _, err := s.Threads.CreateOrGet(ctx, lo, hi)
	require.NoError(t, err)

	var ids []int64
	for _, body := range []string{"one", "two", "three", "four"} {
		m, err := s.Messages.Create(ctx, th.ID, a, body)
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	latest, err := s.Messages.ListByThread(ctx, th.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "three", latest[0].Body, "oldest first within the page")
	assert.Equal(t, "four", latest[1].Body)

	older, err := s.Messages.ListByThread(ctx, th.ID, latest[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, ids[0], older[0].ID)
	assert.Equal(t, ids[1], older[1].ID)
}
