package notify

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestOutbox(t *testing.T) *OutboxStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	s := NewOutboxStore(db)
	require.NoError(t, s.AutoMigrate())
	return s
}

func dispatch(recipient string) *Dispatch {
	return &Dispatch{
		ID:         uuid.New().String(),
		Kind:       KindEmail,
		Recipient:  recipient,
		Subject:    "resource approved",
		ResourceID: "svc-1",
		Action:     "verify",
	}
}

func TestOutbox_ClaimCompleteCycle(t *testing.T) {
	s := newTestOutbox(t)

	d := dispatch("alice@example.org")
	require.NoError(t, s.Enqueue(d))

	claimed, err := s.Claim(3)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, d.ID, claimed.ID)
	assert.Equal(t, StateRunning, claimed.State)
	assert.Equal(t, 1, claimed.AttemptCount)

	// Nothing else is queued.
	second, err := s.Claim(3)
	require.NoError(t, err)
	assert.Nil(t, second)

	require.NoError(t, s.Complete(claimed.ID))
	got, err := s.Get(claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDelivered, got.State)
	assert.True(t, got.IsTerminal())
	assert.NotNil(t, got.DeliveredAt)
}

func TestOutbox_FailRetriesThenGivesUp(t *testing.T) {
	s := newTestOutbox(t)
	d := dispatch("alice@example.org")
	require.NoError(t, s.Enqueue(d))

	// First two failures requeue.
	for i := 0; i < 2; i++ {
		claimed, err := s.Claim(3)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		require.NoError(t, s.Fail(claimed.ID, "smtp down", 3))

		got, err := s.Get(d.ID)
		require.NoError(t, err)
		assert.Equal(t, StateQueued, got.State)
		assert.Equal(t, "smtp down", got.LastError)
	}

	// Third failure exhausts the retry budget.
	claimed, err := s.Claim(3)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.NoError(t, s.Fail(claimed.ID, "smtp down", 3))

	got, err := s.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
	assert.True(t, got.IsTerminal())

	next, err := s.Claim(3)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestOutbox_ListByResource(t *testing.T) {
	s := newTestOutbox(t)
	require.NoError(t, s.Enqueue(dispatch("a@example.org")))
	require.NoError(t, s.Enqueue(dispatch("b@example.org")))
	other := dispatch("c@example.org")
	other.ResourceID = "svc-2"
	require.NoError(t, s.Enqueue(other))

	list, err := s.ListByResource("svc-1", 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestOutbox_CleanupStuck(t *testing.T) {
	s := newTestOutbox(t)
	d := dispatch("alice@example.org")
	require.NoError(t, s.Enqueue(d))

	claimed, err := s.Claim(3)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// A zero claim timeout treats every running dispatch as stuck.
	time.Sleep(time.Millisecond)
	n, err := s.CleanupStuck(0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := s.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, got.State)
}
