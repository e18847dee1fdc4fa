package impersonation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRecords(t *testing.T, store *MemoryStore) (open, closed Record) {
	t.Helper()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	closed = Record{ID: uuid.New(), AdminID: 1, TargetID: 3, StartedAt: base}
	require.NoError(t, store.Create(context.Background(), &closed))
	endedAt := base.Add(45 * time.Minute)
	require.NoError(t, store.Finalize(context.Background(), closed.ID, endedAt, 45))
	closed.EndedAt = &endedAt
	closed.DurationMinutes = 45

	open = Record{ID: uuid.New(), AdminID: 1, TargetID: 4, StartedAt: base.Add(time.Hour)}
	require.NoError(t, store.Create(context.Background(), &open))
	return open, closed
}

func TestMemoryStoreOneOpenRecordPerAdmin(t *testing.T) {
	store := NewMemoryStore()
	seedRecords(t, store)

	err := store.Create(context.Background(), &Record{ID: uuid.New(), AdminID: 1, TargetID: 5, StartedAt: time.Now()})
	assert.ErrorIs(t, err, ErrOpenRecordExists)

	// A different admin is unaffected.
	err = store.Create(context.Background(), &Record{ID: uuid.New(), AdminID: 2, TargetID: 5, StartedAt: time.Now()})
	assert.NoError(t, err)
}

func TestMemoryStoreFinalizeIsSingleShot(t *testing.T) {
	store := NewMemoryStore()
	open, _ := seedRecords(t, store)

	require.NoError(t, store.Finalize(context.Background(), open.ID, open.StartedAt.Add(time.Minute), 1))
	err := store.Finalize(context.Background(), open.ID, open.StartedAt.Add(2*time.Minute), 2)
	assert.ErrorIs(t, err, ErrNoOpenRecord)

	rec, _, err := store.List(context.Background(), Filter{AdminID: 1, TargetID: 4})
	require.NoError(t, err)
	require.Len(t, rec, 1)
	assert.Equal(t, int64(1), rec[0].DurationMinutes, "second finalize must not overwrite")

	err = store.Finalize(context.Background(), uuid.New(), time.Now(), 0)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestMemoryStoreAppendActionRequiresOpenRecord(t *testing.T) {
	store := NewMemoryStore()
	open, closed := seedRecords(t, store)

	require.NoError(t, store.AppendAction(context.Background(), open.ID, Action{At: time.Now(), Description: "viewed invoices"}))
	err := store.AppendAction(context.Background(), closed.ID, Action{At: time.Now(), Description: "late entry"})
	assert.ErrorIs(t, err, ErrNoOpenRecord)
}

func TestMemoryStoreListFiltersAndPages(t *testing.T) {
	store := NewMemoryStore()
	open, closed := seedRecords(t, store)

	all, total, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, all, 2)
	assert.Equal(t, open.ID, all[0].ID, "newest first")
	assert.Equal(t, closed.ID, all[1].ID)

	openOnly, total, err := store.List(context.Background(), Filter{Status: StatusOpen})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, openOnly, 1)
	assert.Equal(t, open.ID, openOnly[0].ID)

	closedOnly, _, err := store.List(context.Background(), Filter{Status: StatusClosed})
	require.NoError(t, err)
	require.Len(t, closedOnly, 1)
	assert.Equal(t, closed.ID, closedOnly[0].ID)

	paged, total, err := store.List(context.Background(), Filter{Offset: 1, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, total, "total counts all matches, not the page")
	require.Len(t, paged, 1)
	assert.Equal(t, closed.ID, paged[0].ID)

	past, total, err := store.List(context.Background(), Filter{Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, past)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	open, _ := seedRecords(t, store)
	require.NoError(t, store.AppendAction(context.Background(), open.ID, Action{At: time.Now(), Description: "first"}))

	rec, err := store.OpenByAdmin(context.Background(), 1)
	require.NoError(t, err)
	rec.Actions[0].Description = "mutated"
	rec.TargetName = "mutated"

	again, err := store.OpenByAdmin(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "first", again.Actions[0].Description)
	assert.Empty(t, again.TargetName)
}

func TestMemoryStoreListOpenOldestFirst(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	newer := Record{ID: uuid.New(), AdminID: 2, StartedAt: base.Add(time.Hour)}
	older := Record{ID: uuid.New(), AdminID: 1, StartedAt: base}
	require.NoError(t, store.Create(context.Background(), &newer))
	require.NoError(t, store.Create(context.Background(), &older))

	out, err := store.ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, older.ID, out[0].ID)
	assert.Equal(t, newer.ID, out[1].ID)
}
