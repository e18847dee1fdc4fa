package impersonation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	Store
}

func (f *failingStore) ListOpen(ctx context.Context) ([]Record, error) {
	return nil, errors.New("connection refused")
}

func TestOpenRecordCountTracksStore(t *testing.T) {
	store := NewMemoryStore()
	count := OpenRecordCount(store, nil)

	assert.Zero(t, count())

	first := Record{ID: uuid.New(), AdminID: 1, TargetID: 3, SessionID: "sess-1", StartedAt: time.Now().UTC()}
	second := Record{ID: uuid.New(), AdminID: 2, TargetID: 4, SessionID: "sess-2", StartedAt: time.Now().UTC()}
	require.NoError(t, store.Create(context.Background(), &first))
	require.NoError(t, store.Create(context.Background(), &second))

	assert.Equal(t, float64(2), count())

	require.NoError(t, store.Finalize(context.Background(), first.ID, time.Now().UTC(), 0))
	assert.Equal(t, float64(1), count())
}

func TestOpenRecordCountReportsZeroOnStoreError(t *testing.T) {
	count := OpenRecordCount(&failingStore{}, nil)
	assert.Zero(t, count())
}
