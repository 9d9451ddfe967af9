package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sweepStore wraps stubStore to record the maintenance calls.
type sweepStore struct {
	stubStore

	mu        sync.Mutex
	deletedAt []time.Duration
	promotes  int
}

func (s *sweepStore) DeleteTerminalOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedAt = append(s.deletedAt, age)
	return 2, nil
}

func (s *sweepStore) PromotePendingApproval(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promotes++
	return 1, nil
}

func TestSweeper(t *testing.T) {
	t.Parallel()

	t.Run("sweep runs retention and approval maintenance", func(t *testing.T) {
		t.Parallel()

		st := &sweepStore{}
		retention := 7 * 24 * time.Hour
		s, err := NewSweeper(st, "@hourly", retention, testLogger())
		require.NoError(t, err)

		s.sweep()

		st.mu.Lock()
		defer st.mu.Unlock()
		require.Len(t, st.deletedAt, 1)
		assert.Equal(t, retention, st.deletedAt[0])
		assert.Equal(t, 1, st.promotes)
	})

	t.Run("rejects an invalid schedule", func(t *testing.T) {
		t.Parallel()

		_, err := NewSweeper(&sweepStore{}, "not a schedule", time.Hour, testLogger())
		assert.Error(t, err)
	})
}
