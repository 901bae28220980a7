package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-pilot/internal/domain"
	"github.com/spec-kit/support-pilot/internal/repository"
)

func newTestStore() *Store {
	return NewStore(repository.NewMemorySessionRepository(), zap.NewNop())
}

func TestGetOrCreate(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)
	assert.Equal(t, "u-1", first.UserID)
	assert.Equal(t, domain.RoleEndUser, first.Role)
	assert.Empty(t, first.History)
	assert.False(t, first.State.Escalated)

	// Second call returns the same session, not a new one.
	second, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestGetOrCreateReturnsSnapshot(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)

	// Mutating the snapshot must not leak into the stored session.
	sess.State.KBAttempted["vpn"] = true
	sess.History = append(sess.History, domain.Turn{TurnID: "rogue"})

	fresh, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)
	assert.False(t, fresh.KBAttempted("vpn"))
	assert.Empty(t, fresh.History)
}

func TestApplyRecordsTurn(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)

	err = store.Apply(ctx, "u-1", "turn-1", func(s *domain.Session) {
		s.MarkKBAttempted("vpn")
		s.RecordTurn("turn-1", "trace-1", "vpn broken", "restart it")
	})
	require.NoError(t, err)

	sess, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)
	require.Len(t, sess.History, 1)
	assert.Equal(t, "restart it", sess.LastResponse())
	assert.True(t, sess.KBAttempted("vpn"))
	assert.Equal(t, "vpn", sess.State.LastTopic)
}

func TestApplyIsIdempotentOnTurnID(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)

	record := func() error {
		return store.Apply(ctx, "u-1", "turn-1", func(s *domain.Session) {
			s.RecordTurn("turn-1", "trace-1", "hello", "hi")
		})
	}
	require.NoError(t, record())
	require.NoError(t, record())

	sess, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)
	assert.Len(t, sess.History, 1)
}

func TestApplySerializesConcurrentTurns(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)

	const turns = 25
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			turnID := string(rune('a' + n%26))
			_ = store.Apply(ctx, "u-1", turnID+"-turn", func(s *domain.Session) {
				s.RecordTurn(turnID+"-turn", "trace", "q", "a")
			})
		}(i)
	}
	wg.Wait()

	sess, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)
	// 25 goroutines over 25 distinct turn ids, each recorded exactly once.
	assert.Len(t, sess.History, 25)
}

func TestReset(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	_, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)
	err = store.Apply(ctx, "u-1", "turn-1", func(s *domain.Session) {
		s.MarkKBAttempted("wifi")
		s.MarkEscalated()
		s.RecordTurn("turn-1", "trace-1", "wifi down", "escalated")
	})
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx, "u-1"))

	sess, err := store.GetOrCreate(ctx, "u-1", domain.RoleEndUser)
	require.NoError(t, err)
	assert.Equal(t, "u-1", sess.UserID)
	assert.Equal(t, domain.RoleEndUser, sess.Role)
	assert.Empty(t, sess.History)
	assert.False(t, sess.State.Escalated)
	assert.False(t, sess.KBAttempted("wifi"))
}

func TestResetMissingSessionIsNoError(t *testing.T) {
	store := newTestStore()
	assert.NoError(t, store.Reset(context.Background(), "nobody"))
}
