package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-pilot/internal/domain"
	"github.com/spec-kit/support-pilot/internal/repository"
)

// Store is the session service. All mutation goes through Apply, which
// serializes turns per user id and is idempotent on turn id. Reads
// return snapshots, so callers can run external lookups without
// holding any lock.
type Store struct {
	repo   repository.SessionRepository
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore builds the session store.
func NewStore(repo repository.SessionRepository, logger *zap.Logger) *Store {
	return &Store{
		repo:   repo,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// GetOrCreate returns a snapshot of the user's session, creating it on
// first contact.
func (s *Store) GetOrCreate(ctx context.Context, userID string, role domain.Role) (*domain.Session, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.repo.Get(ctx, userID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		sess = domain.NewSession(userID, role)
		if err := s.repo.Save(ctx, sess); err != nil {
			return nil, err
		}
		s.logger.Info("session created",
			zap.String("user_id", userID), zap.String("role", string(role)))
		return snapshot(sess), nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot(sess), nil
}

// Apply runs the mutation against the stored session under the user's
// lock and persists the result. A turn id that was already recorded is
// a no-op, making retried turns safe.
func (s *Store) Apply(ctx context.Context, userID, turnID string, mutate func(*domain.Session)) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if turnID != "" && sess.HasTurn(turnID) {
		s.logger.Warn("duplicate turn ignored",
			zap.String("user_id", userID), zap.String("turn_id", turnID))
		return nil
	}
	mutate(sess)
	return s.repo.Save(ctx, sess)
}

// Reset clears the session's history and flags, preserving identity
// and role. A missing session is not an error.
func (s *Store) Reset(ctx context.Context, userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.repo.Get(ctx, userID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	sess.Reset()
	s.logger.Info("session reset", zap.String("user_id", userID))
	return s.repo.Save(ctx, sess)
}

func snapshot(sess *domain.Session) *domain.Session {
	copied := *sess
	copied.History = append([]domain.Turn(nil), sess.History...)
	copied.State.KBAttempted = make(map[string]bool, len(sess.State.KBAttempted))
	for k, v := range sess.State.KBAttempted {
		copied.State.KBAttempted[k] = v
	}
	return &copied
}
