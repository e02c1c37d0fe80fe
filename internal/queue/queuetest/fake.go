// internal/queue/queuetest/fake.go
package queuetest

import (
	"context"
	"sync"
	"time"

	"notification-queue/internal/common/database"
	"notification-queue/internal/models"
	"notification-queue/internal/queue"
)

// Store is a queue.Store whose behaviour is set per test through func fields.
// Unset fields succeed with zero values. Created records are kept in order.
type Store struct {
	CreateFunc         func(ctx context.Context, rec *models.QueueEmail) error
	GetFunc            func(ctx context.Context, id string) (*models.QueueEmail, error)
	ListFunc           func(ctx context.Context, f queue.Filter) ([]models.QueueEmail, error)
	CountFunc          func(ctx context.Context, f queue.Filter) (int, error)
	SearchFunc         func(ctx context.Context, q string, page database.Page) ([]models.QueueEmail, error)
	CancelMatchingFunc func(ctx context.Context, m queue.Match) (int64, error)
	DeleteMatchingFunc func(ctx context.Context, m queue.Match) (int64, error)
	CleanupFunc        func(ctx context.Context, key string, since time.Time) (int64, error)
	ClaimFunc          func(ctx context.Context, limit int, now time.Time, entry models.HistoryEntry) ([]models.QueueEmail, error)
	CompleteFunc       func(ctx context.Context, id string, o queue.Outcome) error
	ReleaseFunc        func(ctx context.Context, id, reason string) error
	UnclaimFunc        func(ctx context.Context, id string, entry models.HistoryEntry) error
	MarkReadFunc       func(ctx context.Context, id string, entry models.HistoryEntry) (bool, error)
	ApplyRerenderFunc  func(ctx context.Context, id string, r queue.Rerender) (*models.QueueEmail, error)

	mu        sync.Mutex
	Created   []models.QueueEmail
	Completed map[string]queue.Outcome
	Released  map[string]string
	Unclaimed map[string]models.HistoryEntry
	Matches   []queue.Match
}

var _ queue.Store = (*Store)(nil)

func (s *Store) Create(ctx context.Context, rec *models.QueueEmail) error {
	if s.CreateFunc != nil {
		if err := s.CreateFunc(ctx, rec); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Created = append(s.Created, *rec)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.QueueEmail, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx, id)
	}
	return nil, queue.ErrNotFound
}

func (s *Store) List(ctx context.Context, f queue.Filter) ([]models.QueueEmail, error) {
	if s.ListFunc != nil {
		return s.ListFunc(ctx, f)
	}
	return nil, nil
}

func (s *Store) Count(ctx context.Context, f queue.Filter) (int, error) {
	if s.CountFunc != nil {
		return s.CountFunc(ctx, f)
	}
	return 0, nil
}

func (s *Store) Search(ctx context.Context, q string, page database.Page) ([]models.QueueEmail, error) {
	if s.SearchFunc != nil {
		return s.SearchFunc(ctx, q, page)
	}
	return nil, nil
}

func (s *Store) CancelMatching(ctx context.Context, m queue.Match) (int64, error) {
	s.recordMatch(m)
	if s.CancelMatchingFunc != nil {
		return s.CancelMatchingFunc(ctx, m)
	}
	return 0, nil
}

func (s *Store) DeleteMatching(ctx context.Context, m queue.Match) (int64, error) {
	s.recordMatch(m)
	if s.DeleteMatchingFunc != nil {
		return s.DeleteMatchingFunc(ctx, m)
	}
	return 0, nil
}

func (s *Store) Cleanup(ctx context.Context, key string, since time.Time) (int64, error) {
	if s.CleanupFunc != nil {
		return s.CleanupFunc(ctx, key, since)
	}
	return 0, nil
}

func (s *Store) Claim(ctx context.Context, limit int, now time.Time, entry models.HistoryEntry) ([]models.QueueEmail, error) {
	if s.ClaimFunc != nil {
		return s.ClaimFunc(ctx, limit, now, entry)
	}
	return nil, nil
}

func (s *Store) Complete(ctx context.Context, id string, o queue.Outcome) error {
	if s.CompleteFunc != nil {
		if err := s.CompleteFunc(ctx, id, o); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Completed == nil {
		s.Completed = map[string]queue.Outcome{}
	}
	s.Completed[id] = o
	return nil
}

func (s *Store) Release(ctx context.Context, id, reason string) error {
	if s.ReleaseFunc != nil {
		if err := s.ReleaseFunc(ctx, id, reason); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Released == nil {
		s.Released = map[string]string{}
	}
	s.Released[id] = reason
	return nil
}

func (s *Store) Unclaim(ctx context.Context, id string, entry models.HistoryEntry) error {
	if s.UnclaimFunc != nil {
		if err := s.UnclaimFunc(ctx, id, entry); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unclaimed == nil {
		s.Unclaimed = map[string]models.HistoryEntry{}
	}
	s.Unclaimed[id] = entry
	return nil
}

func (s *Store) MarkRead(ctx context.Context, id string, entry models.HistoryEntry) (bool, error) {
	if s.MarkReadFunc != nil {
		return s.MarkReadFunc(ctx, id, entry)
	}
	return false, nil
}

func (s *Store) ApplyRerender(ctx context.Context, id string, r queue.Rerender) (*models.QueueEmail, error) {
	if s.ApplyRerenderFunc != nil {
		return s.ApplyRerenderFunc(ctx, id, r)
	}
	return nil, queue.ErrNotFound
}

func (s *Store) recordMatch(m queue.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Matches = append(s.Matches, m)
}
