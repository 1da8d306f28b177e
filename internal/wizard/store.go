package wizard

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDraftNotFound     = errors.New("draft not found")
	ErrNotDraftOwner     = errors.New("draft belongs to another user")
	ErrSubmitInFlight    = errors.New("a submission is already in flight")
	ErrSubmitNotInFlight = errors.New("no submission in flight")
)

// Store keeps live wizard sessions in memory. Drafts are transient by
// contract: a process restart loses them, and abandoned drafts are swept on
// a schedule.
type Store struct {
	mu     sync.Mutex
	drafts map[string]*Draft
	maxAge time.Duration
}

func NewStore(maxAge time.Duration) *Store {
	return &Store{
		drafts: make(map[string]*Draft),
		maxAge: maxAge,
	}
}

// Create opens a new session positioned on the first step.
func (s *Store) Create(userID uint) *Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	d := &Draft{
		ID:        uuid.NewString(),
		UserID:    userID,
		Step:      StepOrder[0],
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.drafts[d.ID] = d

	return d
}

// With runs fn against the draft under the store lock. Returning an error
// from fn propagates unchanged; mutations made by fn stick either way.
func (s *Store) With(id string, userID uint, fn func(*Draft) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return ErrDraftNotFound
	}
	if d.UserID != userID {
		return ErrNotDraftOwner
	}

	d.UpdatedAt = time.Now()
	return fn(d)
}

// Get returns a copy of the draft for read-only use.
func (s *Store) Get(id string, userID uint) (Draft, error) {
	var out Draft
	err := s.With(id, userID, func(d *Draft) error {
		out = *d
		return nil
	})
	return out, err
}

// BeginSubmit sets the submission-in-flight flag. A second submit while one
// is outstanding is refused; resubmission after failure is an explicit user
// action, never automatic.
func (s *Store) BeginSubmit(id string, userID uint) error {
	return s.With(id, userID, func(d *Draft) error {
		if d.Submitting {
			return ErrSubmitInFlight
		}
		d.Submitting = true
		return nil
	})
}

// FinishSubmit resolves an in-flight submission. Success discards the draft;
// failure resets the flag and keeps the draft so no entered work is lost.
func (s *Store) FinishSubmit(id string, userID uint, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return ErrDraftNotFound
	}
	if d.UserID != userID {
		return ErrNotDraftOwner
	}
	if !d.Submitting {
		return ErrSubmitNotInFlight
	}

	if success {
		delete(s.drafts, id)
		return nil
	}

	d.Submitting = false
	d.UpdatedAt = time.Now()
	return nil
}

// Delete discards a draft regardless of state.
func (s *Store) Delete(id string, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return ErrDraftNotFound
	}
	if d.UserID != userID {
		return ErrNotDraftOwner
	}

	delete(s.drafts, id)
	return nil
}

// Sweep drops drafts idle past the store's max age and returns how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for id, d := range s.drafts {
		if d.UpdatedAt.Before(cutoff) && !d.Submitting {
			delete(s.drafts, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live drafts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}
