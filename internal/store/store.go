package store

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sujalbistaa/raisehand/internal/models"
)

// MaxTextLength is the longest question accepted, in characters, after trimming.
const MaxTextLength = 300

var (
	ErrEmptyText      = errors.New("question text is empty")
	ErrTextTooLong    = errors.New("question text is too long")
	ErrNotFound       = errors.New("question not found")
	ErrAlreadyVoted   = errors.New("client already voted on question")
	ErrSnapshotFailed = errors.New("snapshot failed")
)

// Store owns the board. The collection is kept sorted at all times and
// every change is snapshotted before the mutating call returns.
//
// A mutation that returns an error wrapping ErrSnapshotFailed has still been
// applied in memory; only the durable copy is behind.
type Store struct {
	mu        sync.RWMutex
	questions []*models.Question
	snap      Snapshotter
	now       func() time.Time
	newID     func() string
}

// New loads the last snapshot from snap. A missing or unreadable snapshot
// leaves the board empty. A nil snap keeps the board in memory only.
func New(ctx context.Context, snap Snapshotter) *Store {
	s := &Store{
		snap:  snap,
		now:   time.Now,
		newID: uuid.NewString,
	}
	if snap == nil {
		return s
	}

	records, err := snap.Load(ctx)
	if err != nil {
		log.Printf("Could not load snapshot, starting with an empty board: %v", err)
		return s
	}
	s.questions = fromRecords(records)
	s.sort()
	log.Printf("Loaded %d questions from snapshot", len(s.questions))
	return s
}

// WithClock replaces the creation time source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// Create adds a question with the trimmed text.
func (s *Store) Create(ctx context.Context, text string) (models.PublicQuestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.PublicQuestion{}, ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return models.PublicQuestion{}, ErrTextTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q := &models.Question{
		ID:        s.newID(),
		Text:      text,
		Voters:    make(map[string]struct{}),
		CreatedAt: s.now(),
	}
	s.questions = append(s.questions, q)
	return q.Public(), s.commit(ctx)
}

// Upvote records one vote from clientID. A client can vote on a question once.
func (s *Store) Upvote(ctx context.Context, id, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.find(id)
	if q == nil {
		return ErrNotFound
	}
	if _, voted := q.Voters[clientID]; voted {
		return ErrAlreadyVoted
	}
	q.Voters[clientID] = struct{}{}
	q.Votes = len(q.Voters)
	return s.commit(ctx)
}

func (s *Store) ToggleAnswered(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.find(id)
	if q == nil {
		return ErrNotFound
	}
	q.Answered = !q.Answered
	return s.commit(ctx)
}

func (s *Store) TogglePinned(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.find(id)
	if q == nil {
		return ErrNotFound
	}
	q.Pinned = !q.Pinned
	return s.commit(ctx)
}

// Delete removes a question for good. Its id is never handed out again.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	s.questions = slices.Delete(s.questions, i, i+1)
	return s.commit(ctx)
}

// PublicView returns the board in display order without voter sets.
func (s *Store) PublicView() []models.PublicQuestion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := make([]models.PublicQuestion, 0, len(s.questions))
	for _, q := range s.questions {
		view = append(view, q.Public())
	}
	return view
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions)
}

// commit re-sorts and snapshots. Callers hold s.mu.
func (s *Store) commit(ctx context.Context) error {
	s.sort()
	if s.snap == nil {
		return nil
	}
	if err := s.snap.Save(ctx, toRecords(s.questions)); err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotFailed, err)
	}
	return nil
}

// sort orders pinned first, then unanswered, then by votes descending, then
// oldest first. The sort is stable so equal keys keep insertion order.
func (s *Store) sort() {
	slices.SortStableFunc(s.questions, compareQuestions)
}

func compareQuestions(a, b *models.Question) int {
	if a.Pinned != b.Pinned {
		if a.Pinned {
			return -1
		}
		return 1
	}
	if a.Answered != b.Answered {
		if a.Answered {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(b.Votes, a.Votes); c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

func (s *Store) find(id string) *models.Question {
	if i := s.index(id); i >= 0 {
		return s.questions[i]
	}
	return nil
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.questions, func(q *models.Question) bool {
		return q.ID == id
	})
}
