package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/logpipe-io/logpipe/internal/model"
)

var (
	// ErrNotFound is returned when no entry exists for a correlation ID.
	ErrNotFound = errors.New("entry not found")
	// ErrAlreadyTerminal is returned when a terminal write targets an
	// entry that already reached PROCESSED or FAILED.
	ErrAlreadyTerminal = errors.New("entry already terminal")
	// ErrNotTerminal is returned when MarkTerminal is called with a
	// status that is not PROCESSED or FAILED.
	ErrNotTerminal = errors.New("status is not terminal")
)

// Store holds every log entry created during the process lifetime, keyed by
// correlation ID. Entries are never evicted; a deployment that needs bounded
// memory should add TTL-based eviction here rather than around it.
//
// The ingestion path inserts, the worker resolves. All access goes through
// one mutex so concurrent inserts and terminal writes cannot corrupt the
// table or the queued order.
type Store struct {
	mu        sync.Mutex
	entries   map[uuid.UUID]*model.LogEntry
	queued    []uuid.UUID // FIFO of entries awaiting the worker
	queuedN   int
	processed int
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		entries: make(map[uuid.UUID]*model.LogEntry),
		now:     time.Now,
	}
}

// Insert creates a QUEUED entry for message and returns a copy of it.
// It never blocks on processing; the worker picks the entry up later.
// A nil message is accepted and preserved as nil.
func (s *Store) Insert(message *string) model.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &model.LogEntry{
		CorrelationID: uuid.New(),
		Message:       message,
		Status:        model.StatusQueued,
		CreatedAt:     s.now(),
	}
	s.entries[entry.CorrelationID] = entry
	s.queued = append(s.queued, entry.CorrelationID)
	s.queuedN++
	return *entry
}

// Get returns a copy of the entry for id, or ErrNotFound. An unknown id is
// never answered with a zero-value entry.
func (s *Store) Get(id uuid.UUID) (model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return model.LogEntry{}, ErrNotFound
	}
	return *entry, nil
}

// NextQueued pops the oldest entry still awaiting resolution. ok is false
// when nothing is queued. Worker-only.
func (s *Store) NextQueued() (model.LogEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queued) == 0 {
		return model.LogEntry{}, false
	}
	id := s.queued[0]
	s.queued = s.queued[1:]
	return *s.entries[id], true
}

// MarkTerminal records the worker's resolution of an entry. The transition
// happens at most once: a second call for the same entry fails with
// ErrAlreadyTerminal instead of silently overwriting the outcome.
func (s *Store) MarkTerminal(id uuid.UUID, status model.Status, reason string) error {
	if !status.Terminal() {
		return ErrNotTerminal
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	if entry.Status != model.StatusQueued {
		return ErrAlreadyTerminal
	}

	processedAt := s.now()
	entry.Status = status
	entry.Reason = reason
	entry.ProcessedAt = &processedAt

	s.queuedN--
	if status == model.StatusProcessed {
		s.processed++
	}
	return nil
}

// Snapshot returns the current queued and processed counts. The counters are
// maintained under the same lock as the entries, so they always agree with
// the table's contents.
func (s *Store) Snapshot() (queued, processed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queuedN, s.processed
}
