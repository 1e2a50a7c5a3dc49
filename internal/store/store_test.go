package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logpipe-io/logpipe/internal/model"
)

func strptr(s string) *string { return &s }

func TestInsertStartsQueued(t *testing.T) {
	s := New()

	entry := s.Insert(strptr("hello"))

	assert.NotEqual(t, uuid.Nil, entry.CorrelationID)
	assert.Equal(t, model.StatusQueued, entry.Status)
	assert.Equal(t, "hello", *entry.Message)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Nil(t, entry.ProcessedAt)
}

func TestInsertWithoutMessage(t *testing.T) {
	s := New()

	entry := s.Insert(nil)

	assert.Equal(t, model.StatusQueued, entry.Status)
	assert.Nil(t, entry.Message)
}

func TestGetUnknownID(t *testing.T) {
	s := New()

	_, err := s.Get(uuid.New())

	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkTerminalTransitionsOnce(t *testing.T) {
	s := New()
	entry := s.Insert(strptr("one shot"))

	err := s.MarkTerminal(entry.CorrelationID, model.StatusProcessed, "")
	require.NoError(t, err)

	got, err := s.Get(entry.CorrelationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessed, got.Status)
	require.NotNil(t, got.ProcessedAt)

	// A second terminal write must be rejected, never applied.
	err = s.MarkTerminal(entry.CorrelationID, model.StatusFailed, model.ReasonRandomFailure)
	require.ErrorIs(t, err, ErrAlreadyTerminal)

	got, err = s.Get(entry.CorrelationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessed, got.Status)
	assert.Empty(t, got.Reason)
}

func TestMarkTerminalFailedKeepsReason(t *testing.T) {
	s := New()
	entry := s.Insert(strptr("doomed"))

	err := s.MarkTerminal(entry.CorrelationID, model.StatusFailed, model.ReasonPayloadTooLarge)
	require.NoError(t, err)

	got, err := s.Get(entry.CorrelationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, model.ReasonPayloadTooLarge, got.Reason)
}

func TestMarkTerminalRejectsNonTerminalStatus(t *testing.T) {
	s := New()
	entry := s.Insert(strptr("stay queued"))

	err := s.MarkTerminal(entry.CorrelationID, model.StatusQueued, "")

	require.ErrorIs(t, err, ErrNotTerminal)
}

func TestMarkTerminalUnknownID(t *testing.T) {
	s := New()

	err := s.MarkTerminal(uuid.New(), model.StatusProcessed, "")

	require.ErrorIs(t, err, ErrNotFound)
}

func TestNextQueuedIsFIFO(t *testing.T) {
	s := New()
	first := s.Insert(strptr("first"))
	second := s.Insert(strptr("second"))

	got, ok := s.NextQueued()
	require.True(t, ok)
	assert.Equal(t, first.CorrelationID, got.CorrelationID)

	got, ok = s.NextQueued()
	require.True(t, ok)
	assert.Equal(t, second.CorrelationID, got.CorrelationID)

	_, ok = s.NextQueued()
	assert.False(t, ok)
}

func TestSnapshotReconciles(t *testing.T) {
	s := New()

	queued, processed := s.Snapshot()
	assert.Zero(t, queued)
	assert.Zero(t, processed)

	a := s.Insert(strptr("a"))
	b := s.Insert(strptr("b"))
	s.Insert(strptr("c"))

	queued, processed = s.Snapshot()
	assert.Equal(t, 3, queued)
	assert.Equal(t, 0, processed)

	require.NoError(t, s.MarkTerminal(a.CorrelationID, model.StatusProcessed, ""))
	require.NoError(t, s.MarkTerminal(b.CorrelationID, model.StatusFailed, model.ReasonRandomFailure))

	queued, processed = s.Snapshot()
	assert.Equal(t, 1, queued)
	assert.Equal(t, 1, processed)
}

func TestConcurrentInsertsYieldUniqueIDs(t *testing.T) {
	const n = 200
	s := New()

	ids := make(chan uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids <- s.Insert(strptr(fmt.Sprintf("log %d", i))).CorrelationID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[uuid.UUID]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate correlation id %s", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, n)

	queued, _ := s.Snapshot()
	assert.Equal(t, n, queued)
}
