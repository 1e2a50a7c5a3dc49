package worker

import (
	"context"
	"math/rand"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/logpipe-io/logpipe/internal/model"
	"github.com/logpipe-io/logpipe/internal/store"
)

// Config controls the worker's cadence and processing policy.
type Config struct {
	// Interval between ticks; one entry is resolved per tick.
	Interval time.Duration
	// MaxMessageChars is the payload ceiling in characters. Longer
	// messages fail deterministically.
	MaxMessageChars int
	// FailureRate is the probability that an in-limit entry fails
	// anyway, modeling a flaky downstream dependency.
	FailureRate float64
	// Decide overrides the random failure decision. Nil uses FailureRate
	// against the package rand source; tests inject a deterministic one.
	Decide func() bool
}

// Worker drains QUEUED entries on a fixed cadence and resolves each to a
// terminal state. Each entry is resolved independently: a failed terminal
// write is logged and the loop keeps going.
type Worker struct {
	store      *store.Store
	interval   time.Duration
	maxChars   int
	shouldFail func() bool
	logger     zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New builds a worker over st. It does not start the loop.
func New(st *store.Store, cfg Config, logger zerolog.Logger) *Worker {
	shouldFail := cfg.Decide
	if shouldFail == nil {
		rate := cfg.FailureRate
		shouldFail = func() bool { return rand.Float64() < rate }
	}
	return &Worker{
		store:      st,
		interval:   cfg.Interval,
		maxChars:   cfg.MaxMessageChars,
		shouldFail: shouldFail,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the polling loop in its own goroutine. The loop exits when
// ctx is cancelled or Stop is called; the ticker is released either way.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

// Stop halts the loop and waits for any in-flight tick to finish, so an
// entry is either fully resolved or untouched. Must follow Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

// tick resolves at most one entry.
func (w *Worker) tick() {
	entry, ok := w.store.NextQueued()
	if !ok {
		return
	}

	status, reason := w.resolve(entry)
	if err := w.store.MarkTerminal(entry.CorrelationID, status, reason); err != nil {
		w.logger.Error().
			Err(err).
			Str("correlation_id", entry.CorrelationID.String()).
			Msg("terminal write failed")
		return
	}
	w.logger.Debug().
		Str("correlation_id", entry.CorrelationID.String()).
		Str("status", string(status)).
		Msg("entry resolved")
}

// resolve classifies one entry. The size check is deterministic and always
// wins over the injected failure. An absent message passes the size check
// trivially. The message itself is never touched.
func (w *Worker) resolve(entry model.LogEntry) (model.Status, string) {
	if entry.Message != nil && utf8.RuneCountInString(*entry.Message) > w.maxChars {
		return model.StatusFailed, model.ReasonPayloadTooLarge
	}
	if w.shouldFail() {
		return model.StatusFailed, model.ReasonRandomFailure
	}
	return model.StatusProcessed, ""
}
