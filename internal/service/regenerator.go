package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nitesh/newsfront/internal/backend"
	dbtypes "github.com/nitesh/newsfront/internal/db"
	"github.com/nitesh/newsfront/internal/store"
)

const defaultRegenerateTimeout = 30 * time.Second

// Outcome is the recorded result of the latest regeneration request for an event.
type Outcome struct {
	Attempted bool
	Trigger   string
	Err       error
	At        time.Time
}

type attempt struct {
	once    sync.Once
	done    chan struct{}
	trigger string
	err     error
	at      time.Time
}

// Regenerator issues insights-regeneration requests. The automatic path fires
// at most once per event until Reset.
type Regenerator struct {
	backend Backend
	ledger  Ledger
	logger  *zerolog.Logger
	timeout time.Duration

	mu       sync.Mutex
	attempts map[int64]*attempt
}

func NewRegenerator(b Backend, ledger Ledger, timeout time.Duration, logger *zerolog.Logger) *Regenerator {
	if timeout <= 0 {
		timeout = defaultRegenerateTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Regenerator{
		backend:  b,
		ledger:   ledger,
		logger:   logger,
		timeout:  timeout,
		attempts: make(map[int64]*attempt),
	}
}

// TriggerOnce requests regeneration for eventID unless a request was already
// made, and returns the outcome. Concurrent callers share the single call.
// The call is detached from ctx; ctx only bounds how long the caller waits.
func (r *Regenerator) TriggerOnce(ctx context.Context, eventID int64) Outcome {
	if eventID <= 0 {
		return Outcome{Err: backend.ErrEmptyID}
	}

	r.mu.Lock()
	a, ok := r.attempts[eventID]
	if !ok {
		a = &attempt{done: make(chan struct{}), trigger: store.TriggerAuto}
		r.attempts[eventID] = a
	}
	r.mu.Unlock()

	a.once.Do(func() {
		go func() {
			a.err = r.call(ctx, eventID, store.TriggerAuto)
			a.at = time.Now()
			close(a.done)
		}()
	})

	select {
	case <-a.done:
		return Outcome{Attempted: true, Trigger: a.trigger, Err: a.err, At: a.at}
	case <-ctx.Done():
		return Outcome{Attempted: true, Trigger: a.trigger, Err: ctx.Err()}
	}
}

// Trigger always requests regeneration and replaces any recorded outcome.
func (r *Regenerator) Trigger(ctx context.Context, eventID int64) error {
	if eventID <= 0 {
		return backend.ErrEmptyID
	}

	err := r.call(ctx, eventID, store.TriggerManual)

	a := &attempt{done: make(chan struct{}), trigger: store.TriggerManual, err: err, at: time.Now()}
	a.once.Do(func() {})
	close(a.done)

	r.mu.Lock()
	r.attempts[eventID] = a
	r.mu.Unlock()

	return err
}

// Lookup returns the recorded outcome for eventID without triggering anything.
// An in-flight request reports Attempted with no error.
func (r *Regenerator) Lookup(eventID int64) Outcome {
	r.mu.Lock()
	a, ok := r.attempts[eventID]
	r.mu.Unlock()
	if !ok {
		return Outcome{}
	}

	select {
	case <-a.done:
		return Outcome{Attempted: true, Trigger: a.trigger, Err: a.err, At: a.at}
	default:
		return Outcome{Attempted: true, Trigger: a.trigger}
	}
}

// Reset forgets every recorded outcome.
func (r *Regenerator) Reset() {
	r.mu.Lock()
	r.attempts = make(map[int64]*attempt)
	r.mu.Unlock()
}

func (r *Regenerator) call(ctx context.Context, eventID int64, trigger string) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	err := r.backend.RegenerateInsights(cctx, eventID)

	entry := &store.Regeneration{EventID: eventID, Trigger: trigger, Status: store.StatusRequested}
	if err != nil {
		entry.Status = store.StatusFailed
		entry.Error = errorDetails(err)
		r.logger.Warn().Err(err).Int64("event_id", eventID).Str("trigger", trigger).Msg("insights regeneration failed")
	} else {
		r.logger.Info().Int64("event_id", eventID).Str("trigger", trigger).Msg("insights regeneration requested")
	}
	Regenerations.WithLabelValues(trigger, entry.Status).Inc()

	if r.ledger != nil {
		if lerr := r.ledger.Record(cctx, entry); lerr != nil {
			r.logger.Error().Err(lerr).Int64("event_id", eventID).Msg("failed to record regeneration")
		}
	}
	return err
}

func errorDetails(err error) dbtypes.JSONMap {
	details := dbtypes.JSONMap{"message": err.Error()}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		details["status"] = apiErr.Status
		details["endpoint"] = apiErr.Endpoint
	}
	return details
}
