package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/photokey/floorplan/internal/dispatcher"

// DefaultWorkers is the number of jobs run at once when New is given n <= 0.
const DefaultWorkers = 3

// ErrUnknownKind is returned when no handler is registered for a job kind.
var ErrUnknownKind = errors.New("unknown job kind")

// Job is a unit of work routed by kind.
type Job struct {
	Kind    string
	Key     string
	Payload any
}

// HandlerFunc processes a job and returns a result.
type HandlerFunc func(context.Context, Job) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes jobs to registered handlers, running at most a fixed
// number of them at a time.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   Logger
	slots    chan struct{}

	// OTEL metrics
	inflightGauge metric.Int64ObservableGauge
	processed     metric.Int64Counter
	failed        metric.Int64Counter

	inflight atomic.Int64
}

// New creates a new Dispatcher running up to workers jobs concurrently.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger, workers int) (*Dispatcher, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
		slots:    make(chan struct{}, workers),
	}

	// Get meter from global OTel provider (returns no-op if not configured)
	m := meter()

	var err error

	d.inflightGauge, err = m.Int64ObservableGauge(
		"dispatcher.jobs.inflight",
		metric.WithDescription("Current number of running jobs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating inflight gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(d.inflightGauge, d.inflight.Load())
			return nil
		},
		d.inflightGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering inflight callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.jobs.processed",
		metric.WithDescription("Total jobs processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.jobs.failed",
		metric.WithDescription("Total jobs whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given kind with optional configuration.
func (d *Dispatcher) Register(kind string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged {
		handler = d.withLogging(kind, handler)
	}

	d.mu.Lock()
	d.handlers[kind] = handler
	d.mu.Unlock()
}

// Dispatch waits for a free worker slot and runs the job's handler on the
// calling goroutine. It returns ctx.Err() if ctx is done before a slot
// frees up.
func (d *Dispatcher) Dispatch(ctx context.Context, j Job) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[j.Kind]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, j.Kind)
	}

	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	d.inflight.Add(1)
	defer func() {
		d.inflight.Add(-1)
		<-d.slots
	}()

	kindAttr := metric.WithAttributes(attribute.String("kind", j.Kind))
	result, err := h(ctx, j)
	d.processed.Add(context.Background(), 1, kindAttr)
	if err != nil {
		d.failed.Add(context.Background(), 1, kindAttr)
	}
	return result, err
}

// Inflight returns the number of jobs currently running.
func (d *Dispatcher) Inflight() int {
	return int(d.inflight.Load())
}

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

func (d *Dispatcher) withLogging(kind string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, j Job) (any, error) {
		start := time.Now()
		d.logger.Debug("handling job", "kind", kind, "key", j.Key)

		result, err := h(ctx, j)

		if err != nil {
			d.logger.Error("job failed", "kind", kind, "key", j.Key, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("job complete", "kind", kind, "key", j.Key, "duration", time.Since(start))
		}

		return result, err
	}
}
