package toolrun

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"

	"github.com/askiada/tractfilter/internal/config"
	"github.com/askiada/tractfilter/internal/logging"
)

// jitterFraction is the maximum jitter as a fraction of the delay (±25%).
const jitterFraction = 0.25

// Observer is notified of every attempt.
type Observer interface {
	ObserveTool(tool, result string, elapsed time.Duration)
}

// Results reported to the Observer.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultOpen  = "breaker_open"
)

// ResilientRunner wraps a Runner with a timeout per attempt, retries with
// exponential backoff and one circuit breaker per tool. Only failures showing
// the tool itself is unusable trip a breaker: a tool rejecting one input says
// nothing about the next one.
type ResilientRunner struct {
	next     Runner
	cfg      config.ToolsConfig
	observer Observer
	logger   *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*Result]
}

// NewResilientRunner wraps next. observer and logger may be nil.
func NewResilientRunner(next Runner, cfg config.ToolsConfig, observer Observer, logger *slog.Logger) *ResilientRunner {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &ResilientRunner{
		next:     next,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[*Result]),
	}
}

func toUint32(v int) uint32 {
	if v <= 0 {
		return 1
	}

	if v > math.MaxUint32 {
		return math.MaxUint32
	}

	return uint32(v)
}

func (r *ResilientRunner) breaker(tool string) *gobreaker.CircuitBreaker[*Result] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[tool]; ok {
		return cb
	}

	maxFailures := toUint32(r.cfg.CircuitBreaker.MaxFailures)
	cb := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        tool,
		MaxRequests: toUint32(r.cfg.CircuitBreaker.HalfOpenLimit),
		Timeout:     r.cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return !toolBroken(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("circuit breaker state changed",
				slog.String("tool", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	r.breakers[tool] = cb

	return cb
}

func (r *ResilientRunner) observe(tool string, err error, elapsed time.Duration) {
	if r.observer == nil {
		return
	}

	result := ResultOK

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = ResultOpen
	case err != nil:
		result = ResultError
	}

	r.observer.ObserveTool(tool, result, elapsed)
}

func (r *ResilientRunner) attempt(ctx context.Context, cmd Command) (*Result, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := r.breaker(cmd.Tool()).Execute(func() (*Result, error) {
		return r.next.Run(ctx, cmd)
	})
	r.observe(cmd.Tool(), err, time.Since(start))

	return res, err
}

// Run runs cmd, retrying failed attempts up to the configured maximum.
func (r *ResilientRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	maxAttempts := max(r.cfg.Retry.MaxAttempts, 1)

	var lastErr error

	for attempt := range maxAttempts {
		if attempt > 0 {
			err := r.waitForRetry(ctx, cmd, attempt, lastErr)
			if err != nil {
				return nil, err
			}
		}

		res, err := r.attempt(ctx, cmd)
		if err == nil {
			return res, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return res, err
		}
	}

	return nil, lastErr
}

func (r *ResilientRunner) waitForRetry(ctx context.Context, cmd Command, attempt int, lastErr error) error {
	delay := backoff(attempt, r.cfg.Retry)

	logging.FromContext(ctx).WarnContext(ctx, "retrying tool",
		slog.String("tool", cmd.Tool()),
		slog.Int("attempt", attempt+1),
		slog.Int("max_attempts", r.cfg.Retry.MaxAttempts),
		slog.Duration("backoff", delay),
		slog.Any("error", lastErr),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff returns the delay before retry attempt (1 is the first retry).
func backoff(attempt int, cfg config.RetryConfig) time.Duration {
	multiplier := cfg.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delay := float64(cfg.InitialInterval) * math.Pow(multiplier, float64(attempt-1))
	if cfg.MaxInterval > 0 && delay > float64(cfg.MaxInterval) {
		delay = float64(cfg.MaxInterval)
	}

	jitter := delay * jitterFraction
	delay += jitter * (2*rand.Float64() - 1) //nolint:gosec // jitter does not need a secure source

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// toolBroken reports whether err shows the tool cannot run at all: it could not
// be started, was killed by a signal or timed out. A non-zero exit status is a
// verdict on the input, and cancellation a verdict on the run.
func toolBroken(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code < 0
	}

	return true
}

// isRetryable reports whether another attempt can help. Cancellation, missing
// binaries and an open breaker cannot.
func isRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	case errors.Is(err, ErrMissingTool):
		return false
	default:
		return true
	}
}

var _ Runner = (*ResilientRunner)(nil)
