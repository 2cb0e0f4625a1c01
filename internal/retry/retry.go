package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/luisalpizar/crm-intake/internal/metrics"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultConfig matches the remote-API quota ceilings: up to 5 attempts with
// 1s, 2s, 4s, 8s backoff capped at 16s, plus up to 1s of jitter per wait.
var DefaultConfig = Config{
	MaxAttempts: 5,
	BaseDelay:   1 * time.Second,
	MaxDelay:    16 * time.Second,
	Multiplier:  2.0,
}

// Class is the failure classification that decides whether an attempt is
// worth repeating.
type Class int

const (
	// ClassUnknown is the conservative default: retry.
	ClassUnknown Class = iota
	ClassRateLimited
	ClassTransient
	ClassPermissionDenied
	ClassNotFound
)

// Retryable reports whether another attempt may succeed.
func (c Class) Retryable() bool {
	switch c {
	case ClassPermissionDenied, ClassNotFound:
		return false
	}
	return true
}

// Marker errors for callers that classify their own failures. Wrap with
// fmt.Errorf("...: %w", ErrRateLimited) or errors.Join.
var (
	ErrRateLimited      = errors.New("rate limited")
	ErrTransient        = errors.New("transient failure")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
)

// Classify determines the class of an error. Explicit markers win; otherwise
// the error text is matched against the failure signatures the remote APIs
// are known to produce.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return ClassRateLimited
	case errors.Is(err, ErrPermissionDenied):
		return ClassPermissionDenied
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrTransient):
		return ClassTransient
	}

	s := err.Error()
	sLower := strings.ToLower(s)

	// 429 always means quota; 403 only when the body says so, a plain 403
	// is a permission problem.
	if strings.Contains(s, "429") || strings.Contains(sLower, "too many requests") ||
		strings.Contains(sLower, "rate limit") || strings.Contains(sLower, "quota exceeded") ||
		(strings.Contains(s, "403") && strings.Contains(sLower, "rate")) {
		return ClassRateLimited
	}

	if strings.Contains(s, "403") || strings.Contains(sLower, "forbidden") ||
		strings.Contains(sLower, "permission denied") || strings.Contains(sLower, "unauthorized") {
		return ClassPermissionDenied
	}

	if strings.Contains(s, "404") || strings.Contains(sLower, "not found") ||
		strings.Contains(sLower, "no such") {
		return ClassNotFound
	}

	if strings.Contains(sLower, "timeout") || strings.Contains(sLower, "connection reset") ||
		strings.Contains(sLower, "connection refused") || strings.Contains(sLower, "broken pipe") ||
		strings.Contains(s, "500") || strings.Contains(s, "502") || strings.Contains(s, "503") {
		return ClassTransient
	}

	return ClassUnknown
}

// ExhaustedError is returned when every attempt failed with a retryable
// error. It names the operation so callers can report which remote call gave
// up.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Executor wraps remote calls with bounded exponential-backoff retry.
type Executor struct {
	cfg Config
	log *slog.Logger

	// wait is replaceable in tests to avoid real sleeps.
	wait func(ctx context.Context, d time.Duration) error
}

// New creates an Executor. Zero-valued config fields fall back to
// DefaultConfig.
func New(cfg Config, log *slog.Logger) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultConfig.MaxDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = DefaultConfig.Multiplier
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		cfg: cfg,
		log: log,
		wait: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
}

// Do executes op with retry. Fatal classifications propagate immediately;
// retryable ones back off and try again until the attempt budget runs out.
func (e *Executor) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		lastErr = err
		class := Classify(err)
		metrics.RetryAttemptsTotal.WithLabelValues(name).Inc()

		if !class.Retryable() {
			return err
		}

		if attempt == e.cfg.MaxAttempts-1 {
			break
		}

		delay := e.backoff(attempt)
		e.log.Warn("Retrying operation",
			"operation", name,
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
		if werr := e.wait(ctx, delay); werr != nil {
			return werr
		}
	}

	metrics.RetryExhaustedTotal.WithLabelValues(name).Inc()
	return &ExhaustedError{Op: name, Attempts: e.cfg.MaxAttempts, Err: lastErr}
}

// DoValue is Do for operations that return a result.
func DoValue[T any](
	ctx context.Context,
	e *Executor,
	name string,
	op func(ctx context.Context) (T, error),
) (T, error) {
	var result T
	err := e.Do(ctx, name, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	})
	return result, err
}

func (e *Executor) backoff(attempt int) time.Duration {
	delay := float64(e.cfg.BaseDelay) * math.Pow(e.cfg.Multiplier, float64(attempt))
	delay += rand.Float64() * float64(time.Second) // jitter in [0,1)s
	if delay > float64(e.cfg.MaxDelay) {
		delay = float64(e.cfg.MaxDelay)
	}
	return time.Duration(delay)
}
