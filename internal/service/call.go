package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultStoreTimeout = 3 * time.Second
	defaultAttempts     = 3
	defaultBackoff      = 50 * time.Millisecond
	sideEffectTimeout   = 2 * time.Second
)

type options struct {
	timeout  time.Duration
	attempts int
	backoff  time.Duration
	recorder Recorder
	cache    StatsCache
	notifier Notifier
	newID    func() string
}

// Option configures a service.
type Option func(*options)

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetry sets how many times an infrastructural store failure is tried
// and the linear backoff between tries.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.attempts = attempts
		}
		if backoff >= 0 {
			o.backoff = backoff
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func WithStatsCache(c StatsCache) Option {
	return func(o *options) { o.cache = c }
}

func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithIDFunc replaces the row id source.
func WithIDFunc(f func() string) Option {
	return func(o *options) {
		if f != nil {
			o.newID = f
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		timeout:  defaultStoreTimeout,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		recorder: nopRecorder{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// caller runs store operations with a deadline, latency recording and the
// translation of driver failures into ErrStoreUnavailable.
type caller struct {
	logger *logrus.Logger
	opts   options
}

// call runs fn once under the store timeout. Store sentinels and errors
// already classified pass through untouched; anything else is logged and
// reported as ErrStoreUnavailable.
func (c caller) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, c.opts.timeout)
	defer cancel()

	start := time.Now()
	err := fn(cctx)
	c.opts.recorder.ObserveStore(op, time.Since(start))

	if err == nil || isClassified(err) {
		return err
	}
	c.logger.WithContext(ctx).WithError(err).WithField("operation", op).Error("store call failed")
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// retry is call repeated while the store is unavailable. Only use it for
// reads and for writes that are safe to repeat.
func (c caller) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= c.opts.attempts; attempt++ {
		err = c.call(ctx, op, fn)
		if !errors.Is(err, ErrStoreUnavailable) || attempt == c.opts.attempts {
			return err
		}
		c.logger.WithContext(ctx).WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt,
		}).Warn("retrying store call")

		select {
		case <-ctx.Done():
			return err
		case <-time.After(c.opts.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func isClassified(err error) bool {
	for _, target := range []error{
		repository.ErrNotFound,
		repository.ErrDuplicateCode,
		repository.ErrPreconditionFailed,
		repository.ErrInvalidReference,
		ErrStoreUnavailable,
		ErrNotFound,
		ErrInvalidArgument,
		ErrAlreadyAssigned,
		ErrAlreadyUsed,
		ErrEventExpired,
		ErrRequiresAssignment,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// detached returns a context for best-effort side effects that must not be
// cut short by the caller's cancellation.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
}
