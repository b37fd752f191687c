// Package retry runs storage operations again when the connection reports a
// transient failure.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Connection is what the retry loop needs from a storage connection. The
// connection owns both the error classification and the wait schedule.
type Connection interface {
	// IsRetriable reports whether err is transient.
	IsRetriable(err error) bool

	// Reconnect re-establishes the connection after a transient failure.
	Reconnect() error

	// BackOff returns a fresh wait schedule for one operation.
	BackOff() backoff.BackOff
}

// QuitCheck reports whether the process is shutting down and retries should
// be abandoned. A nil QuitCheck never quits.
type QuitCheck func() bool

// Policy retries operations against a Connection.
type Policy struct {
	Connection Connection
	Quit       QuitCheck
	Log        logrus.FieldLogger
}

// Do runs op until it succeeds, fails with an error the connection does not
// consider transient, the wait schedule runs out, the quit check fires or
// ctx is done. In the last three cases the error from the latest attempt is
// returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	log := p.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	b := p.Connection.BackOff()
	b.Reset()

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil || !p.Connection.IsRetriable(err) {
			return err
		}

		if p.Quit != nil && p.Quit() {
			log.WithError(err).Warn("shutting down, abandoning retries")
			return err
		}
		if ctx.Err() != nil {
			return err
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			log.WithError(err).WithField("attempts", attempt).Error("giving up on storage operation")
			return err
		}

		log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt,
			"wait":    wait.String(),
		}).Warn("transient storage failure, retrying")

		if rerr := p.Connection.Reconnect(); rerr != nil {
			log.WithError(rerr).Warn("reconnect failed")
		}

		if !sleep(ctx, wait) {
			return err
		}
	}
}

// Do is shorthand for a Policy without a logger.
func Do(ctx context.Context, conn Connection, quit QuitCheck, op func(ctx context.Context) error) error {
	return Policy{Connection: conn, Quit: quit}.Do(ctx, op)
}

// Value runs op under p and returns its result.
func Value[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = op(ctx)
		return err
	})
	return result, err
}

func sleep(ctx context.Context, wait time.Duration) bool {
	if wait <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
