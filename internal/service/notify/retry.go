package notify

import (
	"context"
	"errors"
	"time"

	drepo "CrossWatch/internal/domain/repository"
)

// Result is the outcome of a delivery including retries.
type Result struct {
	Err      error
	Attempts int
}

func (r Result) OK() bool { return r.Err == nil }

// Retrier sends through a Notifier, bounding each attempt by timeout and
// backing off linearly between attempts.
type Retrier struct {
	Notifier drepo.Notifier
	Attempts int
	Backoff  time.Duration
	Timeout  time.Duration
}

func (r Retrier) Deliver(ctx context.Context, to, subject, body string) Result {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var res Result
	for i := 1; i <= attempts; i++ {
		res.Attempts = i
		res.Err = r.once(ctx, to, subject, body)
		if res.Err == nil || errors.Is(res.Err, ErrInvalidRecipient) || i == attempts {
			return res
		}
		select {
		case <-ctx.Done():
			res.Err = errors.Join(res.Err, ctx.Err())
			return res
		case <-time.After(r.Backoff * time.Duration(i)):
		}
	}
	return res
}

func (r Retrier) once(ctx context.Context, to, subject, body string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return r.Notifier.Send(ctx, to, subject, body)
}
