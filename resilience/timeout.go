package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds each call with a deadline.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout wrapper. A non-positive d means 30 seconds.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 30 * time.Second
	}
	return &Timeout{d: d}
}

// Execute runs op under a deadline. If op ignores its context, Execute
// still returns ErrTimeout when the deadline passes; op keeps running
// in the background until it notices.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// Duration returns the configured deadline.
func (t *Timeout) Duration() time.Duration {
	return t.d
}
