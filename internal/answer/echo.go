package answer

import (
	"context"
	"time"
)

// Echo is a development provider that answers "(simulated answer for) q"
// after Delay. It honors ctx, so a Delay past the selection timeout
// exercises the failure path.
type Echo struct {
	Delay time.Duration
}

// Answer waits Delay, then echoes question.
func (e Echo) Answer(ctx context.Context, question string) (string, error) {
	if e.Delay > 0 {
		t := time.NewTimer(e.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return "(simulated answer for) " + question, nil
}
