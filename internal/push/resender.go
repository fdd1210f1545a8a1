package push

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/danmuck/pushwire/internal/diag"
)

var ErrRetryBudgetExhausted = errors.New("push: retry budget exhausted")

// Resender drives one push to a non-timeout outcome, resending with policy
// delays after each timeout. Before every retry the previous attempt's
// listeners are abandoned via CleanUp so each attempt gets a fresh result
// slot and a fresh correlation id.
type Resender struct {
	push        *Push
	policy      RetryPolicy
	maxAttempts int
	log         diag.Logger
	rng         *rand.Rand
}

// NewResender wires a resender around p. maxAttempts <= 0 retries until ctx
// ends.
func NewResender(p *Push, policy RetryPolicy, maxAttempts int, log diag.Logger) *Resender {
	if log == nil {
		log = diag.Nop()
	}
	return &Resender{
		push:        p,
		policy:      policy,
		maxAttempts: maxAttempts,
		log:         log,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run sends the push and awaits its outcome, retrying on timeout. Transport
// errors and backend replies of any status end the run immediately.
func (r *Resender) Run(ctx context.Context) (Response, error) {
	attempt := 0
	for {
		attempt++
		if attempt == 1 {
			r.push.Send()
		} else {
			r.push.CleanUp()
			r.push.Resend(0)
		}

		resp, err := r.push.Await(ctx)
		if err == nil || !errors.Is(err, ErrReplyTimeout) {
			return resp, err
		}
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			r.log.Warnf("push %s/%s: giving up after %d timed-out attempts",
				r.push.conv.LoggingName(), r.push.Event(), attempt)
			return resp, errors.Join(ErrRetryBudgetExhausted, err)
		}

		delay := r.policy.Delay(attempt, r.rng)
		r.log.Infof("push %s/%s: attempt %d timed out, resending in %s",
			r.push.conv.LoggingName(), r.push.Event(), attempt, delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Response{}, ctx.Err()
		case <-timer.C:
		}
	}
}
