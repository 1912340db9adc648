package llm

import (
	"context"
	"time"
)

// RetryState is a state of the retry machine.
type RetryState int

const (
	// StateAttempt sends the next request.
	StateAttempt RetryState = iota
	// StateWaiting sleeps before the next attempt.
	StateWaiting
	// StateSucceeded is terminal with a value.
	StateSucceeded
	// StateFailed is terminal with an error.
	StateFailed
)

func (s RetryState) String() string {
	switch s {
	case StateAttempt:
		return "attempt"
	case StateWaiting:
		return "waiting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RetryPolicy is a fixed delay schedule. The number of attempts is one more
// than the number of delays; delay i precedes attempt i+2.
type RetryPolicy struct {
	Delays []time.Duration
}

// DefaultRetryPolicy is four attempts with 1s, 2s and 3s between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delays: []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		3000 * time.Millisecond,
	}}
}

// MaxAttempts returns the total number of attempts the policy allows.
func (p RetryPolicy) MaxAttempts() int {
	return len(p.Delays) + 1
}

// TotalDelay is the sum of all sleeps when every attempt fails.
func (p RetryPolicy) TotalDelay() time.Duration {
	var total time.Duration
	for _, d := range p.Delays {
		total += d
	}
	return total
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep is the production SleepFunc.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryMachine tracks one request's progress through the policy.
type retryMachine struct {
	policy  RetryPolicy
	state   RetryState
	attempt int
	delay   time.Duration
	err     error
}

func newRetryMachine(policy RetryPolicy) *retryMachine {
	return &retryMachine{policy: policy, state: StateAttempt, attempt: 1}
}

// observe records the outcome of the current attempt.
func (m *retryMachine) observe(err error) {
	switch {
	case err == nil:
		m.state = StateSucceeded
		m.err = nil
	case !Retryable(err):
		m.state = StateFailed
		m.err = err
	case m.attempt >= m.policy.MaxAttempts():
		m.state = StateFailed
		m.err = &ExhaustedRetriesError{Attempts: m.attempt, Last: err}
	default:
		m.state = StateWaiting
		m.delay = m.policy.Delays[m.attempt-1]
		m.err = err
	}
}

// wake moves from waiting to the next attempt, or fails if the sleep
// was interrupted.
func (m *retryMachine) wake(sleepErr error) {
	if sleepErr != nil {
		m.state = StateFailed
		m.err = sleepErr
		return
	}
	m.state = StateAttempt
	m.attempt++
}

// RetryHook observes each failed attempt before the machine decides what
// to do next.
type RetryHook func(attempt int, err error)

// Retry runs op under policy. Authentication failures and context
// cancellation end the loop immediately; any other failure on the final
// attempt yields *ExhaustedRetriesError.
func Retry[T any](ctx context.Context, policy RetryPolicy, sleep SleepFunc, hook RetryHook, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	if sleep == nil {
		sleep = ContextSleep
	}

	var value T
	m := newRetryMachine(policy)
	for {
		switch m.state {
		case StateAttempt:
			v, err := op(ctx, m.attempt)
			if err != nil && hook != nil {
				hook(m.attempt, err)
			}
			if err == nil {
				value = v
			}
			m.observe(err)
		case StateWaiting:
			m.wake(sleep(ctx, m.delay))
		case StateSucceeded:
			return value, nil
		case StateFailed:
			var zero T
			return zero, m.err
		}
	}
}
