package resilience

import (
	"context"
	"time"
)

// hedgeResult carries one attempt's outcome through a channel.
type hedgeResult[T any] struct {
	value T
	err   error
}

// Hedge runs primary, and if it hasn't completed within delay, starts
// secondary concurrently. The first success wins; if primary fails
// before delay elapses, secondary's result (success or failure) is
// returned. If both ultimately fail, primary's error is returned,
// since primary is the call the caller actually asked for.
func Hedge[T any](ctx context.Context, primary, secondary func(context.Context) (T, error), delay time.Duration) (T, error) {
	primaryCh := make(chan hedgeResult[T], 1)
	go func() {
		v, err := primary(ctx)
		primaryCh <- hedgeResult[T]{v, err}
	}()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case res := <-primaryCh:
		if res.err == nil {
			return res.value, nil
		}
		// Primary failed before the hedge fired: fall back to secondary
		// and return whatever it produces.
		v, err := secondary(ctx)
		return v, err

	case <-timer.C:
		secondaryCh := make(chan hedgeResult[T], 1)
		go func() {
			v, err := secondary(ctx)
			secondaryCh <- hedgeResult[T]{v, err}
		}()

		var primaryDone, secondaryDone bool
		var primaryRes, secondaryRes hedgeResult[T]
		for {
			select {
			case res := <-primaryCh:
				if res.err == nil {
					return res.value, nil
				}
				primaryRes, primaryDone = res, true
			case res := <-secondaryCh:
				if res.err == nil {
					return res.value, nil
				}
				secondaryRes, secondaryDone = res, true
			}
			if primaryDone && secondaryDone {
				_ = secondaryRes
				return primaryRes.value, primaryRes.err
			}
		}
	}
}
