package common

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
)

// Background runs fn in a goroutine with panic recovery. The returned channel
// yields exactly one value: fn's error, ctx's error if it was already done, or
// the recovered panic as an error. A panic is logged but does not crash the run.
//
// Example:
//
//	done := common.Background(ctx, logger, "environmentInfo", func(ctx context.Context) error {
//	    return fetchInfo(ctx)
//	})
//	...
//	if err := <-done; err != nil { ... }
func Background(ctx context.Context, logger arbor.ILogger, name string, fn func(ctx context.Context) error) <-chan error {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", GetStackTrace()).
					Msg("Recovered from panic in goroutine")
				done <- fmt.Errorf("%s panicked: %v", name, r)
			}
		}()

		// Check context before running
		if err := ctx.Err(); err != nil {
			logger.Debug().Str("goroutine", name).Msg("Goroutine cancelled before start")
			done <- err
			return
		}
		done <- fn(ctx)
	}()

	return done
}
