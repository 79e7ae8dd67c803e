package app

import (
	"context"
	"fmt"
	"time"

	"signalx/internal/common/logger"
)

// RetryWithBackoff runs operation until it succeeds, doubling the delay
// between attempts. It gives up early when ctx is done.
func RetryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(operationName+" failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", operationName, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
