package tracker

import (
	"context"
	"errors"
	"math"
	"time"

	"uniTrack/internal/portal"
)

const maxRetryDelay = 30 * time.Second

// retryFetch повторяет fn с экспоненциальной задержкой, пока ошибка Retryable.
// retries - число повторов после первой попытки.
func retryFetch(ctx context.Context, retries int, baseDelay time.Duration, fn func() error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}

		err = fn()
		if err == nil {
			return nil
		}

		var fe *portal.FetchError
		if !errors.As(err, &fe) || !fe.Retryable() {
			return err
		}
	}

	return err
}
