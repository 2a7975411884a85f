package llm

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter ограничивает число запросов в минуту.
// Подсказки нужны редко, лимит защищает от зацикленного повтора.
type RateLimiter struct {
	limiter   *rate.Limiter
	perMinute int
	now       func() time.Time
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 20
	}
	return &RateLimiter{
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
		perMinute: requestsPerMinute,
		now:       time.Now,
	}
}

// AllowRequest списывает один запрос или возвращает ошибку, если лимит исчерпан.
func (rl *RateLimiter) AllowRequest() error {
	if !rl.limiter.AllowN(rl.now(), 1) {
		return fmt.Errorf("превышен лимит запросов (%d RPM), повторите через %v",
			rl.perMinute, time.Minute/time.Duration(rl.perMinute))
	}
	return nil
}
