package browser

import (
	"context"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Settle ждёт фиксированную паузу, пока страница догружает данные.
// Прерывается отменой контекста.
func (b *PlaywrightBrowser) Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *PlaywrightBrowser) WaitForLoadState(ctx context.Context, state string) error {
	page := b.getPage()
	if page == nil {
		return errNotLaunched
	}

	var loadState *playwright.LoadState
	switch strings.ToLower(state) {
	case "load":
		loadState = playwright.LoadStateLoad
	case "domcontentloaded":
		loadState = playwright.LoadStateDomcontentloaded
	case "networkidle":
		loadState = playwright.LoadStateNetworkidle
	default:
		loadState = playwright.LoadStateLoad
	}

	return page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   loadState,
		Timeout: playwright.Float(float64(b.cfg.Timeout.Milliseconds())),
	})
}

var popupSelectors = []string{
	"[role='dialog'] button[aria-label*='close' i]",
	".modal button.close",
	".modal .btn-close",
	".popup button.close",
	"[data-dismiss='modal']",
	"[data-bs-dismiss='modal']",
	".close-button",
	"button:has-text('×')",
	"button:has-text('✕')",
	"[aria-label='Close']",
}

// ClosePopups кликает видимые кнопки закрытия модальных окон.
// Порталы любят показывать объявления поверх формы входа. Ошибки игнорируются.
func (b *PlaywrightBrowser) ClosePopups(ctx context.Context) {
	page := b.getPage()
	if page == nil {
		return
	}

	for _, selector := range popupSelectors {
		if ctx.Err() != nil {
			return
		}

		loc := page.Locator(selector)
		n, err := loc.Count()
		if err != nil || n == 0 {
			continue
		}

		for i := 0; i < n; i++ {
			el := loc.Nth(i)
			visible, err := el.IsVisible()
			if err != nil || !visible {
				continue
			}

			if err := el.Click(playwright.LocatorClickOptions{Timeout: b.actionTimeout()}); err == nil {
				_ = b.Settle(ctx, 500*time.Millisecond)
			}
		}
	}
}
