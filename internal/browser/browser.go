// Package browser - драйвер одной браузерной сессии: одна страница, навигация,
// ввод, клики и ожидания поверх playwright.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

var errNotLaunched = errors.New("браузер не запущен")

func New(cfg Config) *PlaywrightBrowser {
	// Установка дефолтных таймаутов
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.NavigateTimeout == 0 {
		cfg.NavigateTimeout = 60 * time.Second // Navigate обычно дольше
	}
	if cfg.ActionTimeout == 0 {
		cfg.ActionTimeout = 10 * time.Second // Click/Fill обычно быстрые
	}
	if cfg.Engine == "" {
		cfg.Engine = EngineChromium
	}

	return &PlaywrightBrowser{
		cfg: cfg,
	}
}

// Open создаёт и запускает изолированную сессию. При ошибке запуска всё уже закрыто.
func Open(ctx context.Context, cfg Config) (*PlaywrightBrowser, error) {
	b := New(cfg)
	if err := b.Launch(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// getPage безопасно возвращает текущую страницу с read lock
func (b *PlaywrightBrowser) getPage() playwright.Page {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.page
}

func (b *PlaywrightBrowser) getBrowserArgs() []string {
	if b.cfg.Engine != EngineChromium {
		return nil
	}
	return []string{
		"--no-sandbox",
	}
}

func (b *PlaywrightBrowser) browserType(pw *playwright.Playwright) (playwright.BrowserType, error) {
	switch b.cfg.Engine {
	case EngineChromium:
		return pw.Chromium, nil
	case EngineFirefox:
		return pw.Firefox, nil
	case EngineWebKit:
		return pw.WebKit, nil
	default:
		return nil, fmt.Errorf("неизвестный движок браузера: %s", b.cfg.Engine)
	}
}

func (b *PlaywrightBrowser) Launch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if b.cfg.BrowsersPath != "" {
		if err := os.Setenv("PLAYWRIGHT_BROWSERS_PATH", b.cfg.BrowsersPath); err != nil {
			return fmt.Errorf("ошибка установки PLAYWRIGHT_BROWSERS_PATH: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("ошибка запуска playwright: %w", err)
	}
	b.mu.Lock()
	b.pw = pw
	b.mu.Unlock()

	bt, err := b.browserType(pw)
	if err != nil {
		return err
	}

	browser, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.cfg.Headless),
		Args:     b.getBrowserArgs(),
	})
	if err != nil {
		return fmt.Errorf("ошибка запуска %s: %w", b.cfg.Engine, err)
	}
	b.mu.Lock()
	b.browser = browser
	b.mu.Unlock()

	browserContext, err := browser.NewContext()
	if err != nil {
		return fmt.Errorf("ошибка создания контекста: %w", err)
	}
	b.mu.Lock()
	b.context = browserContext
	b.mu.Unlock()

	page, err := browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("ошибка создания страницы: %w", err)
	}
	page.SetDefaultTimeout(float64(b.cfg.Timeout.Milliseconds()))

	b.mu.Lock()
	b.page = page
	b.mu.Unlock()

	return nil
}

func (b *PlaywrightBrowser) Navigate(ctx context.Context, url string) error {
	page := b.getPage()
	if page == nil {
		return errNotLaunched
	}

	// Создаем context с timeout для navigate операции
	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavigateTimeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
			Timeout:   playwright.Float(float64(b.cfg.NavigateTimeout.Milliseconds())),
		})
		errChan <- err
	}()

	select {
	case <-navCtx.Done():
		return navigateError(ctx, b.cfg.NavigateTimeout)
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	b.ClosePopups(ctx)

	return nil
}

// navigateError отличает отмену вызывающим от истечения таймаута навигации.
func navigateError(parent context.Context, timeout time.Duration) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("navigate cancelled: %w", err)
	}
	return fmt.Errorf("navigate timeout after %v", timeout)
}

func (b *PlaywrightBrowser) Fill(ctx context.Context, selector, value string) error {
	loc, err := b.locator(selector)
	if err != nil {
		return err
	}

	return loc.First().Fill(value, playwright.LocatorFillOptions{
		Timeout: b.actionTimeout(),
	})
}

func (b *PlaywrightBrowser) Click(ctx context.Context, selector string) error {
	loc, err := b.locator(selector)
	if err != nil {
		return err
	}

	if err := loc.First().Click(playwright.LocatorClickOptions{
		Timeout: b.actionTimeout(),
	}); err != nil {
		return err
	}

	// сеть может не успокоиться на страницах с поллингом, это не ошибка клика
	_ = b.WaitForLoadState(ctx, "networkidle")

	return nil
}

func (b *PlaywrightBrowser) Count(ctx context.Context, selector string) (int, error) {
	loc, err := b.locator(selector)
	if err != nil {
		return 0, err
	}
	return loc.Count()
}

func (b *PlaywrightBrowser) IsVisible(ctx context.Context, selector string) (bool, error) {
	loc, err := b.locator(selector)
	if err != nil {
		return false, err
	}
	return loc.First().IsVisible()
}

func (b *PlaywrightBrowser) TextContent(ctx context.Context, selector string) (string, error) {
	loc, err := b.locator(selector)
	if err != nil {
		return "", err
	}
	return loc.First().TextContent(playwright.LocatorTextContentOptions{
		Timeout: b.actionTimeout(),
	})
}

// URL текущей страницы, пустая строка если страницы нет.
func (b *PlaywrightBrowser) URL() string {
	page := b.getPage()
	if page == nil {
		return ""
	}
	return page.URL()
}

func (b *PlaywrightBrowser) Content(ctx context.Context) (string, error) {
	page := b.getPage()
	if page == nil {
		return "", errNotLaunched
	}

	return page.Content()
}

// Close закрывает всё, что успели открыть, даже если часть шагов падает.
func (b *PlaywrightBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие контекста: %w", err))
		}
		b.context = nil
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("закрытие браузера: %w", err))
		}
		b.browser = nil
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("остановка playwright: %w", err))
		}
		b.pw = nil
	}
	b.page = nil

	return errors.Join(errs...)
}

func (b *PlaywrightBrowser) locator(selector string) (playwright.Locator, error) {
	page := b.getPage()
	if page == nil {
		return nil, errNotLaunched
	}

	if err := ValidateSelector(selector); err != nil {
		return nil, fmt.Errorf("невалидный селектор: %w", err)
	}

	normalized, _ := NormalizeSelector(selector)
	return page.Locator(normalized), nil
}

func (b *PlaywrightBrowser) actionTimeout() *float64 {
	return playwright.Float(float64(b.cfg.ActionTimeout.Milliseconds()))
}
