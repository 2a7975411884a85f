package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

const installTimeout = 10 * time.Minute

// Install скачивает драйвер и выбранный движок. Нужен один раз перед первым запуском.
func Install(ctx context.Context, cfg Config) error {
	if cfg.BrowsersPath != "" {
		_ = os.Setenv("PLAYWRIGHT_BROWSERS_PATH", cfg.BrowsersPath)
	}
	engine := cfg.Engine
	if engine == "" {
		engine = EngineChromium
	}

	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- playwright.Install(&playwright.RunOptions{
			Browsers: []string{engine},
		})
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка установки %s: %w", engine, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("установка %s не завершилась: %w", engine, ctx.Err())
	}
}
