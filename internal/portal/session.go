// Package portal входит на портал вуза и достаёт данные о посещаемости.
package portal

import (
	"context"
	"time"

	"uniTrack/internal/attendance"
	"uniTrack/internal/browser"
	"uniTrack/internal/discovery"
)

// Session - одна страница браузера. В тестах подменяется фейком.
type Session interface {
	discovery.Page
	TextContent(ctx context.Context, selector string) (string, error)
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	URL() string
	Settle(ctx context.Context, d time.Duration) error
	OnResponse(handler func(browser.Response)) (unsubscribe func())
	Close() error
}

// Launcher открывает новую изолированную сессию на каждый запрос.
type Launcher func(ctx context.Context) (Session, error)

func BrowserLauncher(cfg browser.Config) Launcher {
	return func(ctx context.Context) (Session, error) {
		b, err := browser.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

type Credentials struct {
	Username string
	Password string
}

// Config - всё, что нужно для одного запроса к порталу. Пароль живёт только здесь.
type Config struct {
	BaseURL       string
	LoginURL      string
	AttendanceAPI string
	Selectors     discovery.Selectors
	FieldMappings attendance.FieldMapping
	Credentials   Credentials

	// AutoDiscover разрешает искать недостающие селекторы прямо в сессии входа.
	AutoDiscover bool
}

// LoginPage - адрес страницы входа: login_url, иначе base_url.
func (c Config) LoginPage() string {
	if c.LoginURL != "" {
		return c.LoginURL
	}
	return c.BaseURL
}

type Options struct {
	// LoginSettle - пауза после отправки формы перед проверкой URL.
	LoginSettle time.Duration
	// TriggerSettle - пауза после клика по каждому пункту меню.
	TriggerSettle time.Duration
	// APISettle - пауза после прямого запроса к эндпоинту.
	APISettle time.Duration
}

func (o Options) withDefaults() Options {
	if o.LoginSettle == 0 {
		o.LoginSettle = 2 * time.Second
	}
	if o.TriggerSettle == 0 {
		o.TriggerSettle = 3 * time.Second
	}
	if o.APISettle == 0 {
		o.APISettle = 2 * time.Second
	}
	return o
}
