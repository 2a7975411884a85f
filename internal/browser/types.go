package browser

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Response - то, что видит подписчик сетевых ответов страницы.
// playwright.Response удовлетворяет этому интерфейсу.
type Response interface {
	URL() string
	Status() int
	Body() ([]byte, error)
}

type PlaywrightBrowser struct {
	mu      sync.RWMutex
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	cfg     Config
}

type Config struct {
	Engine       string
	Headless     bool
	BrowsersPath string

	Timeout         time.Duration
	NavigateTimeout time.Duration
	ActionTimeout   time.Duration
}

const (
	EngineChromium = "chromium"
	EngineFirefox  = "firefox"
	EngineWebKit   = "webkit"
)
