// Package cli собирает зависимости и команды unitrack.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"uniTrack/internal/browser"
	"uniTrack/internal/config"
	"uniTrack/internal/database"
	"uniTrack/internal/discovery"
	"uniTrack/internal/llm"
	"uniTrack/internal/logger"
	"uniTrack/internal/migrations"
	"uniTrack/internal/portal"
	"uniTrack/internal/store"
	"uniTrack/internal/tracker"
)

type CLI struct {
	cfg      *config.Cfg
	log      *logger.Zap
	out      io.Writer
	colored  bool
	prompter *Prompter
	db       *database.DB
}

func New(cfg *config.Cfg, log *logger.Zap) *CLI {
	return &CLI{
		cfg:      cfg,
		log:      log,
		out:      os.Stdout,
		colored:  IsTerminal(),
		prompter: NewPrompter(),
	}
}

// Close закрывает соединение с БД, если оно открывалось.
func (c *CLI) Close() {
	if c.db != nil {
		c.db.Close(c.log.Logger)
		c.db = nil
	}
}

func (c *CLI) browserConfig() browser.Config {
	return browser.Config{
		Engine:          c.cfg.Browser.Engine,
		Headless:        c.cfg.Browser.Headless,
		BrowsersPath:    c.cfg.Browser.BrowsersPath,
		Timeout:         c.cfg.Browser.Timeout,
		NavigateTimeout: c.cfg.Browser.NavigateTimeout,
	}
}

func (c *CLI) fetcher() *portal.Fetcher {
	var suggester discovery.Suggester
	if c.cfg.OpenAI.KeyAI != "" {
		suggester = llm.NewClient(c.cfg.OpenAI.KeyAI, c.cfg.OpenAI.Model, c.cfg.OpenAI.MaxTokens, c.log.Logger)
	}

	opts := portal.Options{TriggerSettle: c.cfg.Browser.SettleDelay}
	return portal.NewFetcher(
		portal.BrowserLauncher(c.browserConfig()),
		discovery.New(c.log.Logger, suggester),
		opts,
		c.log.Logger,
	)
}

// history открывает БД и накатывает миграции. Без DB_HOST возвращает nil.
func (c *CLI) history() (*database.HistoryRepository, error) {
	if !c.cfg.Database.Enabled() {
		return nil, nil
	}
	if c.db == nil {
		if err := migrations.Run(c.cfg, c.log.Logger); err != nil {
			return nil, err
		}
		db, err := database.New(c.cfg, c.log.Logger)
		if err != nil {
			return nil, err
		}
		c.db = db
	}
	return database.NewHistoryRepository(c.db.DB), nil
}

func (c *CLI) tracker() *tracker.Tracker {
	repo, err := c.history()
	if err != nil {
		c.log.Warn("История выгрузок отключена", zap.Error(err))
	}

	var history tracker.History
	if repo != nil {
		history = repo
	}

	return tracker.New(
		c.fetcher(),
		store.NewFileCache(c.cfg.CachePath()),
		history,
		c.cfg.ProfilePath(),
		tracker.Options{Retries: c.cfg.Fetch.Retries, RetryDelay: c.cfg.Fetch.RetryDelay},
		c.log.Logger,
	)
}

// credentials: логин из флага, окружения или профиля, пароль из окружения или с клавиатуры.
func (c *CLI) credentials(ctx context.Context, username string) (portal.Credentials, error) {
	creds := portal.Credentials{Username: username, Password: c.cfg.Auth.Password}
	if creds.Username == "" {
		creds.Username = c.cfg.Auth.Username
	}
	if creds.Username == "" {
		profile, err := config.LoadProfile(c.cfg.ProfilePath())
		if err != nil {
			return creds, err
		}
		creds.Username = profile.Credentials.Username
	}

	var err error
	if creds.Username == "" {
		if creds.Username, err = c.prompter.Ask(ctx, "Логин"); err != nil {
			return creds, err
		}
	}
	if creds.Password == "" {
		if creds.Password, err = c.prompter.AskPassword(ctx, "Пароль"); err != nil {
			return creds, err
		}
	}

	if creds.Username == "" || creds.Password == "" {
		return creds, fmt.Errorf("нужны логин и пароль")
	}
	return creds, nil
}
