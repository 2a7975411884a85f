package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"uniTrack/internal/browser"
	"uniTrack/internal/cli/commands"
	"uniTrack/internal/cli/ui"
	"uniTrack/internal/config"
	"uniTrack/internal/server"
)

// Execute запускает корневую команду.
func (c *CLI) Execute(ctx context.Context) error {
	return c.RootCommand().ExecuteContext(ctx)
}

func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "unitrack",
		Short:         "unitrack выгружает посещаемость с университетского портала и считает, сколько пар можно пропустить.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		c.fetchCommand(),
		c.discoverCommand(),
		c.statusCommand(),
		c.serveCommand(),
		c.configCommand(),
		c.historyCommand(),
		c.installCommand(),
	)
	return root
}

func (c *CLI) fetchCommand() *cobra.Command {
	var username string
	var discover bool

	cmd := &cobra.Command{
		Use:   "fetch [--username <login>] [--discover]",
		Short: "Войти на портал и обновить посещаемость",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			profile, err := config.LoadProfile(c.cfg.ProfilePath())
			if err != nil {
				return err
			}
			creds, err := c.credentials(ctx, username)
			if err != nil {
				return err
			}
			autoDiscover := discover || !profile.Portal.Selectors.Complete()
			return commands.NewFetchHandler(c.tracker(), c.out, c.colored).Fetch(ctx, creds, autoDiscover, profile.Student.Name)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "логин на портале")
	cmd.Flags().BoolVar(&discover, "discover", false, "искать селекторы, которых нет в профиле")
	return cmd
}

func (c *CLI) discoverCommand() *cobra.Command {
	var username string
	var api bool

	cmd := &cobra.Command{
		Use:   "discover [--api]",
		Short: "Найти форму входа, а с --api ещё и эндпоинт посещаемости",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			h := commands.NewDiscoverHandler(c.fetcher(), c.cfg.ProfilePath(), c.out, c.colored)
			if !api {
				return h.Login(ctx)
			}
			creds, err := c.credentials(ctx, username)
			if err != nil {
				return err
			}
			return h.API(ctx, creds)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "логин на портале")
	cmd.Flags().BoolVar(&api, "api", false, "войти и найти эндпоинт посещаемости")
	return cmd
}

func (c *CLI) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Показать анализ последней выгрузки",
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.NewStatusHandler(c.tracker(), c.out, c.colored).Show()
		},
	}
}

func (c *CLI) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.New(c.cfg, c.log, c.tracker(), c.fetcher()).Run(cmd.Context())
		},
	}
}

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Показать профиль портала",
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.NewConfigHandler(c.cfg.ProfilePath(), c.out, c.colored).Show()
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Изменить поле профиля, например portal.base_url или thresholds.custom.Lab",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return commands.NewConfigHandler(c.cfg.ProfilePath(), c.out, c.colored).Set(args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Настроить профиль по шагам",
			RunE: func(cmd *cobra.Command, args []string) error {
				return commands.NewConfigHandler(c.cfg.ProfilePath(), c.out, c.colored).Init(cmd.Context(), c.prompter)
			},
		},
	)
	return cmd
}

func (c *CLI) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "История выгрузок (нужен DB_HOST)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := c.history()
			if err != nil {
				return err
			}
			if repo == nil {
				ui.PrintTip(c.out, "история хранится в PostgreSQL, задайте DB_HOST", c.colored)
				return nil
			}

			h := commands.NewHistoryHandler(repo, c.out, c.colored)
			if len(args) == 0 {
				return h.List(cmd.Context(), limit)
			}

			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			profile, err := config.LoadProfile(c.cfg.ProfilePath())
			if err != nil {
				return err
			}
			return h.Show(cmd.Context(), uint(id), profile.Thresholds)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "сколько последних выгрузок показать")
	return cmd
}

func (c *CLI) installCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Скачать драйвер Playwright и браузер",
		RunE: func(cmd *cobra.Command, args []string) error {
			return browser.Install(cmd.Context(), c.browserConfig())
		},
	}
}
