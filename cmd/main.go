package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"uniTrack/internal/cli"
	"uniTrack/internal/cli/ui"
	"uniTrack/internal/config"
	"uniTrack/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logger.Env, cfg.Logger.Level, cfg.Logger.File)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.New(cfg, log)
	err = app.Execute(ctx)
	app.Close()

	if err != nil {
		log.Debug("Команда завершилась с ошибкой", zap.Error(err))
		fmt.Fprintln(os.Stderr, ui.Colorize(cli.IsTerminal(), ui.ColorRed, ui.IconCross+" "+err.Error()))
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
}
