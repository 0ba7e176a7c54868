package app

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/example/studybuddy/internal/bot"
	"github.com/example/studybuddy/internal/scheduler"
	"github.com/example/studybuddy/internal/server"
)

// Serve runs the JSON API and, when a bot token is configured, the Telegram
// bot with its daily reminder job. It returns once ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	router := server.NewRouter(server.Config{
		DB:             a.DB,
		Uploader:       a.Pipeline,
		UploadDir:      a.Config.UploadDir,
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		Now:            a.now,
		Log:            a.Log,
	})

	var b *bot.Bot
	if a.Config.Reminders.Enabled() {
		var err error
		if b, err = bot.New(a.Config.Reminders.TelegramToken, a.DB, a.Log); err != nil {
			return err
		}
		sched := scheduler.NewFromDB(a.DB, b, a.Config.Reminders.Hour, a.Log)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	} else {
		a.Log.Warn("telegram reminders disabled, set TELEGRAM_BOT_TOKEN to enable them")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, a.Config.Server.Addr, router, a.Log)
	})
	if b != nil {
		g.Go(func() error {
			return b.Listen(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
