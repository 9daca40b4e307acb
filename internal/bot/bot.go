// Package bot implements lifecycle management and component orchestration
// for the digest bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/okatrych/digestobot/internal/config"
)

// Bot owns the long-running components: the Telegram update listener
// (polling or webhook), the optional webhook HTTP server, and the task
// scheduler.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates the orchestrator with all required dependencies.
func NewBot(logger *slog.Logger, cfg *config.Config, tgBot *tgbot.Bot, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until the context is cancelled or a
// component fails. Shutdown is graceful: the scheduler waits for running
// jobs and the webhook server drains in-flight requests.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	if b.cfg.Webhook.Enabled {
		b.runWebhook(g, gCtx)
	} else {
		g.Go(func() error {
			b.logger.Info("Starting Telegram long polling")
			b.tgBot.Start(gCtx)
			b.logger.Info("Telegram listener stopped")

			if gCtx.Err() == nil {
				return fmt.Errorf("telegram listener stopped unexpectedly")
			}
			return nil
		})
	}

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}

// runWebhook serves Telegram updates over HTTP. The webhook endpoint
// itself always responds success-shaped; update processing errors are
// logged by the handlers, never surfaced to Telegram as HTTP failures.
func (b *Bot) runWebhook(g *errgroup.Group, gCtx context.Context) {
	mux := http.NewServeMux()
	mux.Handle(b.cfg.Webhook.Path, b.tgBot.WebhookHandler())

	srv := &http.Server{
		Addr:              b.cfg.Webhook.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		b.logger.Info("Starting webhook server", "addr", b.cfg.Webhook.ListenAddr, "path", b.cfg.Webhook.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		b.tgBot.StartWebhook(gCtx)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
