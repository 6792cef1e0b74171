// Command server runs the inline answer bot: Telegram long polling for
// inline queries and chosen results, plus the HTTP status surface.
//
// @title                     Inline Answer Bot status API
// @version                   1.0
// @description               Status page, reservation lookup and answer callback for the inline answer bot.
// @BasePath                  /api
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-inline-answer-bot/internal/answer"
	"github.com/tbourn/go-inline-answer-bot/internal/config"
	"github.com/tbourn/go-inline-answer-bot/internal/domain"
	httpapi "github.com/tbourn/go-inline-answer-bot/internal/http"
	"github.com/tbourn/go-inline-answer-bot/internal/http/middleware"
	"github.com/tbourn/go-inline-answer-bot/internal/observability"
	"github.com/tbourn/go-inline-answer-bot/internal/repo"
	"github.com/tbourn/go-inline-answer-bot/internal/services"
	"github.com/tbourn/go-inline-answer-bot/internal/sysutil"
	"github.com/tbourn/go-inline-answer-bot/internal/telegram"
)

const shutdownGrace = 10 * time.Second

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

// store is what the process needs from a reservation backend.
type store interface {
	services.ReservationStore
	services.Sweeper
}

func run(ctx context.Context, cfg config.Config) error {
	version := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), "dev")

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := answer.FromConfig(cfg.Answer, &http.Client{Timeout: cfg.Answer.Timeout + 5*time.Second})
	if err != nil {
		return err
	}
	if cfg.Answer.Provider == "perplexity" && cfg.Answer.APIKey == "" {
		log.Warn().Msg("PERPLEXITY_API_KEY is empty; every selection will fail")
	}

	svcLog := log.With().Str("component", "services").Logger()
	policy := services.NewAccessPolicy(cfg.Bot.AllowedIDs)
	usage := services.NewUsageTracker()

	g, ctx := errgroup.WithContext(ctx)

	// Without the bot, callbacks still complete reservations; deliveries to
	// creators fail and are logged.
	var (
		messenger services.Messenger = discardMessenger{}
		bot       *tgbotapi.BotAPI
		client    *telegram.Client
	)
	if !cfg.Bot.Disabled {
		if cfg.Bot.Token == "" {
			return errors.New("BOT_TOKEN is required unless BOT_DISABLED=true")
		}
		if bot, err = telegram.Connect(cfg.Bot); err != nil {
			return err
		}
		log.Info().Str("bot", bot.Self.UserName).Msg("telegram connected")
		client = telegram.NewClient(bot, cfg.Bot.InlineCacheSec)
		messenger = client
	} else {
		log.Warn().Msg("BOT_DISABLED: serving the status surface only")
	}
	notifier := services.NewNotifier(messenger, cfg.ServerURL, cfg.Bot.ChunkSize, svcLog)

	if bot != nil {
		disp := &telegram.Dispatcher{
			Inline: &services.InlineService{Store: st, Policy: policy, BaseURL: cfg.ServerURL, Log: svcLog},
			Selection: &services.SelectionService{
				Store:    st,
				Policy:   policy,
				Usage:    usage,
				Provider: provider,
				Notifier: notifier,
				Limit:    cfg.Bot.UsageLimit24h,
				Timeout:  cfg.Answer.Timeout,
				Log:      svcLog,
			},
			Answerer: client,
			Log:      log.With().Str("component", "telegram").Logger(),
		}
		updates := telegram.Updates(bot, cfg.Bot.PollTimeout)
		g.Go(func() error {
			<-ctx.Done()
			bot.StopReceivingUpdates()
			return nil
		})
		g.Go(func() error { return ignoreCanceled(disp.Run(ctx, updates)) })
	}

	if cfg.ReservationTTL > 0 {
		j := &services.Janitor{Store: st, Usage: usage, TTL: cfg.ReservationTTL, Log: svcLog}
		g.Go(func() error { return ignoreCanceled(j.Run(ctx)) })
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		Reader:      &services.StatusService{Store: st},
		Completer:   &services.CallbackService{Store: st, Notifier: notifier, Log: svcLog},
		Idempotency: middleware.NewMemoryIdempotency(cfg.IdempotencyTTL),
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("url", cfg.ServerURL).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

// openStore builds the configured reservation store and its close func.
func openStore(cfg config.Config) (store, func(), error) {
	if cfg.StoreDriver != "sqlite" {
		return repo.NewMemoryStore(), func() {}, nil
	}
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return repo.NewGormStore(db), func() { _ = sqlDB.Close() }, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// discardMessenger stands in for the chat transport when the bot is
// disabled. Deliveries fail and are logged by the notifier.
type discardMessenger struct{}

var errNoTransport = errors.New("chat transport disabled")

func (discardMessenger) Send(context.Context, string, string) (domain.MessageRef, error) {
	return domain.MessageRef{}, errNoTransport
}

func (discardMessenger) Edit(context.Context, domain.MessageRef, string) error {
	return errNoTransport
}
