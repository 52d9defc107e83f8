package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mattn/go-isatty"
	"github.com/raine/mural-table-bot/config"
	"github.com/raine/mural-table-bot/internal/board"
	"github.com/raine/mural-table-bot/internal/bot"
	"github.com/raine/mural-table-bot/internal/llm"
	"github.com/raine/mural-table-bot/internal/scheduler"
	"github.com/raine/mural-table-bot/internal/storage"
	"github.com/raine/mural-table-bot/internal/web"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const logFileName = "mural-table-bot.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !isatty.IsTerminal(os.Stderr.Fd())}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd (journald handles it).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(consoleWriter)
	} else {
		// Local development: log to both stderr and file
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			log.Logger = log.Output(consoleWriter)
			config.Fatal("failed to open log file: %v", err)
		}
		defer logFile.Close()

		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		config.Fatal("invalid configuration: %v", err)
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		config.Fatal("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := llm.NewGeminiClient(ctx, cfg.GoogleAPIKey)
	if err != nil {
		config.Fatal("failed to initialize gemini client: %v", err)
	}
	lister := llm.NewGenaiModelLister(client)
	model := llm.ResolveModel(ctx, lister, cfg.ModelSelection())
	models := llm.CandidateModels(model, cfg.ModelPreference)
	log.Info().Strs("models", models).Dur("timeout", cfg.AnalyzeTimeout).Msg("gemini vision analyzer initialized")

	// Wrap with cache
	analyzer := llm.NewCachedAnalyzer(llm.NewGeminiAnalyzer(client, models, cfg.AnalyzeTimeout), store)

	tasks := []scheduler.Task{{
		Name: "prune vision cache",
		Run: func(ctx context.Context) error {
			n, err := store.PruneVisionCache(cfg.CacheMaxAge)
			if err == nil && n > 0 {
				log.Info().Int64("count", n).Msg("pruned vision cache")
			}
			return err
		},
	}}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.HTTPAddr != "" {
		sessions, err := web.NewSessionManager(cfg.SessionSecret, cfg.SessionIdle)
		if err != nil {
			config.Fatal("failed to initialize web sessions: %v", err)
		}
		handler, err := web.NewHandler(sessions, board.NewProcessor(analyzer))
		if err != nil {
			config.Fatal("failed to initialize web handler: %v", err)
		}
		tasks = append(tasks, scheduler.Task{
			Name: "prune web sessions",
			Run: func(ctx context.Context) error {
				sessions.PruneIdle()
				return nil
			},
		})
		server := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			return runServer(ctx, server)
		})
	}

	if cfg.BotToken != "" {
		tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			config.Fatal("failed to initialize telegram bot: %v", err)
		}
		tg.Debug = false
		log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

		// Register bot commands for Telegram's command menu
		bot.RegisterCommands(tg)

		b := bot.NewBot(tg, store, cfg.AdminID)
		b.SetAnalyzer(analyzer, models)
		b.SetModelLister(lister)
		g.Go(func() error {
			return runBot(ctx, tg, b)
		})
	}

	maintenance := scheduler.New(cfg.MaintenanceCron, tasks...)
	if err := maintenance.Start(ctx); err != nil {
		config.Fatal("failed to start scheduler: %v", err)
	}
	g.Go(func() error {
		<-ctx.Done()
		maintenance.Stop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func runServer(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("stopping http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer b.Shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
