package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artistakss/angelika-bot/internal/assistant"
	"github.com/artistakss/angelika-bot/internal/bot"
	"github.com/artistakss/angelika-bot/internal/config"
	"github.com/artistakss/angelika-bot/internal/db"
	"github.com/artistakss/angelika-bot/internal/ledger"
	"github.com/artistakss/angelika-bot/internal/repo"
	"github.com/artistakss/angelika-bot/internal/server"
	"github.com/artistakss/angelika-bot/internal/session"
	"github.com/artistakss/angelika-bot/internal/storage/receipts"
)

func main() {
	cfg := config.MustLoad()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	store, headerRows, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		// the bot still starts; every ledger call reports unavailable
		log.Printf("ledger store: %v", err)
	}
	defer closeStore()

	l := ledger.New(store, ledger.WithHeaderRows(headerRows), ledger.WithSubscriptionDays(cfg.SubscriptionDays))

	var ai assistant.Completer
	if cfg.OpenAIKey != "" {
		ai = assistant.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel)
	}

	var archive receipts.Archiver
	if cfg.S3.Enabled() {
		a, err := receipts.NewS3Archive(ctx, receipts.S3Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Endpoint:        cfg.S3.Endpoint,
		})
		if err != nil {
			log.Printf("receipt archive disabled: %v", err)
		} else {
			archive = a
		}
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("bot init: %v", err)
	}
	botAPI.Debug = false

	h := bot.NewHandler(botAPI, cfg, l, session.NewReceipts(cfg.ReceiptWait, 0), ai, archive)

	var decoder server.UpdateDecoder
	path := server.WebhookPath(cfg.BotToken)
	if cfg.Transport == config.TransportWebhook {
		decoder = botAPI
		wh, err := tgbotapi.NewWebhook(strings.TrimRight(cfg.WebhookURL, "/") + path)
		if err != nil {
			log.Fatalf("webhook config: %v", err)
		}
		if _, err := botAPI.Request(wh); err != nil {
			log.Fatalf("set webhook: %v", err)
		}
	} else if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Printf("delete webhook: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(h, decoder, path),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server: %v", err)
		}
	}()

	// Expiry reminders
	go h.RunReminderWorker(ctx, cfg.RemindEvery)

	log.Printf("bot started as @%s (%s, ledger=%s)", botAPI.Self.UserName, cfg.Transport, cfg.LedgerBackend)

	if cfg.Transport == config.TransportPolling {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := botAPI.GetUpdatesChan(u)

	loop:
		for {
			select {
			case <-ctx.Done():
				botAPI.StopReceivingUpdates()
				break loop
			case upd := <-updates:
				h.HandleUpdate(ctx, upd)
			}
		}
	} else {
		<-ctx.Done()
	}

	log.Println("shutdown")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
}

// openStore builds the configured ledger backend. It returns the number of
// header rows the backend carries and a close func that is always safe to call.
func openStore(ctx context.Context, cfg config.Config) (ledger.Store, int, func(), error) {
	noop := func() {}

	switch cfg.LedgerBackend {
	case config.BackendSheets:
		id, err := cfg.SpreadsheetID()
		if err != nil {
			return nil, 0, noop, err
		}
		creds, err := cfg.GoogleCredentials()
		if err != nil {
			return nil, 0, noop, err
		}
		s, err := repo.NewSheets(ctx, creds, id, cfg.SheetName)
		if err != nil {
			return nil, 0, noop, err
		}
		log.Printf("connected to Google Sheets %s, tab %q", id, s.Sheet())
		return s, cfg.SheetHeaderRows, noop, nil

	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, 0, noop, err
		}
		if err := db.ApplyMigrations(ctx, pool, db.Migrations()); err != nil {
			pool.Close()
			return nil, 0, noop, fmt.Errorf("migrations: %w", err)
		}
		return repo.NewPayments(pool), 0, pool.Close, nil

	case config.BackendSQLite:
		s, err := repo.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, 0, noop, err
		}
		return s, 0, func() { _ = s.Close() }, nil

	case config.BackendMemory:
		return repo.NewMemory(), 0, noop, nil
	}
	return nil, 0, noop, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
}
