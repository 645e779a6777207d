package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"devotion-feed/internal/config"
	"devotion-feed/internal/emailprocessor"
	"devotion-feed/internal/feed"
	imapclient "devotion-feed/internal/imap"
	"devotion-feed/internal/logging"
	"devotion-feed/internal/models"
	"devotion-feed/internal/server"
	"devotion-feed/internal/telegram"
	"devotion-feed/internal/whatsapp"

	"github.com/spf13/cobra"
)

var imapFailureCount atomic.Int32

const failureSleepDuration = 30 * time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve devotions.json and collect broadcasts from the enabled sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("reading configuration file: %w", err)
			}
			logging.SetLevel(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

// serve runs until ctx is cancelled or the HTTP server fails, then waits for the sources to stop
func serve(ctx context.Context, cfg *models.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := feed.NewStore(cfg.Feed.Path, cfg.Feed.MaxEntries)
	var wg sync.WaitGroup

	if cfg.Email.Enabled {
		logging.Log.Infof("Starting devotion mailbox polling, refresh every %s", cfg.Email.RefreshTime)
		wg.Add(1)
		go func() {
			defer wg.Done()
			pollMailbox(ctx, cfg.Email, store)
		}()
	}

	if cfg.WhatsApp.Enabled {
		logging.Log.Infof("Starting WhatsApp channel polling, refresh every %s", cfg.WhatsApp.RefreshTime)
		whatsapp.StartCleanup(ctx, time.Hour)
		svc := whatsapp.NewService(whatsapp.NewRodScraper(), store, cfg.WhatsApp)
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Run(ctx)
		}()
	}

	if cfg.Telegram.Enabled {
		listener := telegram.NewListener(cfg.Telegram, store)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Run(ctx); err != nil {
				logging.Log.WithError(err).Error("Telegram listener stopped")
			}
		}()
	}

	srv := server.New(store, server.Config{
		Addr:          cfg.Server.Addr,
		PageURL:       cfg.Server.PageURL,
		Ministry:      cfg.Ministry,
		WebhookSecret: cfg.Server.WebhookSecret,
	})
	err := srv.Start(ctx)

	cancel()
	wg.Wait()
	return err
}

func pollMailbox(ctx context.Context, cfg models.EmailConfig, store *feed.Store) {
	for {
		fetchAndProcessEmails(ctx, cfg, store)

		if !sleepCtx(ctx, cfg.RefreshTime) {
			return
		}
	}
}

// fetchAndProcessEmails connects to the IMAP server, retrieves unseen devotion emails, and stores them
func fetchAndProcessEmails(ctx context.Context, cfg models.EmailConfig, store *feed.Store) {
	client := imapclient.NewStandardClient()

	if err := client.Connect(cfg.Imap); err != nil {
		handleIMAPFailure(ctx, err)
		return
	}
	defer func(client *imapclient.StandardClient) {
		_ = client.Close()
	}(client)

	// Reset failure count on successful connection
	imapFailureCount.Store(0)

	if err := client.Login(cfg.Login, cfg.Password); err != nil {
		logging.Log.Errorf("Login error: %v", err)
		return
	}

	if err := client.SelectMailbox(cfg.MailBox); err != nil {
		logging.Log.Errorf("Folder selection error: %v", err)
		return
	}

	uids, err := client.ListUnseenUIDs(cfg.MaxAge, cfg.AllowedFrom)
	if err != nil {
		logging.Log.Errorf("Error searching for recent emails: %v", err)
		return
	}

	if len(uids) == 0 {
		return
	}

	processor := emailprocessor.NewProcessor(client, store, cfg.AllowedFrom, cfg.MaxAge)
	for _, uid := range uids {
		if err := processor.ProcessEmail(uid); err != nil {
			logging.Log.Errorf("Error processing email UID %d: %v", uid, err)
		}
	}
}

// handleIMAPFailure increments the failure count and implements an exponential backoff strategy
func handleIMAPFailure(ctx context.Context, err error) {
	failures := imapFailureCount.Add(1)
	logging.Log.Errorf("IMAP connection error: %v", err)

	if backoff := imapBackoff(failures); backoff > 0 {
		logging.Log.Warnf("IMAP failed %d times, waiting %s before next attempt", failures, backoff)
		sleepCtx(ctx, backoff)
	}
}

// sleepCtx waits for d and reports false when ctx ends first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// imapBackoff is zero for the first four failures, then doubles from 5 minutes up to failureSleepDuration
func imapBackoff(failures int32) time.Duration {
	if failures < 5 {
		return 0
	}

	base := 5 * time.Minute
	maxSteps := int32(10)

	n := failures - 5
	if n > maxSteps {
		n = maxSteps
	}

	backoff := base * time.Duration(1<<n)
	if backoff > failureSleepDuration {
		backoff = failureSleepDuration
	}
	return backoff
}
