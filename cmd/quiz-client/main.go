package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizgen-client/internal/api"
	"quizgen-client/internal/auth"
	"quizgen-client/internal/cli"
	"quizgen-client/internal/config"
	"quizgen-client/internal/journal"
	"quizgen-client/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:], os.LookupEnv)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.NewHTTPClient(cfg.BaseURL(), &http.Client{Timeout: cfg.HTTPTimeout},
		api.WithLogger(log),
		api.WithSession(cfg.SessionCookieName, cfg.Session),
	)

	deps := cli.Deps{
		Backend:   client,
		Auth:      auth.NewCache(client, cfg.AuthCacheTTL, time.Now),
		Logger:    log,
		ServerURL: cfg.ServerURL,
		LoginURL:  cfg.LoginURL(),
		OnLogout: func() {
			client.SetSession(cfg.SessionCookieName, "")
		},
	}

	if cfg.JournalPath != "" {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.Journal = store
	} else {
		log.Info("answer journal disabled")
	}

	log.WithField("base_url", client.BaseURL()).Debug("client ready")
	return cli.Run(ctx, os.Stdin, os.Stdout, deps)
}
