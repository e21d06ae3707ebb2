package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/brettbeeson/notsolong/internal/api"
	"github.com/brettbeeson/notsolong/internal/auth"
	"github.com/brettbeeson/notsolong/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	httpClient := http.DefaultClient
	if config.API.TimeoutSeconds > 0 {
		httpClient = &http.Client{Timeout: time.Duration(config.API.TimeoutSeconds) * time.Second}
	}

	store := auth.NewFileStore(shared.HomePath(config.Storage.TokenPath))
	client := api.NewClient(config.API.BaseURL, httpClient, store, logger)
	session := auth.NewManager(client, store, logger,
		time.Duration(config.Session.RefreshIntervalMinutes)*time.Minute)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Client:     client,
		Session:    session,
		Store:      store,
		HTTPClient: httpClient,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "nsl",
		Usage:    "Read and share bite-size recaps of books, movies, podcasts and speeches",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
