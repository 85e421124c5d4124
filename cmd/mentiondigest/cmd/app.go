package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/linkerlin/mentiondigest/internal/clock"
	"github.com/linkerlin/mentiondigest/internal/config"
	"github.com/linkerlin/mentiondigest/internal/db"
	"github.com/linkerlin/mentiondigest/internal/jobs"
	"github.com/linkerlin/mentiondigest/internal/scheduler"
	"github.com/linkerlin/mentiondigest/internal/search"
	"github.com/linkerlin/mentiondigest/internal/secrets"
	"github.com/linkerlin/mentiondigest/internal/sheet"
	"github.com/linkerlin/mentiondigest/internal/webhook"
)

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	db       *db.DB
	clock    clock.Clock
	handlers scheduler.Registry
}

func newApp(cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	clk := clock.System{}
	deps := jobs.Deps{
		Secrets: secrets.Env{},
		Searcher: search.NewClient(cfg.Search.Endpoint,
			search.WithHTTPClient(&http.Client{Timeout: cfg.SearchTimeout()}),
			search.WithRequestsPerMinute(cfg.Search.RequestsPerMinute)),
		Poster: webhook.NewPoster(&http.Client{Timeout: cfg.WebhookTimeout()}),
		Clock:  clk,
	}
	handlers := jobs.Registry(
		jobs.NewMentionReport(cfg, deps),
		jobs.NewSheetDigest(cfg, sheet.NewDir(cfg.Sheet.Dir), deps),
	)
	return &app{cfg: cfg, db: database, clock: clk, handlers: handlers}, nil
}

func (a *app) manager() *scheduler.Manager {
	return scheduler.NewManager(a.db, a.handlers, a.cfg.App.Timezone, a.clock)
}

func (a *app) Close() error {
	return a.db.Close()
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg)
}
