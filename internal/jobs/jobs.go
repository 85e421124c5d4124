// Package jobs holds the handlers fired by triggers. Each handler turns every
// failure into a logged Outcome and never returns an error.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/linkerlin/mentiondigest/internal/clock"
	"github.com/linkerlin/mentiondigest/internal/metrics"
	"github.com/linkerlin/mentiondigest/internal/scheduler"
	"github.com/linkerlin/mentiondigest/internal/search"
	"github.com/linkerlin/mentiondigest/internal/secrets"
	"github.com/linkerlin/mentiondigest/internal/webhook"
)

// Handler names triggers are bound to.
const (
	MentionReportHandler = "mentionReport"
	SheetDigestHandler   = "sheetDigest"
)

// Status classifies how a run ended.
type Status string

const (
	StatusSent           Status = "sent"
	StatusNotFoundSent   Status = "not_found_sent"
	StatusConfigError    Status = "config_error"
	StatusSearchFailed   Status = "search_failed"
	StatusDeliveryFailed Status = "delivery_failed"
	StatusNoData         Status = "no_data"
)

// Outcome is the result of one handler run.
type Outcome struct {
	Status Status
	Detail string
}

func (o Outcome) String() string {
	if o.Detail == "" {
		return string(o.Status)
	}
	return string(o.Status) + ": " + o.Detail
}

// Searcher runs a paginated message search.
type Searcher interface {
	Search(ctx context.Context, credential, query string) search.Result
}

// Poster delivers a message to a webhook.
type Poster interface {
	Post(ctx context.Context, url, text string) webhook.Delivery
}

// Deps are the collaborators shared by every job.
type Deps struct {
	Secrets  secrets.Store
	Searcher Searcher
	Poster   Poster
	Clock    clock.Clock
}

// Registry binds handler names to the given jobs.
func Registry(mention *MentionReport, digest *SheetDigest) scheduler.Registry {
	return scheduler.Registry{
		MentionReportHandler: func(ctx context.Context) string { return mention.Run(ctx).String() },
		SheetDigestHandler:   func(ctx context.Context) string { return digest.Run(ctx).String() },
	}
}

func record(handler string, started, finished time.Time, out Outcome) {
	metrics.JobRunsTotal.WithLabelValues(handler, string(out.Status)).Inc()
	metrics.JobDuration.WithLabelValues(handler).Observe(finished.Sub(started).Seconds())

	attrs := []any{"handler", handler, "status", out.Status, "detail", out.Detail}
	switch out.Status {
	case StatusSent, StatusNotFoundSent:
		slog.Info("job finished", attrs...)
	case StatusNoData:
		slog.Warn("job finished", attrs...)
	default:
		slog.Error("job finished", attrs...)
	}
}
