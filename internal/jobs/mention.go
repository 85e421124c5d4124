package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkerlin/mentiondigest/internal/aggregate"
	"github.com/linkerlin/mentiondigest/internal/clock"
	"github.com/linkerlin/mentiondigest/internal/config"
	"github.com/linkerlin/mentiondigest/internal/report"
	"github.com/linkerlin/mentiondigest/internal/search"
	"github.com/linkerlin/mentiondigest/internal/secrets"
)

// MentionReport searches yesterday's mentions and posts a per-channel report.
type MentionReport struct {
	secrets    secrets.Store
	searcher   Searcher
	poster     Poster
	clock      clock.Clock
	aggregator *aggregate.Aggregator
	builder    *report.Builder

	loc          *time.Location
	names        []string
	lookbackDays int
	keys         config.SecretsConfig
}

// NewMentionReport creates the job from cfg.
func NewMentionReport(cfg *config.Config, deps Deps) *MentionReport {
	return &MentionReport{
		secrets:      deps.Secrets,
		searcher:     deps.Searcher,
		poster:       deps.Poster,
		clock:        deps.Clock,
		aggregator:   aggregate.New(cfg.Report.Locale),
		builder:      report.NewBuilder(cfg.Report.LinkTemplate),
		loc:          cfg.Location(),
		names:        cfg.Search.Names,
		lookbackDays: cfg.Report.LookbackDays,
		keys:         cfg.Secrets,
	}
}

// Run executes one report.
func (j *MentionReport) Run(ctx context.Context) Outcome {
	started := j.clock.Now()
	out := j.run(ctx)
	record(MentionReportHandler, started, j.clock.Now(), out)
	return out
}

func (j *MentionReport) run(ctx context.Context) Outcome {
	vals, err := secrets.Require(j.secrets, j.keys.WebhookURLKey, j.keys.TokenKey, j.keys.UserIDKey)
	if err != nil {
		slog.Error("mention report is not configured", "err", err)
		return Outcome{Status: StatusConfigError, Detail: err.Error()}
	}
	webhookURL := vals[j.keys.WebhookURLKey]

	now := j.clock.Now()
	day := search.ReportDay(now, j.loc, j.lookbackDays)
	label := day.Format(search.DateLayout)
	query := search.BuildQuery(vals[j.keys.UserIDKey], j.names, day)

	res := j.searcher.Search(ctx, vals[j.keys.TokenKey], query)
	if res.Failed() {
		if len(res.Matches) == 0 {
			return Outcome{Status: StatusSearchFailed, Detail: res.Err.Error()}
		}
		slog.Warn("search ended early, reporting partial results", "matches", len(res.Matches), "pages", res.Pages, "err", res.Err)
	}

	agg := j.aggregator.Channels(res.Matches)
	if agg.Skipped > 0 {
		slog.Warn("matches without channel skipped", "count", agg.Skipped)
	}

	stamp := report.Stamp(now, j.loc)
	status := StatusSent
	var text string
	if len(agg.Channels) == 0 {
		status = StatusNotFoundSent
		text = report.WithStamp(report.NotFound(label), stamp)
	} else {
		text = report.WithStamp(j.builder.Build(label, len(res.Matches), agg.Channels), stamp)
	}

	d := j.poster.Post(ctx, webhookURL, text)
	if !d.OK() {
		return Outcome{Status: StatusDeliveryFailed, Detail: deliveryDetail(d.Err, d.StatusCode)}
	}
	return Outcome{
		Status: status,
		Detail: fmt.Sprintf("%s: %d matches in %d channels", label, len(res.Matches), len(agg.Channels)),
	}
}

func deliveryDetail(err error, status int) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("webhook returned status %d", status)
}
