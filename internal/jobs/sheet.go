package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkerlin/mentiondigest/internal/clock"
	"github.com/linkerlin/mentiondigest/internal/config"
	"github.com/linkerlin/mentiondigest/internal/report"
	"github.com/linkerlin/mentiondigest/internal/secrets"
	"github.com/linkerlin/mentiondigest/internal/sheet"
)

// SheetDigest posts the rows of one spreadsheet sheet.
type SheetDigest struct {
	secrets secrets.Store
	source  sheet.Source
	poster  Poster
	clock   clock.Clock

	loc         *time.Location
	spreadsheet string
	sheet       string
	maxRows     int
	webhookKey  string
}

// NewSheetDigest creates the job from cfg.
func NewSheetDigest(cfg *config.Config, source sheet.Source, deps Deps) *SheetDigest {
	return &SheetDigest{
		secrets:     deps.Secrets,
		source:      source,
		poster:      deps.Poster,
		clock:       deps.Clock,
		loc:         cfg.Location(),
		spreadsheet: cfg.Sheet.Spreadsheet,
		sheet:       cfg.Sheet.Sheet,
		maxRows:     cfg.Sheet.MaxRows,
		webhookKey:  cfg.Sheet.WebhookKey,
	}
}

// Run executes one digest.
func (j *SheetDigest) Run(ctx context.Context) Outcome {
	started := j.clock.Now()
	out := j.run(ctx)
	record(SheetDigestHandler, started, j.clock.Now(), out)
	return out
}

func (j *SheetDigest) run(ctx context.Context) Outcome {
	webhookURL, err := j.secrets.Get(j.webhookKey)
	if err != nil {
		slog.Error("sheet digest is not configured", "err", err)
		return Outcome{Status: StatusConfigError, Detail: err.Error()}
	}

	rows, err := j.source.Rows(ctx, j.spreadsheet, j.sheet)
	if err != nil {
		if errors.Is(err, sheet.ErrSheetNotFound) {
			slog.Error("sheet not found", "spreadsheet", j.spreadsheet, "sheet", j.sheet)
		} else {
			slog.Error("read sheet", "spreadsheet", j.spreadsheet, "sheet", j.sheet, "err", err)
		}
		return Outcome{Status: StatusConfigError, Detail: err.Error()}
	}
	if len(rows) < 2 {
		slog.Warn("sheet has no data rows", "spreadsheet", j.spreadsheet, "sheet", j.sheet, "rows", len(rows))
		return Outcome{Status: StatusNoData}
	}

	text := report.WithStamp(
		report.Digest(j.sheet, rows[0], rows[1:], j.maxRows),
		report.Stamp(j.clock.Now(), j.loc),
	)
	d := j.poster.Post(ctx, webhookURL, text)
	if !d.OK() {
		return Outcome{Status: StatusDeliveryFailed, Detail: deliveryDetail(d.Err, d.StatusCode)}
	}
	return Outcome{Status: StatusSent, Detail: fmt.Sprintf("%d rows", len(rows)-1)}
}
