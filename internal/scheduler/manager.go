package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/linkerlin/mentiondigest/internal/clock"
	"github.com/linkerlin/mentiondigest/internal/db"
	"github.com/linkerlin/mentiondigest/internal/types"
)

// Manager installs and removes triggers.
type Manager struct {
	db       *db.DB
	handlers Registry
	timezone string
	clock    clock.Clock
}

// NewManager creates a Manager. timezone is the IANA zone new triggers are
// evaluated in.
func NewManager(d *db.DB, handlers Registry, timezone string, clk clock.Clock) *Manager {
	return &Manager{db: d, handlers: handlers, timezone: timezone, clock: clk}
}

// InstallDaily replaces every trigger bound to handler with one that fires
// daily at hour:00.
func (m *Manager) InstallDaily(ctx context.Context, handler string, hour int) (types.Trigger, error) {
	if hour < 0 || hour > 23 {
		return types.Trigger{}, fmt.Errorf("hour must be between 0 and 23, got %d", hour)
	}
	return m.install(ctx, handler, fmt.Sprintf("0 %d * * *", hour))
}

// InstallEvery replaces every trigger bound to handler with one that fires
// every minutes minutes.
func (m *Manager) InstallEvery(ctx context.Context, handler string, minutes int) (types.Trigger, error) {
	if minutes < 1 || minutes > 59 {
		return types.Trigger{}, fmt.Errorf("minutes must be between 1 and 59, got %d", minutes)
	}
	return m.install(ctx, handler, fmt.Sprintf("*/%d * * * *", minutes))
}

func (m *Manager) install(ctx context.Context, handler, schedule string) (types.Trigger, error) {
	if _, err := m.handlers.Lookup(handler); err != nil {
		return types.Trigger{}, err
	}
	now := m.clock.Now()
	next, err := NextRun(schedule, m.timezone, now)
	if err != nil {
		return types.Trigger{}, err
	}

	t := types.Trigger{
		ID:        uuid.NewString(),
		Handler:   handler,
		Schedule:  schedule,
		Timezone:  m.timezone,
		NextRun:   &next,
		CreatedAt: now,
	}
	removed, err := m.db.ReplaceTriggers(ctx, handler, t)
	if err != nil {
		return types.Trigger{}, fmt.Errorf("install trigger for %s: %w", handler, err)
	}
	slog.Info("trigger installed", "handler", handler, "schedule", schedule, "timezone", m.timezone,
		"next_run", next, "replaced", removed)
	return t, nil
}

// Uninstall removes every trigger bound to handler.
func (m *Manager) Uninstall(ctx context.Context, handler string) (int64, error) {
	if _, err := m.handlers.Lookup(handler); err != nil {
		return 0, err
	}
	n, err := m.db.DeleteTriggers(ctx, handler)
	if err != nil {
		return 0, fmt.Errorf("uninstall %s: %w", handler, err)
	}
	slog.Info("triggers removed", "handler", handler, "count", n)
	return n, nil
}

// List returns every installed trigger.
func (m *Manager) List(ctx context.Context) ([]types.Trigger, error) {
	return m.db.ListTriggers(ctx)
}
