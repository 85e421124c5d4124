// Package scheduler installs recurring triggers and runs their handlers when
// they come due.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
)

// ErrUnknownHandler is returned when a trigger names a handler that is not
// registered.
var ErrUnknownHandler = errors.New("unknown handler")

// Handler runs one firing of a trigger and returns a short result recorded
// as the trigger's last result.
type Handler func(ctx context.Context) string

// Registry maps handler names to handlers.
type Registry map[string]Handler

// Lookup returns the handler registered under name.
func (r Registry) Lookup(name string) (Handler, error) {
	h, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownHandler)
	}
	return h, nil
}

// Names returns the registered handler names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NextRun returns the first activation of schedule strictly after from,
// evaluated in the named time zone.
func NextRun(schedule, timezone string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	next := sched.Next(from.In(loc))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("schedule %q never fires", schedule)
	}
	return next, nil
}
