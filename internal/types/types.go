package types

import "time"

// MessageMatch is one search hit, narrowed from the search API payload.
type MessageMatch struct {
	ChannelID   string
	ChannelName string // empty when the caller cannot resolve the channel by name
	Text        string
	Timestamp   string
	Username    string
	Permalink   string
}

// ChannelSummary is one distinct channel in a set of matches.
type ChannelSummary struct {
	ID   string
	Name string
}

// Trigger is a recurring schedule bound to a named handler.
type Trigger struct {
	ID         string
	Handler    string
	Schedule   string // standard 5-field cron expression
	Timezone   string
	NextRun    *time.Time
	LastRun    *time.Time
	LastResult string
	CreatedAt  time.Time
}

// IsDue reports whether the trigger should fire at now.
func (t *Trigger) IsDue(now time.Time) bool {
	if t.NextRun == nil {
		return false
	}
	return !now.Before(*t.NextRun)
}
