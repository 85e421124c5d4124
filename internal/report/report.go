// Package report composes the text posted to webhooks.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/linkerlin/mentiondigest/internal/types"
)

// StampLayout formats the generated-at line.
const StampLayout = "2006-01-02 15:04 MST"

// Builder renders mention reports.
type Builder struct {
	linkTemplate string
}

// NewBuilder creates a Builder. linkTemplate must contain one %s, replaced
// with the channel id.
func NewBuilder(linkTemplate string) *Builder {
	return &Builder{linkTemplate: linkTemplate}
}

// Build renders the full report: title, count line, one bullet per channel
// in the given order, and a closing line.
func (b *Builder) Build(dateLabel string, matchCount int, channels []types.ChannelSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*:mailbox_with_mail: Mentions on %s*\n", dateLabel)
	fmt.Fprintf(&sb, "You were mentioned %d %s across %d %s.\n",
		matchCount, plural(matchCount, "time", "times"),
		len(channels), plural(len(channels), "channel", "channels"))
	for _, c := range channels {
		fmt.Fprintf(&sb, "• #%s <%s|open>\n", Escape(c.Name), b.Link(c.ID))
	}
	sb.WriteString("Take a look when you have a moment. Have a great day! :muscle:")
	return sb.String()
}

// Link returns the deep link for a channel id.
func (b *Builder) Link(channelID string) string {
	return fmt.Sprintf(b.linkTemplate, channelID)
}

// NotFound is the short message sent when no channel matched.
func NotFound(dateLabel string) string {
	return fmt.Sprintf("*:mailbox_with_no_mail: No mentions on %s.*", dateLabel)
}

// Stamp is the generated-at line for now in loc.
func Stamp(now time.Time, loc *time.Location) string {
	return "_Generated at " + now.In(loc).Format(StampLayout) + "_"
}

// WithStamp appends a stamp line to body.
func WithStamp(body, stamp string) string {
	return body + "\n" + stamp
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
