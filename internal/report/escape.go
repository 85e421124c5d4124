package report

import "strings"

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape replaces the characters that Slack mrkdwn treats as control
// sequences. Links and mentions built by this package are not escaped.
func Escape(s string) string {
	return mrkdwnEscaper.Replace(s)
}
