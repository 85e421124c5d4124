package search

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date format used in query bounds and report labels.
const DateLayout = "2006-01-02"

// ReportDay returns midnight of the day lookbackDays before now, in loc.
func ReportDay(now time.Time, loc *time.Location, lookbackDays int) time.Time {
	n := now.In(loc)
	midnight := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	return midnight.AddDate(0, 0, -lookbackDays)
}

// BuildQuery returns a query matching mentions of userID, or any of names,
// posted on day. after: and before: are exclusive on the search side, so the
// bounds sit one day either side of day.
func BuildQuery(userID string, names []string, day time.Time) string {
	cond := "<@" + userID + ">"
	if len(names) > 0 {
		parts := []string{cond}
		for _, n := range names {
			n = strings.TrimSpace(strings.ReplaceAll(n, `"`, ""))
			if n == "" {
				continue
			}
			parts = append(parts, `"`+n+`"`)
		}
		if len(parts) > 1 {
			cond = "(" + strings.Join(parts, " OR ") + ")"
		}
	}
	after := day.AddDate(0, 0, -1).Format(DateLayout)
	before := day.AddDate(0, 0, 1).Format(DateLayout)
	return fmt.Sprintf("%s after:%s before:%s", cond, after, before)
}
