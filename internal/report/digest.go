package report

import (
	"fmt"
	"strings"
)

// Digest renders spreadsheet rows as one line per row of "header: value"
// pairs. Empty cells are omitted and at most maxRows rows are listed.
func Digest(sheetName string, header []string, rows [][]string, maxRows int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*:clipboard: %s (%d %s)*\n", Escape(sheetName), len(rows), plural(len(rows), "row", "rows"))

	shown := rows
	if maxRows > 0 && len(rows) > maxRows {
		shown = rows[:maxRows]
	}
	for _, row := range shown {
		var pairs []string
		for i, cell := range row {
			cell = Escape(strings.TrimSpace(cell))
			if cell == "" {
				continue
			}
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				pairs = append(pairs, Escape(strings.TrimSpace(header[i]))+": "+cell)
			} else {
				pairs = append(pairs, cell)
			}
		}
		if len(pairs) == 0 {
			continue
		}
		sb.WriteString("• " + strings.Join(pairs, " / ") + "\n")
	}
	if rest := len(rows) - len(shown); rest > 0 {
		fmt.Fprintf(&sb, "…and %d more\n", rest)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
