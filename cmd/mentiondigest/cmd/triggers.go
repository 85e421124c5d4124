package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/linkerlin/mentiondigest/internal/jobs"
	"github.com/linkerlin/mentiondigest/internal/types"
)

var triggersCmd = &cobra.Command{
	Use:   "triggers",
	Short: "Manage recurring triggers",
}

var triggersInstallCmd = &cobra.Command{
	Use:   "install <handler>",
	Short: "Install the trigger for a handler, replacing any existing one",
	Long: `Install the trigger for a handler. Existing triggers bound to the same
handler are removed first, so installing twice leaves one trigger.

  mentionReport  daily at report.hour
  sheetDigest    every sheet.every_minutes minutes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		m := a.manager()
		var t types.Trigger
		switch args[0] {
		case jobs.MentionReportHandler:
			hour := a.cfg.Report.Hour
			if cmd.Flags().Changed("hour") {
				hour, _ = cmd.Flags().GetInt("hour")
			}
			t, err = m.InstallDaily(cmd.Context(), args[0], hour)
		case jobs.SheetDigestHandler:
			every := a.cfg.Sheet.EveryMinutes
			if cmd.Flags().Changed("every") {
				every, _ = cmd.Flags().GetInt("every")
			}
			t, err = m.InstallEvery(cmd.Context(), args[0], every)
		default:
			_, err = a.handlers.Lookup(args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "installed %s (%s %s), next run %s\n",
			t.Handler, t.Schedule, t.Timezone, formatRun(t.NextRun, a.cfg.Location()))
		return nil
	},
}

var triggersUninstallCmd = &cobra.Command{
	Use:   "uninstall <handler>",
	Short: "Remove every trigger bound to a handler",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.manager().Uninstall(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d trigger(s) for %s\n", n, args[0])
		return nil
	},
}

var triggersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed triggers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.manager().List(cmd.Context())
		if err != nil {
			return err
		}
		renderTriggers(cmd.OutOrStdout(), list, a.cfg.Location())
		return nil
	},
}

func init() {
	triggersInstallCmd.Flags().Int("hour", 0, "hour of day for mentionReport (default report.hour)")
	triggersInstallCmd.Flags().Int("every", 0, "interval in minutes for sheetDigest (default sheet.every_minutes)")

	triggersCmd.AddCommand(triggersInstallCmd, triggersUninstallCmd, triggersListCmd)
	rootCmd.AddCommand(triggersCmd)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
)

const resultColumn = 5

func renderTriggers(w io.Writer, list []types.Trigger, loc *time.Location) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no triggers installed")
		return
	}

	rows := make([][]string, 0, len(list))
	for _, t := range list {
		rows = append(rows, []string{
			t.Handler,
			t.Schedule,
			t.Timezone,
			formatRun(t.NextRun, loc),
			formatRun(t.LastRun, loc),
			t.LastResult,
		})
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("HANDLER", "SCHEDULE", "TIMEZONE", "NEXT RUN", "LAST RUN", "LAST RESULT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == resultColumn && row >= 0 && row < len(rows) && isFailure(rows[row][col]) {
				return errorStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, tbl.Render())
}

func isFailure(result string) bool {
	if result == "" {
		return false
	}
	return !strings.HasPrefix(result, string(jobs.StatusSent)) &&
		!strings.HasPrefix(result, string(jobs.StatusNotFoundSent))
}

func formatRun(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return t.In(loc).Format("2006-01-02 15:04 MST")
}
