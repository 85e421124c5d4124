package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <handler>",
	Short: "Run a handler once, now",
	Long: `Run a handler immediately, outside its schedule. The outcome is logged and
printed; a failed job does not make the command fail.

Handlers: mentionReport, sheetDigest`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.handlers.Lookup(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), h(cmd.Context()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
