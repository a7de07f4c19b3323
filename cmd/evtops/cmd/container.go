package cmd

import (
	"github.com/spf13/cobra"
)

// Top-level lifecycle verbs operate on any container by raw name, for the
// odd container that is not part of a managed group.

var startCmd = &cobra.Command{
	Use:   "start <container>",
	Short: "Start a container by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := app.Reconciler.Start(app.Ctx, args[0])
		if err != nil {
			return err
		}
		printResults(res)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <container>",
	Short: "Stop a container by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := app.Reconciler.Stop(app.Ctx, args[0])
		if err != nil {
			return err
		}
		printResults(res)
		return nil
	},
}

var (
	rawLogsTail   int
	rawLogsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs <container>",
	Short: "Show a container's logs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return streamLogs(args[0], rawLogsTail, rawLogsFollow)
	},
}

var detailCmd = &cobra.Command{
	Use:   "detail <container>",
	Short: "Show a container's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showDetail(args[0])
	},
}

func init() {
	logsCmd.Flags().IntVar(&rawLogsTail, "tail", 100, "Number of trailing lines to show")
	logsCmd.Flags().BoolVarP(&rawLogsFollow, "stream", "s", false, "Keep streaming new log lines")

	rootCmd.AddCommand(startCmd, stopCmd, logsCmd, detailCmd)
}
