package cmd

import (
	"github.com/spf13/cobra"
)

// lifecycleCommands builds the start/stop/logs/detail subcommands every
// service group shares. The name is resolved lazily so persistent flags have
// been parsed by the time a command runs.
func lifecycleCommands(name func() string) []*cobra.Command {
	start := &cobra.Command{
		Use:   "start",
		Short: "Start the container",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Reconciler.Start(app.Ctx, name())
			if err != nil {
				return err
			}
			printResults(res)
			return nil
		},
	}

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the container",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Reconciler.Stop(app.Ctx, name())
			if err != nil {
				return err
			}
			printResults(res)
			return nil
		},
	}

	var (
		tail   int
		follow bool
	)
	logs := &cobra.Command{
		Use:   "logs",
		Short: "Show the container logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamLogs(name(), tail, follow)
		},
	}
	logs.Flags().IntVar(&tail, "tail", 100, "Number of trailing lines to show")
	logs.Flags().BoolVarP(&follow, "stream", "s", false, "Keep streaming new log lines")

	detail := &cobra.Command{
		Use:   "detail",
		Short: "Show the container details",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showDetail(name())
		},
	}

	return []*cobra.Command{start, stop, logs, detail}
}
