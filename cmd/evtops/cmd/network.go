package cmd

import (
	"github.com/spf13/cobra"

	"github.com/everitoken/evtops/lib/stack"
)

var networkName string

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Manage the environment bridge network",
}

var networkInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the bridge network if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := stack.NewNetwork(app.Reconciler, networkName).Init(app.Ctx)
		if err != nil {
			return err
		}
		printResults(res)
		return nil
	},
}

var networkCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete the bridge network",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := stack.NewNetwork(app.Reconciler, networkName).Clean(app.Ctx)
		if err != nil {
			return err
		}
		printResults(res)
		return nil
	},
}

func init() {
	networkCmd.PersistentFlags().StringVarP(&networkName, "name", "n", defaults.Network, "Network name")
	networkCmd.AddCommand(networkInitCmd, networkCleanCmd)
	rootCmd.AddCommand(networkCmd)
}
