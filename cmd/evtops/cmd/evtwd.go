package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/everitoken/evtops/lib/stack"
)

var (
	evtwdName     string
	evtwdClearAll bool
)

var evtwdCmd = &cobra.Command{
	Use:   "evtwd",
	Short: "Manage the wallet daemon container",
}

func wd() *stack.Evtwd {
	return stack.NewEvtwd(app.Reconciler, evtwdName)
}

var evtwdInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the wallet volume and check for an evt image",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := wd().Init(app.Ctx)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

var evtwdCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the wallet daemon container",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := wd().Create(app.Ctx)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

var evtwdClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the wallet container, and its volume with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := wd().Clear(app.Ctx, evtwdClearAll)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

var evtcCmd = &cobra.Command{
	Use:                "evtc [args...]",
	Short:              "Run a wallet client command inside the evtwd container",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, res, err := stack.NewEvtwd(app.Reconciler, defaults.EvtwdName).Evtc(app.Ctx, args)
		if err != nil {
			return err
		}
		if out == "" {
			printResults(res)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	evtwdCmd.PersistentFlags().StringVarP(&evtwdName, "name", "n", defaults.EvtwdName, "Container name")

	evtwdClearCmd.Flags().BoolVarP(&evtwdClearAll, "all", "a", false, "Remove the data volume too")

	evtwdCmd.AddCommand(evtwdInitCmd, evtwdCreateCmd, evtwdClearCmd)
	evtwdCmd.AddCommand(lifecycleCommands(func() string { return evtwdName })...)
	rootCmd.AddCommand(evtwdCmd, evtcCmd)
}
