package cmd

import (
	"github.com/spf13/cobra"

	"github.com/everitoken/evtops/lib/stack"
)

var (
	mongoName     string
	mongoNet      string
	mongoHost     string
	mongoPort     int
	mongoClearAll bool
)

var mongoCmd = &cobra.Command{
	Use:   "mongo",
	Short: "Manage the mongodb container",
}

func mg() *stack.Mongo {
	return stack.NewMongo(app.Reconciler, mongoName)
}

var mongoInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Pull the mongo image and create its volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := mg().Init(app.Ctx)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

var mongoCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the mongodb container",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := mg().Create(app.Ctx, stack.MongoCreateOptions{
			Network: mongoNet,
			Host:    mongoHost,
			Port:    mongoPort,
		})
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

var mongoClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the mongodb container, and its volume with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := mg().Clear(app.Ctx, mongoClearAll)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

func init() {
	mongoCmd.PersistentFlags().StringVarP(&mongoName, "name", "n", defaults.MongoName, "Container name")

	mongoCreateCmd.Flags().StringVar(&mongoNet, "net", defaults.Network, "Network to join")
	mongoCreateCmd.Flags().StringVar(&mongoHost, "host", defaults.HostIP, "Host address to expose the port on")
	mongoCreateCmd.Flags().IntVar(&mongoPort, "port", 27017, "Host port to expose")

	mongoClearCmd.Flags().BoolVarP(&mongoClearAll, "all", "a", false, "Remove the data volume too")

	mongoCmd.AddCommand(mongoInitCmd, mongoCreateCmd, mongoClearCmd)
	mongoCmd.AddCommand(lifecycleCommands(func() string { return mongoName })...)
	rootCmd.AddCommand(mongoCmd)
}
