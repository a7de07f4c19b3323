package cmd

import (
	"github.com/spf13/cobra"

	"github.com/everitoken/evtops/lib/stack"
)

var (
	pgName     string
	pgNet      string
	pgHost     string
	pgPort     int
	pgPassword string
	pgDBName   string
	pgNewPass  string
	pgClearAll bool
)

var postgresCmd = &cobra.Command{
	Use:   "postgres",
	Short: "Manage the postgres container",
}

func pg() *stack.Postgres {
	return stack.NewPostgres(app.Reconciler, pgName)
}

var postgresInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Pull the postgres image and create its volumes",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := pg().Init(app.Ctx)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

var postgresCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the postgres container",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := pg().Create(app.Ctx, stack.PostgresCreateOptions{
			Network:  pgNet,
			Host:     pgHost,
			Port:     pgPort,
			Password: pgPassword,
		})
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

var postgresCreateDBCmd = &cobra.Command{
	Use:   "createdb",
	Short: "Create a database in the running postgres container",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := pg().CreateDB(app.Ctx, pgDBName)
		if err != nil {
			return err
		}
		printResults(res)
		return nil
	},
}

var postgresUpdPassCmd = &cobra.Command{
	Use:   "updpass",
	Short: "Update the postgres superuser password",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := pg().UpdatePassword(app.Ctx, pgNewPass)
		if err != nil {
			return err
		}
		printResults(res)
		return nil
	},
}

var postgresClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the postgres container, and its volumes with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := pg().Clear(app.Ctx, pgClearAll)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

func init() {
	postgresCmd.PersistentFlags().StringVarP(&pgName, "name", "n", defaults.PostgresName, "Container name")

	postgresCreateCmd.Flags().StringVar(&pgNet, "net", defaults.Network, "Network to join")
	postgresCreateCmd.Flags().StringVar(&pgHost, "host", defaults.HostIP, "Host address to expose the port on")
	postgresCreateCmd.Flags().IntVar(&pgPort, "port", 5432, "Host port to expose")
	postgresCreateCmd.Flags().StringVarP(&pgPassword, "password", "p", "", "Superuser password for a first-time create")

	postgresCreateDBCmd.Flags().StringVarP(&pgDBName, "dbname", "d", "evt", "Database name")

	postgresUpdPassCmd.Flags().StringVarP(&pgNewPass, "password", "p", "", "New superuser password")
	_ = postgresUpdPassCmd.MarkFlagRequired("password")

	postgresClearCmd.Flags().BoolVarP(&pgClearAll, "all", "a", false, "Remove the data and config volumes too")

	postgresCmd.AddCommand(postgresInitCmd, postgresCreateCmd, postgresCreateDBCmd, postgresUpdPassCmd, postgresClearCmd)
	postgresCmd.AddCommand(lifecycleCommands(func() string { return pgName })...)
	rootCmd.AddCommand(postgresCmd)
}
