package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/everitoken/evtops/lib/stack"
)

var (
	evtdName         string
	evtdChain        string
	evtdNet          string
	evtdHost         string
	evtdHTTPPort     int
	evtdP2PPort      int
	evtdPostgresDB   string
	evtdPostgresPass string
	evtdFile         string
	evtdSnapPostgres bool
	evtdSnapUpload   bool
	evtdClearAll     bool
)

var evtdCmd = &cobra.Command{
	Use:   "evtd",
	Short: "Manage the node daemon container",
}

func nd() *stack.Evtd {
	return stack.NewEvtd(app.Reconciler, evtdName)
}

var evtdInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the node volumes and check for an evt image",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := nd().Init(app.Ctx)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

var evtdCreateCmd = &cobra.Command{
	Use:   "create [-- evtd-args...]",
	Short: "Create the node daemon container",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := nd().Create(app.Ctx, stack.EvtdCreateOptions{
			Chain:        evtdChain,
			Network:      evtdNet,
			Host:         evtdHost,
			HTTPPort:     evtdHTTPPort,
			P2PPort:      evtdP2PPort,
			PostgresName: defaults.PostgresName,
			PostgresDB:   evtdPostgresDB,
			PostgresPass: evtdPostgresPass,
			ExtraArgs:    args,
		})
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

var evtdExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export reversible blocks to a backup file in the data volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := nd().ExportReversible(app.Ctx, evtdFile)
		if err != nil {
			return err
		}
		printResults(res)
		return nil
	},
}

var evtdImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import reversible blocks from a backup file in the data volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := nd().ImportReversible(app.Ctx, evtdFile)
		if err != nil {
			return err
		}
		printResults(res)
		return nil
	},
}

var evtdSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Produce a snapshot on the running node",
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, res, err := nd().Snapshot(app.Ctx, evtdSnapPostgres)
		if err != nil {
			return err
		}
		if fields == nil {
			printResults(res)
			return nil
		}

		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%s : %s\n", name, green(fields[name]))
		}

		if !evtdSnapUpload {
			return nil
		}
		upl, err := nd().UploadSnapshot(app.Ctx, fields, stack.SnapshotUploadOptions{
			AWSKey:    app.Config.AWSKey,
			AWSSecret: app.Config.AWSSecret,
		})
		if err != nil {
			return err
		}
		printResults(upl)
		return nil
	},
}

var evtdGetSnapshotCmd = &cobra.Command{
	Use:   "getsnapshot <snapshot>",
	Short: "Download a published snapshot into the snapshots volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := nd().FetchSnapshot(app.Ctx, args[0])
		if err != nil {
			return err
		}
		printResults(res)
		return nil
	},
}

var evtdClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the node container, and its volumes with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := nd().Clear(app.Ctx, evtdClearAll)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	},
}

func init() {
	evtdCmd.PersistentFlags().StringVarP(&evtdName, "name", "n", defaults.EvtdName, "Container name")

	evtdCreateCmd.Flags().StringVarP(&evtdChain, "type", "t", "testnet", "Chain type: testnet or mainnet")
	evtdCreateCmd.Flags().StringVar(&evtdNet, "net", defaults.Network, "Network to join")
	evtdCreateCmd.Flags().StringVar(&evtdHost, "host", defaults.HostIP, "Host address to expose ports on")
	evtdCreateCmd.Flags().IntVar(&evtdHTTPPort, "http-port", 8888, "Host port for the rpc interface, 0 disables it")
	evtdCreateCmd.Flags().IntVar(&evtdP2PPort, "p2p-port", 7888, "Host port for the p2p interface, 0 disables it")
	evtdCreateCmd.Flags().StringVar(&evtdPostgresDB, "postgres-db", "", "Enable the postgres plugins against this database")
	evtdCreateCmd.Flags().StringVar(&evtdPostgresPass, "postgres-pass", "", "Password for the postgres connection")

	evtdExportCmd.Flags().StringVar(&evtdFile, "file", stack.DefaultReversibleFile(), "Backup file name inside the data volume")
	evtdImportCmd.Flags().StringVar(&evtdFile, "file", stack.DefaultReversibleFile(), "Backup file name inside the data volume")

	evtdSnapshotCmd.Flags().BoolVarP(&evtdSnapPostgres, "postgres", "p", false, "Include the postgres state in the snapshot")
	evtdSnapshotCmd.Flags().BoolVar(&evtdSnapUpload, "upload", false, "Upload the produced snapshot to the snapshot bucket")

	evtdClearCmd.Flags().BoolVarP(&evtdClearAll, "all", "a", false, "Remove the data and snapshots volumes too")

	evtdCmd.AddCommand(evtdInitCmd, evtdCreateCmd, evtdExportCmd, evtdImportCmd,
		evtdSnapshotCmd, evtdGetSnapshotCmd, evtdClearCmd)
	evtdCmd.AddCommand(lifecycleCommands(func() string { return evtdName })...)
	rootCmd.AddCommand(evtdCmd)
}
