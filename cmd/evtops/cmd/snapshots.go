package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/everitoken/evtops/lib/snapshots"
)

var (
	snapKey       string
	snapBlockID   string
	snapBlockNum  string
	snapBlockTime string
	snapPostgres  bool
	snapOut       string
	snapLimit     int
	symbolRef     string
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Work with the published snapshot bucket",
}

func snapshotStore() (*snapshots.Store, error) {
	return snapshots.New(app.Ctx, snapshots.Options{
		Bucket:    app.Config.SnapshotBucket,
		Region:    app.Config.AWSRegion,
		AccessKey: app.Config.AWSKey,
		SecretKey: app.Config.AWSSecret,
	})
}

var snapshotsUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a snapshot file with its block metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshotStore()
		if err != nil {
			return err
		}

		key := snapKey
		if key == "" {
			key = snapshots.ObjectKey(args[0])
		}
		err = store.Upload(app.Ctx, args[0], key, snapshots.BlockMeta{
			ID:       snapBlockID,
			Num:      snapBlockNum,
			Time:     snapBlockTime,
			Postgres: snapPostgres,
		})
		if err != nil {
			return err
		}
		fmt.Printf("uploaded %s to %s\n", green(key), green(store.Bucket()))
		return nil
	},
}

var snapshotsFetchCmd = &cobra.Command{
	Use:   "fetch <key>",
	Short: "Download a snapshot object to a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshotStore()
		if err != nil {
			return err
		}

		dest := snapOut
		if dest == "" {
			dest = snapshots.ObjectKey(args[0])
		}
		if err := store.Fetch(app.Ctx, args[0], dest); err != nil {
			return err
		}
		fmt.Printf("fetched %s into %s\n", green(args[0]), green(dest))
		return nil
	},
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published snapshots with their block metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshotStore()
		if err != nil {
			return err
		}

		entries, err := store.List(app.Ctx, snapLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s  block-num=%s  postgres=%s\n", green(e.Key), e.BlockNum, e.Postgres)
		}
		return nil
	},
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Work with the debug symbol bucket",
}

var symbolsUploadCmd = &cobra.Command{
	Use:   "upload <folder>",
	Short: "Upload the per-binary symbol trees under a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshots.New(app.Ctx, snapshots.Options{
			Bucket:    app.Config.SymbolBucket,
			Region:    app.Config.AWSRegion,
			AccessKey: app.Config.AWSKey,
			SecretKey: app.Config.AWSSecret,
		})
		if err != nil {
			return err
		}

		started := time.Now()
		keys, err := store.UploadSymbols(app.Ctx, args[0], symbolRef)
		if err != nil {
			return err
		}
		fmt.Printf("uploaded %d symbol files in %dms\n", len(keys), time.Since(started).Milliseconds())
		return nil
	},
}

func init() {
	snapshotsUploadCmd.Flags().StringVar(&snapKey, "key", "", "Object key, defaults to the file's base name")
	snapshotsUploadCmd.Flags().StringVar(&snapBlockID, "block-id", "", "Head block id the snapshot was taken at")
	snapshotsUploadCmd.Flags().StringVar(&snapBlockNum, "block-num", "", "Head block number the snapshot was taken at")
	snapshotsUploadCmd.Flags().StringVar(&snapBlockTime, "block-time", "", "Head block time the snapshot was taken at")
	snapshotsUploadCmd.Flags().BoolVar(&snapPostgres, "postgres", false, "Snapshot includes the postgres state")

	snapshotsFetchCmd.Flags().StringVarP(&snapOut, "out", "o", "", "Destination file, defaults to the key's base name")

	snapshotsListCmd.Flags().IntVarP(&snapLimit, "limit", "l", 5, "Maximum entries to list")

	symbolsUploadCmd.Flags().StringVar(&symbolRef, "ref", "", "Release reference the symbols belong to")
	_ = symbolsUploadCmd.MarkFlagRequired("ref")

	snapshotsCmd.AddCommand(snapshotsUploadCmd, snapshotsFetchCmd, snapshotsListCmd)
	symbolsCmd.AddCommand(symbolsUploadCmd)
	rootCmd.AddCommand(snapshotsCmd, symbolsCmd)
}
