package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/everitoken/evtops/cmd/evtops/config"
	"github.com/everitoken/evtops/lib/logger"
	"github.com/everitoken/evtops/lib/providers"
	"github.com/everitoken/evtops/lib/reconcile"
	"github.com/everitoken/evtops/lib/runtime"
)

var (
	verbose bool

	// defaults feed the flag default values; flags override the
	// environment.
	defaults = config.Load()

	app *application
)

var rootCmd = &cobra.Command{
	Use:          "evtops",
	Short:        "Bring up and tear down the containers of an EVT chain environment",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			providers.LogLevel.Set(slog.LevelDebug)
		}

		var err error
		app, err = initializeApp()
		if err != nil {
			return err
		}
		slog.SetDefault(app.Logger)
		app.Ctx = logger.WithContext(app.Ctx, app.Logger)
		return nil
	},
}

// Execute runs the CLI. Conflicting state and expected absence exit cleanly
// with a status line; only runtime failures exit non-zero.
func Execute(version string) {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func green(s string) string {
	return color.GreenString(s)
}

func printResults(results ...reconcile.Result) {
	for _, r := range results {
		fmt.Println(r.Message)
	}
}

// streamLogs copies the container log stream to stdout. With follow set it
// blocks until the stream ends or the process is interrupted.
func streamLogs(name string, tail int, follow bool) error {
	rc, res, err := app.Reconciler.Logs(app.Ctx, name, tail, follow)
	if err != nil {
		return err
	}
	if rc == nil {
		fmt.Println(res.Message)
		return nil
	}
	defer rc.Close()

	_, err = io.Copy(os.Stdout, rc)
	return err
}

func showDetail(name string) error {
	d, res, err := app.Reconciler.Detail(app.Ctx, name)
	if err != nil {
		return err
	}
	if d == nil {
		fmt.Println(res.Message)
		return nil
	}
	printDetail(d)
	return nil
}

func printDetail(d *runtime.Detail) {
	ports := lo.Map(d.Ports, func(p runtime.PortDetail, _ int) string {
		proto := p.Proto
		switch p.PrivatePort {
		case 8888:
			proto += "(http)"
		case 7888:
			proto += "(p2p)"
		}
		return fmt.Sprintf("%s:%d->%d/%s", p.IP, p.PublicPort, p.PrivatePort, proto)
	})

	fmt.Printf("      id: %s\n", green(d.ID))
	fmt.Printf("   image: %s\n", green(d.Image))
	fmt.Printf("image-id: %s\n", green(d.ImageID))
	fmt.Printf(" command: %s\n", green(d.Command))
	fmt.Printf(" network: %s\n", green(d.Network))
	fmt.Printf("   ports: %s\n", green(strings.Join(ports, ", ")))
	fmt.Printf(" volumes: %s\n", green(strings.Join(d.Mounts, ", ")))
	fmt.Printf("  status: %s\n", green(d.Status))
}
