package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"doodba-operator/internal/app"
	"doodba-operator/internal/config"
)

type runOptions struct {
	configPath         string
	namespace          string
	metricsBindAddress string
	workers            int
	debug              bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the operator",
		Long: `Run the operator until SIGINT or SIGTERM.

Configuration is read from config.yaml in --config-path. A missing file
means defaults. The log level in config.yaml is applied live when the file
changes; every other setting needs a restart. Flags take precedence over
the file.

The operator refuses to start when Doodba resources cannot be listed,
which usually means the CRD is not installed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperator(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config-path", config.DefaultConfigPath, "Directory containing config.yaml")
	cmd.Flags().StringVarP(&opts.namespace, "namespace", "n", "", "Only reconcile Doodbas in this namespace (default all namespaces)")
	cmd.Flags().StringVar(&opts.metricsBindAddress, "metrics-bind-address", "", `Address to serve /metrics on, "0" disables it (default from config, ":8080")`)
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Number of concurrent reconcile workers (default from config)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	return cmd
}

func runOperator(ctx context.Context, opts *runOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := app.NewConfig(opts.debug, opts.configPath)
	cfg.Overrides = app.Overrides{
		Namespace:          opts.namespace,
		MetricsBindAddress: opts.metricsBindAddress,
		Workers:            opts.workers,
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run(ctx)
}
