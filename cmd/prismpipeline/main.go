package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"PrismPipeline/internal/app"
	"PrismPipeline/internal/config"
	"PrismPipeline/internal/logging"
)

const (
	Version = "0.1.0"
	appName = "prismpipeline"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Policy signal and crisis card pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML); defaults to $PRISM_CONFIG")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(runCmd(flags), serveCmd(flags), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func runCmd(flags *globalFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := build(ctx, cmd.ErrOrStderr(), flags, app.Options{DryRun: dryRun})
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			summary, runErr := application.Run(ctx)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Keep signals and cards in memory and skip delivery")
	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run on the configured cron schedule and expose /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := build(ctx, cmd.ErrOrStderr(), flags, app.Options{})
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			return application.Serve(ctx)
		},
	}
}

// build logs to logOut so stdout carries only command output.
func build(ctx context.Context, logOut io.Writer, flags *globalFlags, opts app.Options) (*app.Application, error) {
	cfg := config.Load(flags.configPath)
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	logger := logging.NewWithWriter(logOut, cfg.Logging.Level)
	return app.New(ctx, cfg, logger, opts)
}
