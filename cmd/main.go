package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tomwhite/eggo/internal/app"
	"github.com/tomwhite/eggo/internal/config"
	"github.com/tomwhite/eggo/internal/logger"
	"github.com/tomwhite/eggo/internal/transfer"
)

var (
	configFile string
	gcAge      time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "eggo-mapper",
	Short: "Transfer one dataset file into object storage",
	Long: `A streaming mapper task: reads one transfer record from standard input,
fetches the source URL, optionally expands gzip archives, stages the result
to a temporary remote path and commits it with an atomic move to its final
remote path.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runMapper,
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove staging objects orphaned by dead tasks",
	RunE:  runGC,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is "+config.DefaultConfigPath+" if present)")

	// Storage flags
	rootCmd.PersistentFlags().String("endpoint", "", "S3-compatible endpoint")
	rootCmd.PersistentFlags().String("access-key", "", "Access key (falls back to AWS_ACCESS_KEY_ID)")
	rootCmd.PersistentFlags().String("secret-key", "", "Secret key (falls back to AWS_SECRET_ACCESS_KEY)")
	rootCmd.PersistentFlags().Bool("secure", true, "Use HTTPS")
	rootCmd.PersistentFlags().String("region", "", "Storage region")

	// Mapper flags
	rootCmd.PersistentFlags().String("scratch-root", "", "Root for the per-task scratch directory (default system temp dir)")
	rootCmd.PersistentFlags().Bool("use-record-mount", false, "Root the scratch directory at the record's ephemeral mount field")
	rootCmd.PersistentFlags().Int("fetch-timeout", 0, "Source download timeout in seconds (0 = unbounded)")
	rootCmd.PersistentFlags().String("journal", "", "Transfer journal database file (empty disables journaling)")
	rootCmd.PersistentFlags().String("push-gateway", "", "Prometheus Pushgateway address (empty disables metrics push)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug/info/warn/error)")

	gcCmd.Flags().DurationVar(&gcAge, "age", 24*time.Hour, "Only sweep staging objects older than this")

	rootCmd.AddCommand(gcCmd)
}

// setup loads configuration and wires the application.
func setup(cmd *cobra.Command) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	application, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create application: %w", err)
	}

	return application, log, nil
}

// signalContext cancels the returned context on SIGINT/SIGTERM.
func signalContext(log *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info("Received shutdown signal, stopping...")
		cancel()
	}()

	return ctx, cancel
}

func runMapper(cmd *cobra.Command, args []string) error {
	application, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signalContext(log)
	defer cancel()

	err = application.RunMapper(ctx, os.Stdin)

	if closeErr := application.Close(); closeErr != nil {
		log.Error("Error closing application", zap.Error(closeErr))
	}

	if err != nil {
		// The framework interprets the exit code; the diagnostic goes to
		// the error stream as-is.
		fmt.Fprintln(os.Stderr, err.Error())
		log.Sync()
		os.Exit(transfer.ExitCode(err))
	}

	return nil
}

func runGC(cmd *cobra.Command, args []string) error {
	application, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signalContext(log)
	defer cancel()

	err = application.GC(ctx, gcAge)

	if closeErr := application.Close(); closeErr != nil {
		log.Error("Error closing application", zap.Error(closeErr))
	}

	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
