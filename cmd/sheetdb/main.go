package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sheetdb/pkg/auth"
	"github.com/ajitpratap0/sheetdb/pkg/config"
	"github.com/ajitpratap0/sheetdb/pkg/logger"
	"github.com/ajitpratap0/sheetdb/pkg/observability"
	"github.com/ajitpratap0/sheetdb/pkg/sheetdb"
)

var version = "0.1.0"

// app holds the state shared by every subcommand.
type app struct {
	configPath  string
	logLevel    string
	trace       bool
	metricsAddr string

	out    io.Writer
	cfg    *config.BaseConfig
	logger *zap.Logger

	// open builds the DB; tests replace it with an in-memory store.
	open     func(ctx context.Context, cfg *config.BaseConfig, l *zap.Logger) (*sheetdb.DB, error)
	shutdown []func(ctx context.Context) error
	cancel   context.CancelFunc
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	a := &app{out: os.Stdout, open: openDB}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDB(ctx context.Context, cfg *config.BaseConfig, l *zap.Logger) (*sheetdb.DB, error) {
	return sheetdb.Open(ctx, cfg, auth.Static(cfg.Security.AccessToken), l)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sheetdb",
		Short: "sheetdb - use spreadsheets as a typed record store",
		Long: `sheetdb reads and writes typed records kept in spreadsheet tabs.
The first row of every sheet is its header row; every other row is one record.

The bearer token is taken from SHEETDB_ACCESS_TOKEN (or security.access_token in
the config file). Acquiring and refreshing it is up to the caller.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "Export spans for every remote call to stderr")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs (e.g. :9090)")

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// version needs neither config nor credentials
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "sheetdb v%s\n", version)
			fmt.Fprintf(a.out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(
		newSheetsCmd(a),
		newHeadersCmd(a),
		newFetchCmd(a),
		newGetCmd(a),
		newDeleteCmd(a),
		newSyncCmd(a),
		newJournalCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration and starts the optional tracing and metrics
// exporters before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if a.logLevel != "" {
		cfg.Observability.LogLevel = a.logLevel
	}
	a.cfg = cfg

	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogEncoding,
	}); err != nil {
		return err
	}
	a.logger = logger.With(zap.String("component", "sheetdb-cli"))

	ctx, cancel := context.WithCancel(cmd.Context())
	a.cancel = cancel
	cmd.SetContext(ctx)

	if a.trace || cfg.Observability.EnableTracing {
		tc := observability.DefaultTracingConfig(cfg.Observability.ServiceName, version)
		tc.Writer = os.Stderr
		shutdown, err := observability.InitTracing(ctx, tc)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.shutdown = append(a.shutdown, shutdown)
	}

	if a.metricsAddr != "" {
		go func() {
			if err := observability.ServeMetrics(ctx, a.metricsAddr, a.logger); err != nil {
				a.logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var firstErr error
	for _, fn := range a.shutdown {
		if err := fn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.shutdown = nil
	if a.cancel != nil {
		a.cancel()
	}
	_ = logger.Sync()
	return firstErr
}

// withDB opens the DB for the duration of fn.
func (a *app) withDB(ctx context.Context, fn func(db *sheetdb.DB) error) error {
	db, err := a.open(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			a.logger.Warn("failed to close journal", zap.Error(err))
		}
	}()
	return fn(db)
}
