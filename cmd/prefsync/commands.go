package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	prefs "github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/pkg/metrics"
	"github.com/goliatone/go-prefs/pkg/profile"
	"github.com/goliatone/go-prefs/schema/jsonschema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "prefsync",
		Short:         "Settings synchronization engine tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "prefs.yaml", "settings configuration file (json or yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCheckCmd(opts), newSchemaCmd(opts), newRunCmd(opts))
	return root
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load and validate a configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := prefs.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d settings, %d baseline values\n",
				opts.configPath, len(cfg.Settings), len(cfg.Baseline))
			return nil
		},
	}
}

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for the configured settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := prefs.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(jsonschema.Generate(cfg.Settings))
		},
	}
}

type runOptions struct {
	profilePath string
	metricsAddr string
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	run := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine against a watched profile file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger, err := newLogger(opts.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return runEngine(ctx, logger, opts.configPath, run, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&run.profilePath, "profile", "p", "", "profile file to watch")
	cmd.Flags().StringVar(&run.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func runEngine(ctx context.Context, logger *zap.Logger, configPath string, run *runOptions, out io.Writer) error {
	cfg, err := prefs.LoadConfig(configPath)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		return err
	}
	engine, err := prefs.New(cfg,
		prefs.WithLogger(logger),
		prefs.WithObserver(collector),
		prefs.WithReconcileHook(collector.ObserveReconcile),
	)
	if err != nil {
		return err
	}
	defer engine.OnUndoAvailability(collector.SetUndoAvailable).Close()

	lines := newLineWriter(out)
	defer engine.Subscribe(prefs.OriginUnspecified, func(m prefs.Mutation) {
		raw, err := prefs.EncodeMutation(m)
		if err != nil {
			logger.Warn("mutation encode failed", zap.String("path", m.Path), zap.Error(err))
			return
		}
		lines.write(raw)
	}).Close()

	group, ctx := errgroup.WithContext(ctx)
	watcher := profile.NewFileWatcher(run.profilePath, engine, logger.Named("profile"))
	group.Go(func() error {
		return watcher.Run(ctx)
	})

	if run.metricsAddr != "" {
		listener, err := net.Listen("tcp", run.metricsAddr)
		if err != nil {
			return fmt.Errorf("prefsync: metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		logger.Info("serving metrics", zap.String("addr", listener.Addr().String()))

		group.Go(func() error {
			if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	return group.Wait()
}
