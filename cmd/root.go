package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"transparencia-agent/internal/agent"
	"transparencia-agent/internal/config"
	"transparencia-agent/internal/metrics"
	"transparencia-agent/internal/session"
	"transparencia-agent/internal/web"
)

const shutdownTimeout = 10 * time.Second

// NewRootCmd creates the command that serves the web UI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transparencia",
		Short: "Simulated agent for municipal transparency portals",
		Long: `Serves a local web page that simulates an agent which searches,
analyzes and downloads data from municipal transparency portals.

No real portal is contacted: URLs, categories and downloads are
generated from the city and state you type in.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	cmd.Flags().String("addr", config.DefaultAddr, "Address the web UI listens on")
	cmd.Flags().String("config", "", "Path to a YAML config file (default "+config.DefaultConfigPath()+")")
	cmd.Flags().String("env-file", ".env", "Dotenv file with TRANSPARENCIA_* variables")
	cmd.Flags().Bool("no-delay", false, "Disable the simulated latency")
	cmd.Flags().Uint64("seed", 0, "Seed for the random source (0 picks one)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, the environment and the
// flags that were explicitly set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	explicit := path != ""
	if !explicit {
		path = config.DefaultConfigPath()
	}
	if err := cfg.LoadFile(path); err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) || explicit {
			return nil, err
		}
	}

	envFile, _ := flags.GetString("env-file")
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, err
	}

	if flags.Changed("addr") {
		cfg.Addr, _ = flags.GetString("addr")
	}
	if noDelay, _ := flags.GetBool("no-delay"); noDelay {
		cfg.DisableDelays()
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// newHandler builds the full application handler from cfg.
func newHandler(cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	a := agent.New(logger,
		agent.WithRand(newRand(cfg.Seed)),
		agent.WithDelays(agent.Delays{
			Search:   cfg.SearchDelay,
			Analyze:  cfg.AnalyzeDelay,
			Download: cfg.DownloadDelay,
		}),
	)

	srv, err := web.NewServer(logger, session.NewStore(cfg.SessionTTL), a, metrics.New())
	if err != nil {
		return nil, err
	}
	return srv.Handler(), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg.Verbose)
	handler, err := newHandler(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting...", "addr", cfg.Addr, "config", cfg.ConfigFilePath)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
