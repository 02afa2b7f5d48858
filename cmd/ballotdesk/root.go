package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/ballotdesk/internal/config"
	"github.com/dshills/ballotdesk/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ballotdesk",
		Short:         "Operator console for the voting platform",
		Long:          "ballotdesk edits games, voting configurations and nominations with undo and redo.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	fs := cmd.PersistentFlags()
	fs.StringVarP(&opts.configPath, "config", "c", "ballotdesk.toml", "configuration file")
	fs.StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	cmd.AddCommand(
		newConsoleCommand(opts),
		newServeCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

func (o *rootOptions) loader() *config.Loader {
	return config.NewLoader(o.configPath)
}

// load resolves the configuration and applies flag overrides.
func (o *rootOptions) load() (config.Config, error) {
	cfg, err := o.loader().Load()
	if err != nil {
		return config.Config{}, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

func logOptions(cfg config.Config) logging.Options {
	return logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}
}

// serveUntil runs srv until ctx is done, then shuts it down gracefully.
func serveUntil(ctx context.Context, srv *http.Server, name string, logger *slog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	logger.Info("listening", "server", name, "addr", srv.Addr)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server: %w", name, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down", "server", name)
		return srv.Shutdown(shutdownCtx)
	}
}
