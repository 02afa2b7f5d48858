package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/ballotdesk/internal/config"
	"github.com/dshills/ballotdesk/internal/console"
	"github.com/dshills/ballotdesk/internal/engine/history"
	"github.com/dshills/ballotdesk/internal/input/hotkey"
	"github.com/dshills/ballotdesk/internal/logging"
	"github.com/dshills/ballotdesk/internal/metrics"
	"github.com/dshills/ballotdesk/internal/resource"
	"github.com/dshills/ballotdesk/internal/resource/httpclient"
	"github.com/dshills/ballotdesk/internal/resource/sqlstore"
	"github.com/dshills/ballotdesk/internal/script"
)

type consoleOptions struct {
	dbPath  string
	metrics bool
}

func newConsoleCommand(root *rootOptions) *cobra.Command {
	opts := &consoleOptions{}
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Open the terminal console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConsole(cmd.Context(), root, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.dbPath, "db", "", "edit a local sqlite database instead of remote.base_url")
	fs.BoolVar(&opts.metrics, "metrics", false, "serve metrics on metrics.addr while the console runs")
	return cmd
}

func runConsole(ctx context.Context, root *rootOptions, opts *consoleOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}

	// The terminal owns stdout, so logs go to log.file or nowhere
	logger, closer, err := logging.Open(logOptions(cfg), io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, closeStore, err := openRemote(cfg, opts.dbPath)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	h := history.New(
		history.WithCapacity(cfg.History.Capacity),
		history.WithLogger(logger),
		history.WithObserver(m),
	)
	defer h.Subscribe(m)()

	bindings, err := cfg.Bindings()
	if err != nil {
		return err
	}
	binder := hotkey.NewBinder(h, hotkey.WithBindings(bindings), hotkey.WithLogger(logger))
	session := console.NewSession(h, store, script.WithLogger(logger))

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	ui := console.New(screen, session, binder, console.WithLogger(logger))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Leaving the console stops everything else
		defer cancel()
		return ui.Run(ctx)
	})

	watcher, err := config.NewWatcher(root.loader(), config.WithWatchLogger(logger))
	if err != nil {
		logger.Warn("config reload disabled", "err", err)
	} else {
		watcher.OnReload(config.Applier(h, binder, logger))
		g.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	if opts.metrics && cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           m.Handler(),
			ReadHeaderTimeout: shutdownTimeout,
		}
		g.Go(func() error {
			return serveUntil(ctx, srv, "metrics", logger)
		})
	}

	logger.Info("console started", "remote", remoteName(cfg, opts.dbPath), "capacity", cfg.History.Capacity, "hotkeys", bindings.String())
	return g.Wait()
}

// openRemote returns the store the console edits: a local database when
// dbPath is set, the resource API otherwise.
func openRemote(cfg config.Config, dbPath string) (resource.Store, func() error, error) {
	if dbPath != "" {
		s, err := sqlstore.Open(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}

	c, err := httpclient.New(cfg.Remote.BaseURL,
		httpclient.WithToken(cfg.Remote.Token),
		httpclient.WithTimeout(cfg.Remote.Timeout.Duration),
	)
	if err != nil {
		return nil, nil, err
	}
	return c, func() error { return nil }, nil
}

func remoteName(cfg config.Config, dbPath string) string {
	if dbPath != "" {
		return "sqlite:" + dbPath
	}
	return cfg.Remote.BaseURL
}
