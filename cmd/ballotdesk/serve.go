package main

import (
	"cmp"
	"context"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/ballotdesk/internal/httpapi"
	"github.com/dshills/ballotdesk/internal/logging"
	"github.com/dshills/ballotdesk/internal/metrics"
	"github.com/dshills/ballotdesk/internal/resource"
	"github.com/dshills/ballotdesk/internal/resource/memstore"
	"github.com/dshills/ballotdesk/internal/resource/sqlstore"
)

type serveOptions struct {
	addr   string
	memory bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resource API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), root, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.addr, "addr", "", "listen address (default server.addr)")
	fs.BoolVar(&opts.memory, "memory", false, "keep data in memory instead of server.db_path")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, opts *serveOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}

	logger, closer, err := logging.Open(logOptions(cfg), os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	var store resource.Store
	if opts.memory {
		store = memstore.New()
	} else {
		s, err := sqlstore.Open(cfg.Server.DBPath)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	m := metrics.New()
	api := httpapi.NewServer(store,
		httpapi.WithLogger(logger),
		httpapi.WithToken(cfg.Server.Token),
		httpapi.WithMiddleware(m.Middleware),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv := &http.Server{
			Addr:              cmp.Or(opts.addr, cfg.Server.Addr),
			Handler:           api.Handler(),
			ReadHeaderTimeout: shutdownTimeout,
		}
		return serveUntil(ctx, srv, "api", logger)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			srv := &http.Server{
				Addr:              cfg.Metrics.Addr,
				Handler:           m.Handler(),
				ReadHeaderTimeout: shutdownTimeout,
			}
			return serveUntil(ctx, srv, "metrics", logger)
		})
	}
	return g.Wait()
}
