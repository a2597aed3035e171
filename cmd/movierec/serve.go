package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/movierec/config"
	"github.com/rushteam/movierec/pkg/logging"
	"github.com/rushteam/movierec/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Long: `Builds the snapshot, then serves the HTTP API. With data.watch enabled
the snapshot is rebuilt when the CSV files change.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	srvCfg := rt.app.Server
	if cmd.Flags().Changed("addr") {
		srvCfg.Addr = serveAddr
	}
	opts := []server.Option{
		server.WithConfig(srvCfg),
		server.WithCatalog(rt.catalog),
		server.WithLogger(logging.Component(rt.logger, "server")),
		server.WithGatherer(rt.registry),
	}

	if path := rt.app.PipelinePath; path != "" {
		feed, err := config.LoadPipeline(path, config.Deps{
			Models:  rt.engine,
			Catalog: rt.catalog,
			Logger:  logging.Component(rt.logger, "pipeline"),
		})
		if err != nil {
			return err
		}
		feed.Observer = rt.engine.Metrics().PipelineObserver()
		opts = append(opts, server.WithFeed(feed))
		rt.logger.Info().Str("path", path).Str("pipeline", feed.Name).Int("nodes", len(feed.Nodes)).Msg("feed pipeline loaded")
	}

	srv := server.New(rt.engine, opts...)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return srv.Run(egCtx) })
	if paths := rt.sources.WatchPaths; len(paths) > 0 {
		eg.Go(func() error { return rt.engine.Watch(egCtx, paths, rt.app.Engine.WatchDebounce) })
	}
	return eg.Wait()
}
