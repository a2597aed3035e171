package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/config"
	_ "github.com/rushteam/movierec/config/builders"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/pkg/logging"
)

var (
	configPath string
	ratingsArg string
	moviesArg  string
	maxUsers   int
	metricArg  string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "movierec",
	Short: "Collaborative filtering movie recommender",
	Long: `Builds a user-item rating matrix from MovieLens-style CSV files (or Redis),
computes user and item cosine/pearson similarity, and serves
user-based and item-based recommendations.`,
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "config file (default: $MOVIEREC_CONFIG or ./movierec.yaml)")
	f.StringVar(&ratingsArg, "ratings", "", "ratings CSV path (overrides data.ratings_path)")
	f.StringVar(&moviesArg, "movies", "", "movies CSV path (overrides data.movies_path)")
	f.IntVar(&maxUsers, "max-users", 0, "keep only the N smallest user IDs, 0 keeps the configured value")
	f.StringVar(&metricArg, "metric", "", "similarity metric: cosine / pearson")
	f.StringVar(&logLevel, "log-level", "", "log level (overrides log.level)")
}

// loadApp 加载配置文件 / 环境变量，再用命令行参数覆盖。
func loadApp(cmd *cobra.Command) (*config.App, error) {
	app, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("ratings") {
		app.Data.Source = config.SourceCSV
		app.Data.RatingsPath = ratingsArg
	}
	if flags.Changed("movies") {
		app.Data.MoviesPath = moviesArg
	}
	if flags.Changed("max-users") {
		app.Data.MaxUsers = maxUsers
	}
	if flags.Changed("metric") {
		app.Engine.Metric = metricArg
	}
	if flags.Changed("log-level") {
		app.Log.Level = logLevel
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}

// session 是一次命令执行所需的全部组件。
type session struct {
	app      *config.App
	logger   zerolog.Logger
	engine   *engine.Engine
	catalog  *catalog.Catalog
	sources  *config.Sources
	registry *prometheus.Registry
}

func (r *session) Close() error { return r.sources.Close() }

// setup 打开数据源、加载电影元数据，并完成首次构建。
func setup(ctx context.Context, cmd *cobra.Command) (*session, error) {
	app, err := loadApp(cmd)
	if err != nil {
		return nil, err
	}
	logCfg := app.Log
	logCfg.Output = cmd.ErrOrStderr()
	logger := logging.New(logCfg)

	sources, err := app.OpenSources()
	if err != nil {
		return nil, err
	}
	rt := &session{app: app, logger: logger, sources: sources, registry: prometheus.NewRegistry()}

	if sources.Catalog != nil {
		rt.catalog, err = catalog.Load(ctx, sources.Catalog)
		if err != nil {
			rt.Close()
			return nil, err
		}
		logger.Info().Int("movies", rt.catalog.Len()).Msg("catalog loaded")
	}

	rt.engine, err = engine.New(sources.Ratings,
		engine.WithConfig(app.Engine),
		engine.WithLogger(logger),
		engine.WithMetrics(engine.NewMetrics(rt.registry)),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if _, err := rt.engine.Rebuild(ctx); err != nil {
		rt.Close()
		return nil, fmt.Errorf("initial build: %w", err)
	}
	return rt, nil
}
