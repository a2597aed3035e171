package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/logging"
	"github.com/rushteam/movierec/recall"
)

// Engine 持有当前快照，并负责从评分源重建。
//
// 读路径只做一次 atomic load，重建期间请求继续读旧快照；
// 重建失败时旧快照保持不变。
type Engine struct {
	source  core.RatingSource
	cfg     Config
	logger  zerolog.Logger
	metrics *Metrics

	current atomic.Pointer[Snapshot]
	version atomic.Uint64

	// 串行化重建
	mu sync.Mutex
}

// Option 配置 Engine。
type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New 创建引擎，不会立即构建快照，需要调用 Rebuild。
func New(source core.RatingSource, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "engine: rating source is required")
	}
	e := &Engine{
		source: source,
		cfg:    DefaultConfig(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	e.logger = logging.Component(e.logger, "engine")
	return e, nil
}

// Config 返回引擎配置。
func (e *Engine) Config() Config { return e.cfg }

// Metrics 返回引擎使用的指标，可能为 nil。
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Rebuild 从评分源重新加载评分并构建新快照，成功后原子替换当前快照。
func (e *Engine) Rebuild(ctx context.Context) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	snap, err := e.rebuild(ctx)
	elapsed := time.Since(start)
	e.metrics.observeRebuild(elapsed, err)
	if err != nil {
		e.logger.Error().Err(err).Str("source", e.source.Name()).Dur("elapsed", elapsed).Msg("rebuild failed, keeping previous snapshot")
		return nil, err
	}

	e.current.Store(snap)
	st := snap.Stats()
	e.metrics.observeSnapshot(st)
	e.logger.Info().
		Uint64("version", st.Version).
		Int("users", st.Users).
		Int("items", st.Items).
		Int("ratings", st.Ratings).
		Str("metric", st.Metric).
		Dur("elapsed", elapsed).
		Msg("snapshot rebuilt")
	return snap, nil
}

func (e *Engine) rebuild(ctx context.Context) (*Snapshot, error) {
	ratings, err := e.source.LoadRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: load ratings from %s: %w", e.source.Name(), err)
	}
	snap, err := BuildSnapshot(ctx, ratings, e.cfg)
	if err != nil {
		return nil, err
	}
	snap.Version = e.version.Add(1)
	return snap, nil
}

// Snapshot 返回当前快照，尚未构建时返回 core.ErrNotReady。
func (e *Engine) Snapshot() (*Snapshot, error) {
	snap := e.current.Load()
	if snap == nil {
		return nil, core.ErrNotReady
	}
	return snap, nil
}

// Model 实现 recall.ModelProvider。
func (e *Engine) Model() (recall.Model, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Ready 报告是否已有可用快照。
func (e *Engine) Ready() bool { return e.current.Load() != nil }

// RecommendForUser 在当前快照上执行基于用户的推荐。
func (e *Engine) RecommendForUser(userID int64, topN int) ([]core.Scored, error) {
	start := time.Now()
	out, err := e.recommendForUser(userID, topN)
	e.metrics.ObserveRequest("recommend", time.Since(start), err)
	return out, err
}

func (e *Engine) recommendForUser(userID int64, topN int) ([]core.Scored, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.RecommendForUser(userID, topN)
}

// SimilarItems 在当前快照上查找相似电影。
func (e *Engine) SimilarItems(itemID int64, topN int) ([]core.Scored, error) {
	start := time.Now()
	out, err := e.similarItems(itemID, topN)
	e.metrics.ObserveRequest("similar", time.Since(start), err)
	return out, err
}

func (e *Engine) similarItems(itemID int64, topN int) ([]core.Scored, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.SimilarItems(itemID, topN)
}

var _ recall.ModelProvider = (*Engine)(nil)
