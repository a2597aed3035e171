package engine

import (
	"fmt"
	"time"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/matrix"
	"github.com/rushteam/movierec/similarity"
)

// Config 是快照构建参数。
type Config struct {
	// Workers 相似度计算的并发数，<= 0 时使用 CPU 数
	Workers int `koanf:"workers"`

	// Metric 相似度度量：cosine（默认）/ pearson
	Metric string `koanf:"metric"`

	// DuplicatePolicy 重复评分的处理：reject（默认）/ last_write_wins
	DuplicatePolicy string `koanf:"duplicate_policy"`

	// MaxCells 交互矩阵最大格子数，<= 0 不限制
	MaxCells int64 `koanf:"max_cells"`

	// MaxSimilarityEntries 单个相似度矩阵上三角的最大元素数，<= 0 不限制
	MaxSimilarityEntries int64 `koanf:"max_similarity_entries"`

	// DefaultTopN 是 HTTP 请求未带 top_n 时填入的数量
	DefaultTopN int `koanf:"default_top_n"`

	// WatchDebounce 数据文件变化后等待多久再重建
	WatchDebounce time.Duration `koanf:"watch_debounce"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		Metric:               string(similarity.MetricCosine),
		DuplicatePolicy:      "reject",
		MaxCells:             matrix.DefaultMaxCells,
		MaxSimilarityEntries: similarity.DefaultMaxEntries,
		DefaultTopN:          core.DefaultTopN,
		WatchDebounce:        2 * time.Second,
	}
}

// Validate 检查配置取值。
func (c Config) Validate() error {
	if _, err := similarity.ParseMetric(c.Metric); err != nil {
		return err
	}
	if _, err := matrix.ParseDuplicatePolicy(c.DuplicatePolicy); err != nil {
		return err
	}
	if c.DefaultTopN < 0 {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			fmt.Sprintf("engine: default_top_n must be >= 0, got %d", c.DefaultTopN))
	}
	if c.WatchDebounce < 0 {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			fmt.Sprintf("engine: watch_debounce must be >= 0, got %s", c.WatchDebounce))
	}
	return nil
}

func (c Config) matrixOptions() ([]matrix.Option, error) {
	policy, err := matrix.ParseDuplicatePolicy(c.DuplicatePolicy)
	if err != nil {
		return nil, err
	}
	return []matrix.Option{
		matrix.WithDuplicatePolicy(policy),
		matrix.WithMaxCells(c.MaxCells),
	}, nil
}

func (c Config) similarityOptions() ([]similarity.Option, error) {
	metric, err := similarity.ParseMetric(c.Metric)
	if err != nil {
		return nil, err
	}
	return []similarity.Option{
		similarity.WithMetric(metric),
		similarity.WithWorkers(c.Workers),
		similarity.WithMaxEntries(c.MaxSimilarityEntries),
	}, nil
}
