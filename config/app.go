package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/dataset"
	"github.com/rushteam/movierec/engine"
	"github.com/rushteam/movierec/pkg/logging"
	"github.com/rushteam/movierec/server"
	"github.com/rushteam/movierec/store"
)

// EnvPrefix 是环境变量前缀：MOVIEREC_ENGINE_METRIC -> engine.metric
const EnvPrefix = "MOVIEREC_"

// ConfigPathEnvVar 可以覆盖配置文件路径。
const ConfigPathEnvVar = "MOVIEREC_CONFIG"

// 评分数据来源
const (
	SourceCSV   = "csv"
	SourceRedis = "redis"
)

// App 是 movierec 进程的完整配置。
//
// 加载顺序（后者覆盖前者）：结构体默认值 -> YAML 文件 -> MOVIEREC_ 环境变量。
type App struct {
	Data   DataConfig     `koanf:"data"`
	Engine engine.Config  `koanf:"engine"`
	Redis  RedisConfig    `koanf:"redis"`
	Server server.Config  `koanf:"server"`
	Log    logging.Config `koanf:"log"`

	// PipelinePath 可选，/v1/users/{id}/feed 使用的 pipeline 配置文件（YAML / JSON）
	PipelinePath string `koanf:"pipeline_path"`
}

// DataConfig 描述评分与电影元数据从哪里读。
type DataConfig struct {
	// Source: csv / redis
	Source      string `koanf:"source"`
	RatingsPath string `koanf:"ratings_path"`
	MoviesPath  string `koanf:"movies_path"`

	// MaxUsers 只保留 user ID 最小的 N 个用户，<= 0 不过滤
	MaxUsers int `koanf:"max_users"`

	// Watch 为 true 时监听 CSV 文件变化并自动重建
	Watch bool `koanf:"watch"`
}

type RedisConfig struct {
	Addr   string `koanf:"addr"`
	DB     int    `koanf:"db"`
	Prefix string `koanf:"prefix"`
}

// Default 返回默认配置。
func Default() *App {
	return &App{
		Data: DataConfig{
			Source:      SourceCSV,
			RatingsPath: "data/ratings.csv",
			MoviesPath:  "data/movies.csv",
			MaxUsers:    dataset.DefaultMaxUsers,
		},
		Engine: engine.DefaultConfig(),
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			Prefix: store.DefaultRedisPrefix,
		},
		Server: server.DefaultConfig(),
		Log: logging.DefaultConfig(),
	}
}

// Load 加载配置。path 为空时依次尝试 MOVIEREC_CONFIG 与 movierec.yaml；都不存在则只用默认值和环境变量。
func Load(path string) (*App, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &App{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range []string{"movierec.yaml", "movierec.yml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sections = []string{"data", "engine", "redis", "server", "log"}

// envTransform: MOVIEREC_ENGINE_MAX_CELLS -> engine.max_cells，MOVIEREC_PIPELINE_PATH -> pipeline_path
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	for _, s := range sections {
		if rest, ok := strings.CutPrefix(key, s+"_"); ok {
			return s + "." + rest
		}
	}
	return key
}

// Validate 检查配置取值。
func (a *App) Validate() error {
	switch a.Data.Source {
	case SourceCSV:
		if a.Data.RatingsPath == "" {
			return invalidConfig("data.ratings_path is required for csv source")
		}
	case SourceRedis:
		if a.Redis.Addr == "" {
			return invalidConfig("redis.addr is required for redis source")
		}
	default:
		return invalidConfig(fmt.Sprintf("unknown data.source %q (csv / redis)", a.Data.Source))
	}
	if a.Data.Watch && a.Data.Source != SourceCSV {
		return invalidConfig("data.watch only applies to csv source")
	}
	if err := a.Engine.Validate(); err != nil {
		return err
	}
	if a.Server.Addr == "" {
		return invalidConfig("server.addr is required")
	}
	if a.Server.MaxTopN < 0 {
		return invalidConfig("server.max_top_n must be >= 0")
	}
	return nil
}

func invalidConfig(msg string) error {
	return core.NewDomainError(core.ModuleConfig, core.ErrorCodeInvalidInput, "config: "+msg)
}
