package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/recall"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/movierec/config/builders"
// 以触发内置 Node（recall.u2i、recall.fanout、filter、rerank.topn 等）的 init 注册。

// Deps 是构建 Node 时需要注入的运行期依赖。
type Deps struct {
	// Models 提供当前快照，通常是 *engine.Engine
	Models recall.ModelProvider

	// Catalog 电影元数据，可以为 nil（postprocess.title 会使用占位标题）
	Catalog *catalog.Catalog

	Logger zerolog.Logger
}

// Builder 根据 node 配置与运行期依赖构建 Node。
// 各组件在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type Builder func(cfg map[string]any, deps Deps) (pipeline.Node, error)

var (
	defaultBuilders   = make(map[string]Builder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供 DefaultFactory 与配置驱动使用。
func Register(typeName string, builder Builder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回基于当前注册表构建的 NodeFactory，所有 builder 共享同一组 deps。
func DefaultFactory(deps Deps) *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		b := builder
		f.Register(typeName, func(cfg map[string]any) (pipeline.Node, error) {
			return b(cfg, deps)
		})
	}
	return f
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均已注册；若有未支持类型则返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	for _, nc := range cfg.Pipeline.Nodes {
		if _, ok := defaultBuilders[nc.Type]; !ok {
			types := make([]string, 0, len(defaultBuilders))
			for t := range defaultBuilders {
				types = append(types, t)
			}
			sort.Strings(types)
			return core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotSupported,
				fmt.Sprintf("unsupported node type %q (supported: %v)", nc.Type, types))
		}
	}
	return nil
}

// BuildPipeline 校验并构建 pipeline。
func BuildPipeline(cfg *pipeline.Config, deps Deps) (*pipeline.Pipeline, error) {
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	return cfg.BuildPipeline(DefaultFactory(deps))
}

// LoadPipeline 从 YAML / JSON 文件加载并构建 pipeline。
func LoadPipeline(path string, deps Deps) (*pipeline.Pipeline, error) {
	cfg, err := pipeline.Load(path)
	if err != nil {
		return nil, err
	}
	return BuildPipeline(cfg, deps)
}
