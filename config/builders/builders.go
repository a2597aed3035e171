// Package builders 在 init 中把内置 Node 注册到 config 注册表。
// 使用方式：import _ "github.com/rushteam/movierec/config/builders"
package builders

import (
	"fmt"

	"github.com/rushteam/movierec/catalog"
	"github.com/rushteam/movierec/config"
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/filter"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/conv"
	"github.com/rushteam/movierec/recall"
	"github.com/rushteam/movierec/rerank"
)

func init() {
	config.Register("recall.u2i", buildUserCFNode)
	config.Register("recall.i2i", buildItemCFNode)
	config.Register("recall.hot", buildHotNode)
	config.Register("recall.fanout", buildFanoutNode)
	config.Register("filter", buildFilterNode)
	config.Register("rerank.topn", buildTopNNode)
	config.Register("rerank.diversity", buildDiversityNode)
	config.Register("postprocess.title", buildTitleNode)
}

func invalid(format string, args ...any) error {
	return core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, fmt.Sprintf(format, args...))
}

// 单个召回源也包成 Fanout，这样它能直接作为 pipeline 的第一个节点
func single(src recall.Source, deps config.Deps) pipeline.Node {
	return &recall.Fanout{Sources: []recall.Source{src}, Dedup: true, OnError: logSourceError(deps)}
}

func logSourceError(deps config.Deps) func(string, error) {
	logger := deps.Logger
	return func(source string, err error) {
		logger.Warn().Err(err).Str("source", source).Msg("recall source failed")
	}
}

func buildUserCFNode(cfg map[string]any, deps config.Deps) (pipeline.Node, error) {
	src, err := buildSource("u2i", cfg, deps)
	if err != nil {
		return nil, err
	}
	return single(src, deps), nil
}

func buildItemCFNode(cfg map[string]any, deps config.Deps) (pipeline.Node, error) {
	src, err := buildSource("i2i", cfg, deps)
	if err != nil {
		return nil, err
	}
	return single(src, deps), nil
}

func buildHotNode(cfg map[string]any, deps config.Deps) (pipeline.Node, error) {
	src, err := buildSource("hot", cfg, deps)
	if err != nil {
		return nil, err
	}
	return single(src, deps), nil
}

// buildSource 构建单个召回源，sourceType 为 u2i / i2i / hot。
func buildSource(sourceType string, cfg map[string]any, deps config.Deps) (recall.Source, error) {
	if deps.Models == nil {
		return nil, invalid("recall.%s: model provider is required", sourceType)
	}
	topK := conv.ConfigGetInt(cfg, "top_k", 0)
	metric := conv.ConfigGet(cfg, "metric", "")
	switch sourceType {
	case "u2i":
		return &recall.UserBasedCF{Models: deps.Models, TopKItems: topK, SimilarityMetric: metric}, nil
	case "i2i":
		return &recall.ItemBasedCF{Models: deps.Models, TopKItems: topK, SimilarityMetric: metric}, nil
	case "hot":
		return &recall.Hot{Models: deps.Models, TopK: topK, MinRatings: conv.ConfigGetInt(cfg, "min_ratings", 0)}, nil
	default:
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotSupported,
			fmt.Sprintf("unknown recall source type: %s", sourceType))
	}
}

// buildFanoutNode 支持两种 sources 写法：
//
//	sources: [u2i, hot]
//	sources: [{type: u2i, top_k: 20}, {type: hot, min_ratings: 2}]
func buildFanoutNode(cfg map[string]any, deps config.Deps) (pipeline.Node, error) {
	raw, ok := cfg["sources"].([]any)
	if !ok || len(raw) == 0 {
		return nil, invalid("recall.fanout: sources not found or invalid")
	}

	sources := make([]recall.Source, 0, len(raw))
	for _, sc := range raw {
		var (
			sourceType string
			sourceCfg  map[string]any
		)
		switch v := sc.(type) {
		case string:
			sourceType = v
		case map[string]any:
			sourceType = conv.ConfigGet(v, "type", "")
			sourceCfg = v
		default:
			return nil, invalid("recall.fanout: invalid source %v", sc)
		}
		src, err := buildSource(sourceType, sourceCfg, deps)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	strategy := conv.ConfigGet(cfg, "merge_strategy", recall.MergeFirst)
	switch strategy {
	case recall.MergeFirst, recall.MergeUnion, recall.MergePriority:
	default:
		return nil, invalid("recall.fanout: unknown merge_strategy %q", strategy)
	}

	return &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", true),
		Timeout:       conv.ConfigGetDuration(cfg, "timeout", 0),
		MaxConcurrent: conv.ConfigGetInt(cfg, "max_concurrent", 0),
		MergeStrategy: strategy,
		OnError:       logSourceError(deps),
	}, nil
}

// buildFilterNode 支持两种 filters 写法：
//
//	filters: [rated]
//	filters: [{type: blacklist, item_ids: [1, 2]}, {type: expr, expr: "item.score <= 0.0"}]
func buildFilterNode(cfg map[string]any, deps config.Deps) (pipeline.Node, error) {
	raw, ok := cfg["filters"].([]any)
	if !ok {
		return nil, invalid("filter: filters not found or invalid")
	}

	filters := make([]filter.Filter, 0, len(raw))
	for _, fc := range raw {
		var (
			filterType string
			filterCfg  map[string]any
		)
		switch v := fc.(type) {
		case string:
			filterType = v
		case map[string]any:
			filterType = conv.ConfigGet(v, "type", "")
			filterCfg = v
		default:
			return nil, invalid("filter: invalid filter %v", fc)
		}

		switch filterType {
		case "rated":
			filters = append(filters, &filter.RatedFilter{Models: deps.Models})
		case "blacklist":
			filters = append(filters, filter.NewBlacklistFilter(conv.ConfigGetInt64Slice(filterCfg, "item_ids")))
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(filterCfg, "expr", ""), conv.ConfigGet(filterCfg, "invert", false))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeNotSupported,
				fmt.Sprintf("unknown filter type: %s", filterType))
		}
	}

	logger := deps.Logger
	return &filter.FilterNode{
		Filters: filters,
		OnError: func(name string, item *core.Item, err error) {
			logger.Warn().Err(err).Str("filter", name).Int64("item", item.ID).Msg("filter failed, keeping item")
		},
	}, nil
}

func buildTopNNode(cfg map[string]any, _ config.Deps) (pipeline.Node, error) {
	return &rerank.TopNNode{
		N:    conv.ConfigGetInt(cfg, "n", 0),
		Sort: conv.ConfigGet(cfg, "sort", true),
	}, nil
}

func buildDiversityNode(cfg map[string]any, _ config.Deps) (pipeline.Node, error) {
	return &rerank.Diversity{
		LabelKey:  conv.ConfigGet(cfg, "label_key", "genre"),
		MaxPerKey: conv.ConfigGetInt(cfg, "max_per_key", 1),
		Backfill:  conv.ConfigGet(cfg, "backfill", false),
	}, nil
}

func buildTitleNode(cfg map[string]any, deps config.Deps) (pipeline.Node, error) {
	return &catalog.TitleNode{
		Catalog:     deps.Catalog,
		DropUnknown: conv.ConfigGet(cfg, "drop_unknown", false),
	}, nil
}
