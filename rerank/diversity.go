package rerank

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
)

// Diversity 是按类别打散的 ReRank：每个类别最多保留 MaxPerKey 个（按输入顺序）。
// 类别来源优先级：
// - label[LabelKey].Value
// - meta[LabelKey] (string)
//
// 超出配额的电影默认丢弃；Backfill 为 true 时按原顺序追加到末尾。
// 没有类别的电影不受限制。
type Diversity struct {
	LabelKey  string // 默认 "genre"（由 postprocess.title 写入）
	MaxPerKey int    // 默认 1
	Backfill  bool
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.LabelKey
	if key == "" {
		key = "genre"
	}
	limit := n.MaxPerKey
	if limit <= 0 {
		limit = 1
	}

	seen := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))
	var overflow []*core.Item

	for _, it := range items {
		if it == nil {
			continue
		}
		cate := category(it, key)
		if cate == "" {
			out = append(out, it)
			continue
		}
		if seen[cate] >= limit {
			overflow = append(overflow, it)
			continue
		}
		seen[cate]++
		out = append(out, it)
	}

	if n.Backfill {
		out = append(out, overflow...)
	}
	return out, nil
}

func category(it *core.Item, key string) string {
	if it.Labels != nil {
		if lbl, ok := it.Labels[key]; ok && lbl.Value != "" {
			return lbl.First()
		}
	}
	if it.Meta != nil {
		if s, ok := it.Meta[key].(string); ok {
			return s
		}
	}
	return ""
}
