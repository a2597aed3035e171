package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在召回/过滤后截取前 N 个电影。
//
// 使用场景：
//   - 多路召回合并后统一排序并截断
//   - 配合多样性重排使用（先多取一些，打散后再截断）
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Fanout{...},                 // 召回
//	        &filter.FilterNode{...},             // 过滤
//	        &rerank.TopNNode{N: 20, Sort: true}, // 排序并截取 Top 20
//	        &rerank.Diversity{...},              // 多样性重排
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量（Top N）
	// 如果 N <= 0，使用 RecommendContext.TopN；两者都未设置时返回所有物品
	N int

	// Sort 为 true 时先按分数降序、ID 升序排序再截断
	Sort bool
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Sort {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Score != items[j].Score {
				return items[i].Score > items[j].Score
			}
			return items[i].ID < items[j].ID
		})
	}

	limit := n.N
	if limit <= 0 && rctx != nil {
		limit = rctx.TopN
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
