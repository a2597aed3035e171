package recall

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/utils"
)

// UserBasedCF 是基于用户的协同过滤召回源（User-based Collaborative Filtering, User-CF）。
//
// 核心思想："兴趣相似的用户，喜欢相似的物品"
//
// 算法流程：
//  1. 用户 → 评分向量（交互矩阵的一行）
//  2. 读取预先计算好的用户相似度矩阵
//  3. 只保留正相似的用户，按相似度加权平均其评分
//  4. 推荐这些用户评过但目标用户未评过的电影
//
// 相似度矩阵由 engine 离线（进程内）一次性构建，召回时只做读取。
type UserBasedCF struct {
	Models ModelProvider

	// TopKItems 最终返回的 TopK 个物品，<= 0 时使用 RecommendContext.TopN，再退化为 core.DefaultTopN
	TopKItems int

	// SimilarityMetric 只用于 cf_metric label，实际度量由构建相似度矩阵时决定
	SimilarityMetric string
}

func (r *UserBasedCF) Name() string {
	return "recall.u2i"
}

func (r *UserBasedCF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	userID, ok := rctx.User()
	if !ok {
		return nil, nil
	}
	model, err := currentModel(r.Models)
	if err != nil {
		return nil, err
	}
	if model.UserSimilarity() == nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeUnavailable, "recall: user similarity not built")
	}

	scored, err := RecommendForUser(userID, model.Interaction(), model.UserSimilarity(), topK(r.TopKItems, rctx))
	if err != nil {
		return nil, err
	}
	return labelled(scored, "u2i", r.SimilarityMetric), nil
}

// ItemBasedCF 是基于物品的协同过滤召回源（Item-based Collaborative Filtering, Item-CF）。
//
// 核心思想："被同一批用户喜欢的物品，相互相似"
//
// 两种输入：
//   - 指定了查询电影（RecommendContext.HasItem）：直接返回该电影的最近邻（"我看了这个，还可能看什么"）
//   - 否则指定了用户：以用户评过的电影为种子，按 评分 × 相似度 加权聚合（i2i）
type ItemBasedCF struct {
	Models ModelProvider

	// TopKItems 最终返回的 TopK 个物品
	TopKItems int

	// SimilarityMetric 只用于 cf_metric label
	SimilarityMetric string
}

func (r *ItemBasedCF) Name() string {
	return "recall.i2i"
}

func (r *ItemBasedCF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	userID, hasUser := rctx.User()
	itemID, hasItem := rctx.Item()
	if !hasUser && !hasItem {
		return nil, nil
	}
	model, err := currentModel(r.Models)
	if err != nil {
		return nil, err
	}
	itemSim := model.ItemSimilarity()
	if itemSim == nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeUnavailable, "recall: item similarity not built")
	}

	n := topK(r.TopKItems, rctx)
	var scored []core.Scored
	if hasItem {
		scored, err = SimilarItems(itemID, itemSim, n)
	} else {
		scored, err = RecommendFromHistory(userID, model.Interaction(), itemSim, n)
	}
	if err != nil {
		return nil, err
	}
	return labelled(scored, "i2i", r.SimilarityMetric), nil
}

func topK(configured int, rctx *core.RecommendContext) int {
	if configured > 0 {
		return configured
	}
	if rctx != nil && rctx.TopN > 0 {
		return rctx.TopN
	}
	return core.DefaultTopN
}

func labelled(scored []core.Scored, source, metric string) []*core.Item {
	if metric == "" {
		metric = "cosine"
	}
	out := core.NewScoredItems(scored)
	for _, it := range out {
		it.PutLabel("recall_source", utils.Label{Value: source, Source: "recall"})
		it.PutLabel("cf_metric", utils.Label{Value: metric, Source: "recall"})
	}
	return out
}
