package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/recall"
)

// RatedFilter 过滤目标用户已评分的电影，以及 item-based 查询中的查询电影本身。
// 多路召回合并后（例如混入热门兜底）用它保证"已看过的不再推荐"。
type RatedFilter struct {
	Models recall.ModelProvider
}

func (f *RatedFilter) Name() string {
	return "filter.rated"
}

func (f *RatedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if itemID, ok := rctx.Item(); ok && item.ID == itemID {
		return true, nil
	}
	userID, ok := rctx.User()
	if !ok || f.Models == nil {
		return false, nil
	}
	model, err := f.Models.Model()
	if err != nil {
		return false, err
	}
	return model.Interaction().Rated(userID, item.ID), nil
}
