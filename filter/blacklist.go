package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/conv"
)

// ParamExclude 是请求级黑名单在 RecommendContext.Params 中的 key，值为 []int64 或 []any。
const ParamExclude = "exclude"

// BlacklistFilter 是黑名单过滤器，过滤掉黑名单中的电影。
// 黑名单来自两处：配置中的固定列表，以及请求参数 rctx.Params["exclude"]。
type BlacklistFilter struct {
	ids map[int64]struct{}
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(itemIDs []int64) *BlacklistFilter {
	ids := make(map[int64]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		ids[id] = struct{}{}
	}
	return &BlacklistFilter{ids: ids}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if _, ok := f.ids[item.ID]; ok {
		return true, nil
	}
	if rctx == nil || rctx.Params == nil {
		return false, nil
	}
	switch v := rctx.Params[ParamExclude].(type) {
	case []int64:
		for _, id := range v {
			if id == item.ID {
				return true, nil
			}
		}
	case []any:
		for _, raw := range v {
			if id, ok := conv.ToInt64(raw); ok && id == item.ID {
				return true, nil
			}
		}
	}
	return false, nil
}
