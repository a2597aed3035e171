package core

import "github.com/rushteam/movierec/pkg/utils"

// RecommendContext 承载一次推荐请求的查询对象与参数，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	// UserID 是 user-based 推荐的目标用户，HasUser 为 false 时忽略。
	// 0 是合法 ID，是否指定只看 HasUser。
	UserID  int64
	HasUser bool

	// ItemID 是 item-based 推荐的查询电影，HasItem 为 false 时忽略
	ItemID  int64
	HasItem bool

	Scene string

	// TopN 是最终返回数量，<= 0 时由各 Node 使用默认值
	TopN int

	// Labels 是请求级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数（例如 min_score），供 DSL 表达式读取
	Params map[string]any
}

// ForUser 返回以 userID 为目标用户的请求上下文。
func ForUser(userID int64) *RecommendContext {
	return &RecommendContext{UserID: userID, HasUser: true}
}

// ForItem 返回以 itemID 为查询电影的请求上下文。
func ForItem(itemID int64) *RecommendContext {
	return &RecommendContext{ItemID: itemID, HasItem: true}
}

// User 返回目标用户；rctx 为 nil 或未指定时 ok 为 false。
func (rctx *RecommendContext) User() (int64, bool) {
	if rctx == nil || !rctx.HasUser {
		return 0, false
	}
	return rctx.UserID, true
}

// Item 返回查询电影；rctx 为 nil 或未指定时 ok 为 false。
func (rctx *RecommendContext) Item() (int64, bool) {
	if rctx == nil || !rctx.HasItem {
		return 0, false
	}
	return rctx.ItemID, true
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
