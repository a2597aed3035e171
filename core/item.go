package core

import "github.com/rushteam/movierec/pkg/utils"

// Item 是推荐链路中的统一承载结构：分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 用于排序决策。
type Item struct {
	ID     int64
	Score  float64
	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewItem(id int64) *Item {
	return &Item{
		ID:     id,
		Score:  0,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// NewScoredItems 把核心算法的 []Scored 转为 Pipeline 使用的 []*Item，保持顺序。
func NewScoredItems(scored []Scored) []*Item {
	out := make([]*Item, 0, len(scored))
	for _, s := range scored {
		it := NewItem(s.ID)
		it.Score = s.Score
		out = append(out, it)
	}
	return out
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 读取 Label 的 Value，不存在时返回空字符串。
func (it *Item) GetLabel(key string) string {
	if it.Labels == nil {
		return ""
	}
	return it.Labels[key].Value
}
