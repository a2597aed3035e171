package utils

import "strings"

// Label 是推荐链路中的一等公民：可解释、可追踪、可透传。
// 例如 recall_source=u2i、cf_metric=cosine、genre=Comedy。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank / postprocess ...
}

// MergeLabel 用于合并同名 Label，遵循"保留历史、可追踪"的默认策略。
// - Value: 以 '|' 累积，已包含的值不重复追加
// - Source: 以 ',' 累积
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" || existing.Value == incoming.Value {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "" || existing.Source == incoming.Source:
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

// Values 拆分合并过的 Label Value。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, "|")
}

// First 返回合并过的 Label 中最早写入的值。
func (l Label) First() string {
	if i := strings.IndexByte(l.Value, '|'); i >= 0 {
		return l.Value[:i]
	}
	return l.Value
}
