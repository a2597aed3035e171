package catalog

import (
	"context"
	"strings"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
)

// TitleNode 是后处理 Node：把标题写入 Meta["title"]，把首个类型写入 "genre" label
// （rerank.diversity 默认按 "genre" label 打散）。
type TitleNode struct {
	Catalog *Catalog

	// DropUnknown 为 true 时丢弃元数据中不存在的电影
	DropUnknown bool
}

func (n *TitleNode) Name() string        { return "postprocess.title" }
func (n *TitleNode) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *TitleNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	out := items[:0]
	for _, it := range items {
		if it == nil {
			continue
		}
		m, ok := n.Catalog.Movie(it.ID)
		if !ok && n.DropUnknown {
			continue
		}
		if it.Meta == nil {
			it.Meta = make(map[string]any)
		}
		it.Meta["title"] = n.Catalog.Title(it.ID)
		if len(m.Genres) > 0 {
			it.Meta["genres"] = strings.Join(m.Genres, "|")
			it.PutLabel("genre", utils.Label{Value: m.Genres[0], Source: "postprocess"})
		}
		out = append(out, it)
	}
	return out, nil
}
