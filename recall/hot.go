package recall

import (
	"context"
	"sort"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/matrix"
	"github.com/rushteam/movierec/pkg/utils"
)

// Hot 是热门召回源：按评分人数从交互矩阵中选出热门电影。
// 主要作为 Fanout 的兜底来源，给没有正相似邻居的用户（冷启动）补充候选。
//   - 分数为评分人数，人数相同时平均分高的在前，再按 ID 升序
//   - 目标用户评过的电影会被排除
type Hot struct {
	Models ModelProvider

	// TopK 返回数量，<= 0 时使用 RecommendContext.TopN / core.DefaultTopN
	TopK int

	// MinRatings 至少被多少个用户评分才算热门，默认 1
	MinRatings int
}

func (r *Hot) Name() string { return "recall.hot" }

func (r *Hot) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	model, err := currentModel(r.Models)
	if err != nil {
		return nil, err
	}
	m := model.Interaction()
	rows, cols := m.Shape()

	minRatings := r.MinRatings
	if minRatings <= 0 {
		minRatings = 1
	}

	counts := make([]int, cols)
	sums := make([]float64, cols)
	for u := 0; u < rows; u++ {
		m.RowView(u).Each(func(i int, v float64) {
			if v != 0 {
				counts[i]++
				sums[i] += v
			}
		})
	}

	var rated *matrix.RowView
	if userID, ok := rctx.User(); ok {
		if u, ok := m.UserIndex(userID); ok {
			row := m.RowView(u)
			rated = &row
		}
	}

	type hotItem struct {
		id    int64
		count int
		mean  float64
	}
	items := m.Items()
	cands := make([]hotItem, 0, cols)
	for i, c := range counts {
		if c < minRatings || (rated != nil && rated.At(i) != 0) {
			continue
		}
		cands = append(cands, hotItem{id: items[i], count: c, mean: sums[i] / float64(c)})
	}
	sort.Slice(cands, func(a, b int) bool {
		if cands[a].count != cands[b].count {
			return cands[a].count > cands[b].count
		}
		if cands[a].mean != cands[b].mean {
			return cands[a].mean > cands[b].mean
		}
		return cands[a].id < cands[b].id
	})

	n := topK(r.TopK, rctx)
	if len(cands) > n {
		cands = cands[:n]
	}
	out := make([]*core.Item, 0, len(cands))
	for _, c := range cands {
		it := core.NewItem(c.id)
		it.Score = float64(c.count)
		it.Meta["mean_rating"] = c.mean
		it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
