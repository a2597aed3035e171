package recall

import (
	"fmt"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/matrix"
	"github.com/rushteam/movierec/similarity"
)

// neighbour 是参与加权的一个相似用户：评分行（只读视图）+ 与目标用户的相似度。
type neighbour struct {
	row matrix.RowView
	sim float64
}

// accumulate 对邻居做纯折叠，返回 (加权评分向量, 相似度之和)：
//
//	weighted[item] = Σ sim(u, v) · M[v][item]
//	sumSim         = Σ sim(u, v)
//
// 不修改任何输入，也没有对外可见的中间状态。
func accumulate(neighbours []neighbour, dim int) ([]float64, float64) {
	weighted := make([]float64, dim)
	var sumSim float64
	for _, n := range neighbours {
		for i := 0; i < n.row.Len(); i++ {
			if v := n.row.At(i); v != 0 {
				weighted[i] += n.sim * v
			}
		}
		sumSim += n.sim
	}
	return weighted, sumSim
}

// RecommendForUser 基于用户的协同过滤（User-CF）：
//
//  1. 只取与目标用户相似度 > 0 的其他用户（<= 0 的直接排除，不参与加权）
//  2. 预测分 score[item] = Σ sim·rating / Σ sim
//  3. 排除目标用户已评分（非零格子）的物品
//  4. 按分数降序、物品 ID 升序排序，取前 topN（topN 为 0 时为空，负数报 INVALID_INPUT）
//
// 没有正相似的用户时返回空结果，不是错误。
// userID 不在 userSim 或 m 中时返回 UnknownEntityError。
func RecommendForUser(userID int64, m *matrix.Interaction, userSim *similarity.Matrix, topN int) ([]core.Scored, error) {
	if err := checkTopN(topN); err != nil {
		return nil, err
	}
	ui, ok := userSim.Index(userID)
	if !ok {
		return nil, core.NewUnknownEntityError(core.ModuleRecall, core.EntityUser, userID)
	}
	mu, ok := m.UserIndex(userID)
	if !ok {
		return nil, core.NewUnknownEntityError(core.ModuleRecall, core.EntityUser, userID)
	}

	var neighbours []neighbour
	for j := 0; j < userSim.Len(); j++ {
		if j == ui {
			continue
		}
		sim := userSim.AtIndex(ui, j)
		if sim <= 0 {
			continue
		}
		// 相似度索引中存在、交互矩阵中不存在的用户没有评分可以贡献
		row, ok := m.UserIndex(userSim.ID(j))
		if !ok {
			continue
		}
		neighbours = append(neighbours, neighbour{row: m.RowView(row), sim: sim})
	}

	_, cols := m.Shape()
	weighted, sumSim := accumulate(neighbours, cols)
	if sumSim == 0 {
		return []core.Scored{}, nil
	}

	items := m.Items()
	rated := m.RowView(mu)
	out := make([]core.Scored, 0, cols)
	for i, w := range weighted {
		if rated.At(i) != 0 {
			continue
		}
		out = append(out, core.Scored{ID: items[i], Score: w / sumSim})
	}
	return core.TopN(out, topN), nil
}

// SimilarItems 基于物品的最近邻查询（"看了这部，还可能看什么"）：
// 直接读取物品相似度矩阵中 itemID 所在行，排除自身，按相似度降序、ID 升序取前 topN。
func SimilarItems(itemID int64, itemSim *similarity.Matrix, topN int) ([]core.Scored, error) {
	if err := checkTopN(topN); err != nil {
		return nil, err
	}
	i, ok := itemSim.Index(itemID)
	if !ok {
		return nil, core.NewUnknownEntityError(core.ModuleRecall, core.EntityItem, itemID)
	}
	out := make([]core.Scored, 0, itemSim.Len())
	for j := 0; j < itemSim.Len(); j++ {
		if j == i {
			continue
		}
		out = append(out, core.Scored{ID: itemSim.ID(j), Score: itemSim.AtIndex(i, j)})
	}
	return core.TopN(out, topN), nil
}

// RecommendFromHistory 基于物品的协同过滤（Item-CF）为用户推荐：
// 对每个未评分物品 i，取用户评过的物品 j 中与 i 正相似的部分，
//
//	score[i] = Σ rating(u, j) · sim(j, i) / Σ sim(j, i)
//
// 排除与排序规则同 RecommendForUser；没有任何正相似时返回空结果。
func RecommendFromHistory(userID int64, m *matrix.Interaction, itemSim *similarity.Matrix, topN int) ([]core.Scored, error) {
	if err := checkTopN(topN); err != nil {
		return nil, err
	}
	mu, ok := m.UserIndex(userID)
	if !ok {
		return nil, core.NewUnknownEntityError(core.ModuleRecall, core.EntityUser, userID)
	}

	items := m.Items()
	row := m.RowView(mu)

	// 交互矩阵列号 -> 相似度矩阵下标，-1 表示不在相似度索引中
	simIndex := make([]int, len(items))
	for k, id := range items {
		simIndex[k] = -1
		if s, ok := itemSim.Index(id); ok {
			simIndex[k] = s
		}
	}

	out := make([]core.Scored, 0)
	for i := 0; i < row.Len(); i++ {
		if row.At(i) != 0 || simIndex[i] < 0 {
			continue
		}
		var weighted, sumSim float64
		for j := 0; j < row.Len(); j++ {
			rating := row.At(j)
			if rating == 0 || simIndex[j] < 0 {
				continue
			}
			sim := itemSim.AtIndex(simIndex[j], simIndex[i])
			if sim <= 0 {
				continue
			}
			weighted += rating * sim
			sumSim += sim
		}
		if sumSim == 0 {
			continue
		}
		out = append(out, core.Scored{ID: items[i], Score: weighted / sumSim})
	}
	return core.TopN(out, topN), nil
}

// checkTopN 拒绝负数；topN == 0 合法，结果为空。
func checkTopN(topN int) error {
	if topN < 0 {
		return core.NewDomainError(core.ModuleRecall, core.ErrorCodeInvalidInput,
			fmt.Sprintf("recall: top_n must be >= 0, got %d", topN))
	}
	return nil
}
