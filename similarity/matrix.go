package similarity

import (
	"github.com/rushteam/movierec/core"
)

// Matrix 是对称的相似度方阵，按一个轴（用户或物品）的 ID 建立索引。
// 构建完成后不可变，可被多个 goroutine 并发读取。
type Matrix struct {
	ids    []int64
	index  map[int64]int
	packed []float64 // 上三角（含对角线），按行存储
}

func newMatrix(ids []int64) *Matrix {
	n := len(ids)
	index := make(map[int64]int, n)
	for i, id := range ids {
		index[id] = i
	}
	return &Matrix{
		ids:    ids,
		index:  index,
		packed: make([]float64, n*(n+1)/2),
	}
}

// offset 返回第 i 行在 packed 中的起始位置（对应元素 (i, i)）。
func (s *Matrix) offset(i int) int {
	n := len(s.ids)
	return i*n - i*(i-1)/2
}

// Len 返回方阵边长。
func (s *Matrix) Len() int { return len(s.ids) }

// IDs 返回索引 ID 副本（与构建时的向量顺序一致）。
func (s *Matrix) IDs() []int64 { return append([]int64(nil), s.ids...) }

// ID 返回第 i 个位置的 ID。
func (s *Matrix) ID(i int) int64 { return s.ids[i] }

// Has 报告 ID 是否在索引中。
func (s *Matrix) Has(id int64) bool {
	_, ok := s.index[id]
	return ok
}

// Index 返回 ID 对应的位置。
func (s *Matrix) Index(id int64) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// AtIndex 按位置读取相似度，AtIndex(i, j) == AtIndex(j, i)。
func (s *Matrix) AtIndex(i, j int) float64 {
	if i > j {
		i, j = j, i
	}
	return s.packed[s.offset(i)+j-i]
}

// At 按 ID 读取相似度；任一 ID 不在索引中时返回 UnknownEntityError。
func (s *Matrix) At(a, b int64) (float64, error) {
	i, ok := s.index[a]
	if !ok {
		return 0, core.NewUnknownEntityError(core.ModuleSimilarity, "id", a)
	}
	j, ok := s.index[b]
	if !ok {
		return 0, core.NewUnknownEntityError(core.ModuleSimilarity, "id", b)
	}
	return s.AtIndex(i, j), nil
}

// Row 返回 id 与所有 ID 的相似度（按 IDs() 顺序）。
func (s *Matrix) Row(id int64) ([]float64, error) {
	i, ok := s.index[id]
	if !ok {
		return nil, core.NewUnknownEntityError(core.ModuleSimilarity, "id", id)
	}
	row := make([]float64, len(s.ids))
	for j := range row {
		row[j] = s.AtIndex(i, j)
	}
	return row, nil
}
