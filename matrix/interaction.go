// Package matrix 把评分记录构建为稠密的 user × item 交互矩阵。
//
// 约定：
//   - 行 = 去重后的 user ID（升序），列 = 去重后的 item ID（升序）
//   - 被评分的格子保存原始评分；其余格子严格为 0.0，表示"未评分"而非"评了 0 分"
//   - 矩阵构建完成后不可变，所有访问器都返回副本
//
// 稠密矩阵的内存为 |users|·|items|·8 字节，随 ID 空间无界增长，
// 因此构建前会按 MaxCells 做规模检查。
package matrix

import (
	"fmt"
	"math"
	"sort"

	"github.com/rushteam/movierec/core"
)

// DefaultMaxCells 是交互矩阵默认允许的最大格子数（约 400MB float64）。
const DefaultMaxCells = 50_000_000

// Axis 指定比较向量时使用矩阵的哪一个轴。
type Axis int

const (
	AxisUsers Axis = iota // 行：用户向量（user-based）
	AxisItems             // 列：物品向量（item-based）
)

func (a Axis) String() string {
	switch a {
	case AxisUsers:
		return "users"
	case AxisItems:
		return "items"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// DuplicatePolicy 决定同一 (user, item) 出现多次时的处理方式。
type DuplicatePolicy int

const (
	// DuplicateReject 严格模式：返回 DuplicateRatingError，拒绝本次构建
	DuplicateReject DuplicatePolicy = iota
	// DuplicateLastWriteWins 按输入顺序，后出现的记录覆盖先出现的记录
	DuplicateLastWriteWins
)

// ParseDuplicatePolicy 解析配置中的策略名：reject / last_write_wins。
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "reject":
		return DuplicateReject, nil
	case "last_write_wins", "last-write-wins":
		return DuplicateLastWriteWins, nil
	default:
		return DuplicateReject, core.NewDomainError(core.ModuleMatrix, core.ErrorCodeInvalidInput,
			fmt.Sprintf("matrix: unknown duplicate policy %q", s))
	}
}

type options struct {
	duplicates DuplicatePolicy
	maxCells   int64
}

// Option 配置 Build。
type Option func(*options)

// WithDuplicatePolicy 设置重复评分的处理策略，默认 DuplicateReject。
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(o *options) { o.duplicates = p }
}

// WithMaxCells 设置矩阵最大格子数；<= 0 表示不限制。
func WithMaxCells(n int64) Option {
	return func(o *options) { o.maxCells = n }
}

// Interaction 是稠密的 user × item 评分矩阵。
type Interaction struct {
	users     []int64
	items     []int64
	userIndex map[int64]int
	itemIndex map[int64]int
	data      []float64 // 行优先，len = len(users) * len(items)
}

// Build 从任意顺序的评分记录构建交互矩阵。
// 相同评分集合的任意排列得到内容完全一致的矩阵。
func Build(ratings []core.Rating, opts ...Option) (*Interaction, error) {
	o := options{duplicates: DuplicateReject, maxCells: DefaultMaxCells}
	for _, opt := range opts {
		opt(&o)
	}

	userIndex := make(map[int64]int)
	itemIndex := make(map[int64]int)
	for _, r := range ratings {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return nil, core.NewDomainError(core.ModuleMatrix, core.ErrorCodeInvalidInput,
				fmt.Sprintf("matrix: non-finite rating for user %d item %d", r.UserID, r.ItemID))
		}
		userIndex[r.UserID] = 0
		itemIndex[r.ItemID] = 0
	}

	users := sortedKeys(userIndex)
	items := sortedKeys(itemIndex)
	cells := int64(len(users)) * int64(len(items))
	if o.maxCells > 0 && cells > o.maxCells {
		return nil, core.NewDomainError(core.ModuleMatrix, core.ErrorCodeTooLarge,
			fmt.Sprintf("matrix: %d users x %d items = %d cells exceeds limit %d",
				len(users), len(items), cells, o.maxCells))
	}
	for i, id := range users {
		userIndex[id] = i
	}
	for i, id := range items {
		itemIndex[id] = i
	}

	m := &Interaction{
		users:     users,
		items:     items,
		userIndex: userIndex,
		itemIndex: itemIndex,
		data:      make([]float64, cells),
	}

	// 严格模式下需要区分"评了 0 分"和"未评分"，单独记录已写入的格子
	var seen map[int64]struct{}
	if o.duplicates == DuplicateReject {
		seen = make(map[int64]struct{}, len(ratings))
	}
	cols := int64(len(items))
	for _, r := range ratings {
		pos := int64(userIndex[r.UserID])*cols + int64(itemIndex[r.ItemID])
		if seen != nil {
			if _, dup := seen[pos]; dup {
				return nil, core.NewDuplicateRatingError(r.UserID, r.ItemID)
			}
			seen[pos] = struct{}{}
		}
		m.data[pos] = r.Value
	}
	return m, nil
}

func sortedKeys(m map[int64]int) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Shape 返回 (用户数, 物品数)。
func (m *Interaction) Shape() (int, int) {
	return len(m.users), len(m.items)
}

// Users 返回行轴的 user ID（升序）副本。
func (m *Interaction) Users() []int64 {
	return append([]int64(nil), m.users...)
}

// Items 返回列轴的 item ID（升序）副本。
func (m *Interaction) Items() []int64 {
	return append([]int64(nil), m.items...)
}

// UserIndex 返回 user ID 对应的行号。
func (m *Interaction) UserIndex(userID int64) (int, bool) {
	i, ok := m.userIndex[userID]
	return i, ok
}

// ItemIndex 返回 item ID 对应的列号。
func (m *Interaction) ItemIndex(itemID int64) (int, bool) {
	i, ok := m.itemIndex[itemID]
	return i, ok
}

// At 返回 (user, item) 的评分；未评分或 ID 不存在时返回 0。
func (m *Interaction) At(userID, itemID int64) float64 {
	u, ok := m.userIndex[userID]
	if !ok {
		return 0
	}
	i, ok := m.itemIndex[itemID]
	if !ok {
		return 0
	}
	return m.data[u*len(m.items)+i]
}

// Rated 报告用户是否评过该物品（非零格子）。
func (m *Interaction) Rated(userID, itemID int64) bool {
	return m.At(userID, itemID) != 0
}

// Row 返回用户的评分向量副本（按 Items() 顺序）。
func (m *Interaction) Row(userID int64) ([]float64, bool) {
	u, ok := m.userIndex[userID]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), m.rowAt(u)...), true
}

// RatedItems 返回用户评过的物品 ID（升序）。
func (m *Interaction) RatedItems(userID int64) []int64 {
	u, ok := m.userIndex[userID]
	if !ok {
		return nil
	}
	var out []int64
	for i, v := range m.rowAt(u) {
		if v != 0 {
			out = append(out, m.items[i])
		}
	}
	return out
}

// RowView 返回第 u 行（0 <= u < 用户数）的只读视图，不复制数据。
func (m *Interaction) RowView(u int) RowView {
	return RowView{data: m.rowAt(u)}
}

// RowView 是交互矩阵一行的只读视图，按 Items() 顺序。
type RowView struct {
	data []float64
}

// Len 返回列数。
func (r RowView) Len() int { return len(r.data) }

// At 返回第 i 列的评分，0 表示未评分。
func (r RowView) At(i int) float64 { return r.data[i] }

// Each 按列顺序遍历。
func (r RowView) Each(fn func(i int, v float64)) {
	for i, v := range r.data {
		fn(i, v)
	}
}

func (m *Interaction) rowAt(u int) []float64 {
	cols := len(m.items)
	return m.data[u*cols : (u+1)*cols : (u+1)*cols]
}

// Vectors 返回指定轴上的向量集合：AxisUsers 共享行数据，AxisItems 返回转置副本。
// Vectors 不暴露内部存储，共享是安全的。
func (m *Interaction) Vectors(axis Axis) Vectors {
	switch axis {
	case AxisItems:
		rows, cols := len(m.users), len(m.items)
		t := make([]float64, len(m.data))
		for u := 0; u < rows; u++ {
			row := m.data[u*cols : (u+1)*cols]
			for i, v := range row {
				t[i*rows+u] = v
			}
		}
		return Vectors{ids: m.items, dim: rows, data: t}
	default:
		return Vectors{ids: m.users, dim: len(m.items), data: m.data}
	}
}

// Vectors 是一组等长向量（矩阵的行或列）及其 ID，不可变。
type Vectors struct {
	ids  []int64
	dim  int
	data []float64
}

// NewVectors 用 ID 与行优先数据构造向量集合；len(data) 必须等于 len(ids)*dim。
func NewVectors(ids []int64, dim int, data []float64) (Vectors, error) {
	if dim < 0 || len(data) != len(ids)*dim {
		return Vectors{}, core.NewDomainError(core.ModuleMatrix, core.ErrorCodeInvalidInput,
			fmt.Sprintf("matrix: %d values cannot form %d vectors of dim %d", len(data), len(ids), dim))
	}
	return Vectors{
		ids:  append([]int64(nil), ids...),
		dim:  dim,
		data: append([]float64(nil), data...),
	}, nil
}

// Len 返回向量个数。
func (v Vectors) Len() int { return len(v.ids) }

// Dim 返回向量维度。
func (v Vectors) Dim() int { return v.dim }

// ID 返回第 i 个向量的 ID。
func (v Vectors) ID(i int) int64 { return v.ids[i] }

// IDs 返回 ID 副本。
func (v Vectors) IDs() []int64 { return append([]int64(nil), v.ids...) }

// At 返回第 i 个向量的副本。
func (v Vectors) At(i int) []float64 {
	return append([]float64(nil), v.data[i*v.dim:(i+1)*v.dim]...)
}
