package recall

import (
	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/matrix"
	"github.com/rushteam/movierec/similarity"
)

// Model 是召回源读取的一组不可变矩阵（交互矩阵 + 用户/物品相似度）。
// engine.Snapshot 实现了该接口。
type Model interface {
	Interaction() *matrix.Interaction
	UserSimilarity() *similarity.Matrix
	ItemSimilarity() *similarity.Matrix
}

// ModelProvider 在每次请求时提供当前的 Model；
// 长驻进程中由 engine.Engine 实现，重建后自动读到新的快照。
type ModelProvider interface {
	Model() (Model, error)
}

type staticModel struct {
	m       *matrix.Interaction
	userSim *similarity.Matrix
	itemSim *similarity.Matrix
}

// NewModel 用已构建好的矩阵组装 Model，userSim / itemSim 可以为 nil（对应召回源不可用）。
func NewModel(m *matrix.Interaction, userSim, itemSim *similarity.Matrix) Model {
	return &staticModel{m: m, userSim: userSim, itemSim: itemSim}
}

func (s *staticModel) Interaction() *matrix.Interaction   { return s.m }
func (s *staticModel) UserSimilarity() *similarity.Matrix { return s.userSim }
func (s *staticModel) ItemSimilarity() *similarity.Matrix { return s.itemSim }

// StaticProvider 返回始终提供同一个 Model 的 ModelProvider。
func StaticProvider(m Model) ModelProvider {
	return providerFunc(func() (Model, error) { return m, nil })
}

type providerFunc func() (Model, error)

func (f providerFunc) Model() (Model, error) { return f() }

func currentModel(p ModelProvider) (Model, error) {
	if p == nil {
		return nil, core.ErrNotReady
	}
	return p.Model()
}
