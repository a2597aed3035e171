package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/dsl"
)

// ExprFilter 是表达式过滤器：表达式为 true 的电影被过滤掉（Invert 为 true 时反过来，只保留为 true 的）。
//
// 示例：
//   - `item.score <= 0.0`                       去掉预测分为 0 的候选
//   - `has(label.genre) && label.genre == "Horror"`
//   - `item.score < rctx.params.min_score`
type ExprFilter struct {
	program *dsl.Program
	Invert  bool
}

// NewExprFilter 编译表达式，语法错误在构建时返回。
func NewExprFilter(expr string, invert bool) (*ExprFilter, error) {
	p, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{program: p, Invert: invert}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	ok, err := f.program.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return ok != f.Invert, nil
}
