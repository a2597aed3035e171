// Package dsl 是推荐链路的表达式 DSL，使用 CEL (Common Expression Language) 实现。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.recall_source == "u2i" / label.genre != "Horror"
//   - 数值：item.score > 3.5 / item.meta.mean_rating >= 4.0
//   - 逻辑：label.recall_source == "hot" && item.score < 10.0
//   - 存在性：has(label.genre)
//   - 包含：label.recall_source.contains("i2i")
//   - 请求参数：item.score >= rctx.params.min_score
//
// CEL 数值类型严格：item.score 是 double，与整数常量比较时写 3.0 而不是 3。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/movierec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
}

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译后的表达式，线程安全，可以对多个 item 反复求值。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式；空表达式恒为 true。
func Compile(expr string) (*Program, error) {
	if expr == "" {
		return &Program{}, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("dsl: init env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dsl: compile %q: %v", expr, issues.Err()))
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dsl: program %q: %v", expr, err))
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对单个 item 求值，表达式必须返回 bool。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if p.prg == nil {
		return true, nil
	}
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		// 访问不存在的 key 会报错，应使用 has(label.key) 先检查
		return false, fmt.Errorf("dsl: eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl: %q must return bool, got %T", p.expr, out.Value())
	}
	return result, nil
}

// Evaluate 编译并执行一次表达式，适合一次性调用；热路径请使用 Compile + Eval。
func Evaluate(expr string, item *core.Item, rctx *core.RecommendContext) (bool, error) {
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Eval(item, rctx)
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any)
	labelValues := make(map[string]any)
	item := map[string]any{}
	if it != nil {
		for k, v := range it.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			labelValues[k] = v.Value
		}
		meta := it.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		item = map[string]any{
			"id":     it.ID,
			"score":  it.Score,
			"meta":   meta,
			"labels": labels,
		}
	}

	reqCtx := map[string]any{}
	if rctx != nil {
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		reqCtx = map[string]any{
			"user_id":  rctx.UserID,
			"has_user": rctx.HasUser,
			"item_id":  rctx.ItemID,
			"has_item": rctx.HasItem,
			"scene":    rctx.Scene,
			"top_n":    rctx.TopN,
			"params":   params,
		}
	}

	return map[string]any{
		"item":  item,
		"label": labelValues,
		"rctx":  reqCtx,
	}
}
