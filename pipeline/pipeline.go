package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/movierec/core"
)

// Observer 在每个 Node 执行完成后被调用，用于打点/日志（例如按阶段统计耗时）。
type Observer func(node Node, in, out int, elapsed time.Duration, err error)

// Pipeline 是推荐链路的核心抽象：把推荐逻辑拆成可组合的 Node 链。
// 一次 Run 内各 Node 串行执行，上一个 Node 的输出是下一个 Node 的输入。
type Pipeline struct {
	Name     string
	Nodes    []Node
	Observer Observer
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if p.Observer != nil {
			p.Observer(node, len(cur), len(next), time.Since(start), err)
		}
		if err != nil {
			return nil, fmt.Errorf("pipeline: node %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
