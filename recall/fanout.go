package recall

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pipeline"
	"github.com/rushteam/movierec/pkg/utils"
)

// 合并策略
const (
	MergeFirst    = "first"    // 按 ID 去重，保留第一个出现的
	MergeUnion    = "union"    // 保留所有结果，不去重
	MergePriority = "priority" // 相同 ID 保留优先级更高（Sources 中靠前）的结果
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
// 支持超时、限流、优先级合并策略。
//
// 单个召回源失败不会中断其他召回源（尽力而为），错误通过 OnError 回调上报。
// 合并结果按 Sources 顺序拼接，与各召回源的完成顺序无关。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy string        // 合并策略：first / union / priority（优先级按 Sources 顺序）

	// OnError 可选，召回源返回错误时调用（例如记录日志）
	OnError func(source string, err error)
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	results := make([][]*core.Item, len(n.Sources))
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		i, s := i, src
		eg.Go(func() error {
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := s.Recall(recallCtx, rctx)
			if err != nil {
				if n.OnError != nil {
					n.OnError(s.Name(), err)
				}
				return nil
			}

			// 记录召回来源 label，方便 explain / 观测；召回源自己写过的不覆盖
			for _, it := range items {
				if it.GetLabel("recall_source") == "" {
					it.PutLabel("recall_source", utils.Label{Value: s.Name(), Source: "recall"})
				}
				it.PutLabel("recall_priority", utils.Label{Value: strconv.Itoa(i), Source: "recall"})
			}
			results[i] = items
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []*core.Item
	for _, items := range results {
		all = append(all, items...)
	}

	switch n.MergeStrategy {
	case MergePriority:
		return n.mergeByPriority(all), nil
	case MergeUnion:
		return all, nil
	default:
		return n.mergeFirst(all), nil
	}
}

// mergeFirst 按 ID 去重，保留第一个出现的（默认策略），后出现的 labels 合并进来。
func (n *Fanout) mergeFirst(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	seen := make(map[int64]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		if old, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}

// mergeByPriority 按优先级合并：相同 ID 时保留优先级更高的（索引更小），输出顺序为首次出现的顺序。
func (n *Fanout) mergeByPriority(all []*core.Item) []*core.Item {
	if !n.Dedup {
		return all
	}
	pos := make(map[int64]int, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if it == nil {
			continue
		}
		idx, exists := pos[it.ID]
		if !exists {
			pos[it.ID] = len(out)
			out = append(out, it)
			continue
		}
		old := out[idx]
		if priorityOf(it) < priorityOf(old) {
			for k, v := range old.Labels {
				it.PutLabel(k, v)
			}
			out[idx] = it
		} else {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
		}
	}
	return out
}

// priorityOf 读取 recall_priority label；合并过的 label 取最早写入的值。
func priorityOf(it *core.Item) int {
	p, err := strconv.Atoi(it.Labels["recall_priority"].First())
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return p
}
