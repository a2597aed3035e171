package rerank

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/utils"
)

func scoredItems(scores map[int64]float64, order ...int64) []*core.Item {
	out := make([]*core.Item, 0, len(order))
	for _, id := range order {
		it := core.NewItem(id)
		it.Score = scores[id]
		out = append(out, it)
	}
	return out
}

func ids(items []*core.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestTopNNode(t *testing.T) {
	scores := map[int64]float64{1: 1, 2: 3, 3: 3, 4: 5}

	tests := []struct {
		name string
		node *TopNNode
		rctx *core.RecommendContext
		want []int64
	}{
		{name: "truncate only", node: &TopNNode{N: 2}, want: []int64{3, 1}},
		{name: "sort and truncate", node: &TopNNode{N: 3, Sort: true}, want: []int64{4, 2, 3}},
		{name: "context top n", node: &TopNNode{Sort: true}, rctx: &core.RecommendContext{TopN: 1}, want: []int64{4}},
		{name: "no limit", node: &TopNNode{}, want: []int64{3, 1, 4, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.node.Process(context.Background(), tt.rctx, scoredItems(scores, 3, 1, 4, 2))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("ids = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestDiversity(t *testing.T) {
	genres := map[int64]string{1: "Comedy", 2: "Comedy", 3: "Drama", 4: "", 5: "Comedy"}
	build := func() []*core.Item {
		var out []*core.Item
		for _, id := range []int64{1, 2, 3, 4, 5} {
			it := core.NewItem(id)
			if g := genres[id]; g != "" {
				it.PutLabel("genre", utils.Label{Value: g, Source: "postprocess"})
			}
			out = append(out, it)
		}
		return out
	}

	got, _ := (&Diversity{}).Process(context.Background(), nil, build())
	if want := []int64{1, 3, 4}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("default = %v, want %v", ids(got), want)
	}

	got, _ = (&Diversity{MaxPerKey: 2}).Process(context.Background(), nil, build())
	if want := []int64{1, 2, 3, 4}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("max 2 = %v, want %v", ids(got), want)
	}

	got, _ = (&Diversity{Backfill: true}).Process(context.Background(), nil, build())
	if want := []int64{1, 3, 4, 2, 5}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("backfill = %v, want %v", ids(got), want)
	}

	meta := core.NewItem(9)
	meta.Meta["studio"] = "A"
	meta2 := core.NewItem(10)
	meta2.Meta["studio"] = "A"
	got, _ = (&Diversity{LabelKey: "studio"}).Process(context.Background(), nil, []*core.Item{meta, meta2})
	if want := []int64{9}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("meta key = %v, want %v", ids(got), want)
	}
}
