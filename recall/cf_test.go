package recall

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/matrix"
	"github.com/rushteam/movierec/similarity"
)

func scenarioRatings() []core.Rating {
	return []core.Rating{
		{UserID: 1, ItemID: 10, Value: 5.0},
		{UserID: 1, ItemID: 20, Value: 3.0},
		{UserID: 2, ItemID: 10, Value: 4.0},
		{UserID: 2, ItemID: 20, Value: 5.0},
		{UserID: 3, ItemID: 10, Value: 1.0},
	}
}

func buildModel(t *testing.T, ratings []core.Rating) Model {
	t.Helper()
	m, err := matrix.Build(ratings)
	if err != nil {
		t.Fatalf("matrix.Build() error = %v", err)
	}
	us, err := similarity.Compute(context.Background(), m, matrix.AxisUsers)
	if err != nil {
		t.Fatalf("similarity.Compute(users) error = %v", err)
	}
	is, err := similarity.Compute(context.Background(), m, matrix.AxisItems)
	if err != nil {
		t.Fatalf("similarity.Compute(items) error = %v", err)
	}
	return NewModel(m, us, is)
}

func ids(s []core.Scored) []int64 {
	out := make([]int64, 0, len(s))
	for _, x := range s {
		out = append(out, x.ID)
	}
	return out
}

func assertOrdered(t *testing.T, s []core.Scored) {
	t.Helper()
	for i := 1; i < len(s); i++ {
		prev, cur := s[i-1], s[i]
		if prev.Score < cur.Score || (prev.Score == cur.Score && prev.ID > cur.ID) {
			t.Fatalf("results not ordered at %d: %v", i, s)
		}
	}
}

func TestRecommendForUser_Scenario(t *testing.T) {
	model := buildModel(t, scenarioRatings())
	m, us := model.Interaction(), model.UserSimilarity()

	got, err := RecommendForUser(3, m, us, 1)
	if err != nil {
		t.Fatalf("RecommendForUser(3) error = %v", err)
	}
	if !reflect.DeepEqual(ids(got), []int64{20}) {
		t.Fatalf("RecommendForUser(3) = %v, want item 20 only", got)
	}

	s31, _ := us.At(3, 1)
	s32, _ := us.At(3, 2)
	want := (s31*3.0 + s32*5.0) / (s31 + s32)
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("score(20) = %v, want %v", got[0].Score, want)
	}

	// 用户 1 已经评过全部物品
	got, err = RecommendForUser(1, m, us, 5)
	if err != nil {
		t.Fatalf("RecommendForUser(1) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("RecommendForUser(1) = %v, want empty", got)
	}
}

func TestRecommendForUser_ExcludesRatedAndOrders(t *testing.T) {
	ratings := []core.Rating{
		{UserID: 1, ItemID: 10, Value: 5},
		{UserID: 2, ItemID: 10, Value: 5},
		{UserID: 2, ItemID: 20, Value: 4},
		{UserID: 2, ItemID: 30, Value: 4},
		{UserID: 3, ItemID: 10, Value: 3},
		{UserID: 3, ItemID: 40, Value: 5},
		{UserID: 3, ItemID: 50, Value: 1},
	}
	model := buildModel(t, ratings)

	got, err := RecommendForUser(1, model.Interaction(), model.UserSimilarity(), 10)
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	assertOrdered(t, got)
	for _, s := range got {
		if model.Interaction().Rated(1, s.ID) {
			t.Errorf("result contains rated item %d", s.ID)
		}
	}
	if len(got) != 4 {
		t.Fatalf("RecommendForUser() = %v, want 4 candidates", got)
	}
	// 20 与 30 分数相同，按 ID 升序
	pos := map[int64]int{}
	for i, s := range got {
		pos[s.ID] = i
	}
	if pos[20] > pos[30] {
		t.Errorf("tie not broken by ascending id: %v", got)
	}

	top2, err := RecommendForUser(1, model.Interaction(), model.UserSimilarity(), 2)
	if err != nil {
		t.Fatalf("RecommendForUser(top 2) error = %v", err)
	}
	if len(top2) != 2 || !reflect.DeepEqual(top2, got[:2]) {
		t.Errorf("top 2 = %v, want prefix of %v", top2, got)
	}
}

func TestRecommendForUser_IsolatedUser(t *testing.T) {
	ratings := append(scenarioRatings(), core.Rating{UserID: 4, ItemID: 30, Value: 2.0})
	model := buildModel(t, ratings)

	got, err := RecommendForUser(4, model.Interaction(), model.UserSimilarity(), 5)
	if err != nil {
		t.Fatalf("RecommendForUser(4) error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("RecommendForUser(4) = %v, want empty", got)
	}
}

func TestTopN_Bounds(t *testing.T) {
	var ratings []core.Rating
	ratings = append(ratings, core.Rating{UserID: 1, ItemID: 1, Value: 4})
	for item := int64(1); item <= 10; item++ {
		ratings = append(ratings, core.Rating{UserID: 2, ItemID: item, Value: 3})
	}
	model := buildModel(t, ratings)
	scenario := buildModel(t, scenarioRatings())

	recommend := func(n int) ([]core.Scored, error) {
		return RecommendForUser(1, model.Interaction(), model.UserSimilarity(), n)
	}
	similar := func(n int) ([]core.Scored, error) {
		return SimilarItems(10, scenario.ItemSimilarity(), n)
	}
	history := func(n int) ([]core.Scored, error) {
		return RecommendFromHistory(1, model.Interaction(), model.ItemSimilarity(), n)
	}

	tests := []struct {
		name    string
		run     func(int) ([]core.Scored, error)
		topN    int
		want    []int64
		wantErr bool
	}{
		{name: "user zero", run: recommend, topN: 0, want: []int64{}},
		{name: "user three", run: recommend, topN: 3, want: []int64{2, 3, 4}},
		{name: "user negative", run: recommend, topN: -1, wantErr: true},
		{name: "similar zero", run: similar, topN: 0, want: []int64{}},
		{name: "similar one", run: similar, topN: 1, want: []int64{20}},
		{name: "similar negative", run: similar, topN: -5, wantErr: true},
		{name: "history zero", run: history, topN: 0, want: []int64{}},
		{name: "history negative", run: history, topN: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run(tt.topN)
			if tt.wantErr {
				if !core.IsInvalidInput(err) {
					t.Fatalf("error = %v, want invalid input", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if len(got) > tt.topN {
				t.Fatalf("top_n=%d returned %d entries", tt.topN, len(got))
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("ids = %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestRecommendForUser_UnknownUser(t *testing.T) {
	model := buildModel(t, scenarioRatings())
	_, err := RecommendForUser(99, model.Interaction(), model.UserSimilarity(), 5)
	if !core.IsUnknownEntity(err) {
		t.Fatalf("error = %v, want unknown entity", err)
	}
}

func TestAccumulate(t *testing.T) {
	// 行 [1 0 2] 与 [0 4 2]
	m, err := matrix.Build([]core.Rating{
		{UserID: 1, ItemID: 1, Value: 1},
		{UserID: 1, ItemID: 3, Value: 2},
		{UserID: 2, ItemID: 2, Value: 4},
		{UserID: 2, ItemID: 3, Value: 2},
	})
	if err != nil {
		t.Fatalf("matrix.Build() error = %v", err)
	}
	weighted, sum := accumulate([]neighbour{
		{row: m.RowView(0), sim: 0.5},
		{row: m.RowView(1), sim: 0.25},
	}, 3)
	if want := []float64{0.5, 1, 1.5}; !reflect.DeepEqual(weighted, want) {
		t.Errorf("weighted = %v, want %v", weighted, want)
	}
	if sum != 0.75 {
		t.Errorf("sum = %v, want 0.75", sum)
	}

	weighted, sum = accumulate(nil, 2)
	if sum != 0 || !reflect.DeepEqual(weighted, []float64{0, 0}) {
		t.Errorf("empty fold = %v, %v", weighted, sum)
	}
}

func TestSimilarItems(t *testing.T) {
	ratings := append(scenarioRatings(),
		core.Rating{UserID: 3, ItemID: 30, Value: 4.0},
		core.Rating{UserID: 4, ItemID: 40, Value: 2.0},
	)
	model := buildModel(t, ratings)

	got, err := SimilarItems(10, model.ItemSimilarity(), 10)
	if err != nil {
		t.Fatalf("SimilarItems() error = %v", err)
	}
	assertOrdered(t, got)
	for _, s := range got {
		if s.ID == 10 {
			t.Fatalf("result contains query item: %v", got)
		}
	}
	if len(got) != 3 {
		t.Fatalf("SimilarItems() = %v, want 3 neighbours", got)
	}
	if got[0].ID != 20 {
		t.Errorf("nearest neighbour = %d, want 20", got[0].ID)
	}
	// 40 与 10 没有共同用户，相似度 0 排在最后
	if last := got[len(got)-1]; last.ID != 40 || last.Score != 0 {
		t.Errorf("last = %v, want {40 0}", last)
	}

	one, err := SimilarItems(10, model.ItemSimilarity(), 1)
	if err != nil {
		t.Fatalf("SimilarItems(top 1) error = %v", err)
	}
	if !reflect.DeepEqual(one, got[:1]) {
		t.Errorf("top 1 = %v, want %v", one, got[:1])
	}

	if _, err := SimilarItems(99, model.ItemSimilarity(), 5); !core.IsUnknownEntity(err) {
		t.Errorf("SimilarItems(99) error = %v, want unknown entity", err)
	}
}

func TestRecommendFromHistory(t *testing.T) {
	model := buildModel(t, scenarioRatings())

	got, err := RecommendFromHistory(3, model.Interaction(), model.ItemSimilarity(), 5)
	if err != nil {
		t.Fatalf("RecommendFromHistory() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != 20 {
		t.Fatalf("RecommendFromHistory(3) = %v, want item 20", got)
	}
	// 只有一个种子物品时，加权平均退化为该种子的评分
	if math.Abs(got[0].Score-1.0) > 1e-9 {
		t.Errorf("score = %v, want 1.0", got[0].Score)
	}

	if _, err := RecommendFromHistory(99, model.Interaction(), model.ItemSimilarity(), 5); !core.IsUnknownEntity(err) {
		t.Errorf("unknown user error = %v", err)
	}
}
