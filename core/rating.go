package core

import "sort"

// DefaultTopN 是 CLI 与 HTTP 在调用方未指定 top_n 时填入的数量，核心函数不做替换。
const DefaultTopN = 5

// Rating 是一条历史评分记录：(user, item, rating)。
// 同一 (UserID, ItemID) 最多一条；重复记录由矩阵构建策略处理。
type Rating struct {
	UserID int64   `json:"user_id"`
	ItemID int64   `json:"item_id"`
	Value  float64 `json:"rating"`
}

// Movie 是物品元数据，只被结果解析（标题回填）使用，不参与核心算法。
type Movie struct {
	ID     int64    `json:"movie_id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres,omitempty"`
}

// Scored 是推荐结果条目：ID（物品或用户）+ 分数。
type Scored struct {
	ID    int64   `json:"id"`
	Score float64 `json:"score"`
}

// SortScored 按分数降序排序，分数相同时按 ID 升序，保证结果可复现。
func SortScored(s []Scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].ID < s[j].ID
	})
}

// TopN 排序并截断到前 n 个；n <= 0 时返回空结果。
func TopN(s []Scored, n int) []Scored {
	if n <= 0 {
		return []Scored{}
	}
	SortScored(s)
	if len(s) > n {
		s = s[:n]
	}
	return s
}
