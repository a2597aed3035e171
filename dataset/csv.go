// Package dataset 读取 MovieLens 格式的 CSV 文件（ratings.csv / movies.csv）。
//
// 列按表头名定位，顺序无关：
//   - ratings.csv: userId, movieId, rating（timestamp 等其余列忽略）
//   - movies.csv:  movieId, title, genres（genres 可选，以 '|' 分隔）
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rushteam/movierec/core"
)

// DefaultMaxUsers 是默认保留的用户数（按 user ID 升序取前 N 个）。
const DefaultMaxUsers = 500

// noGenres 是 MovieLens 中"无类型"的占位值。
const noGenres = "(no genres listed)"

var (
	userColumns  = []string{"userid", "user_id", "user"}
	itemColumns  = []string{"movieid", "movie_id", "itemid", "item_id", "item"}
	ratingColumn = []string{"rating", "score", "value"}
	titleColumns = []string{"title", "name"}
	genreColumns = []string{"genres", "genre"}
)

// ParseRatings 解析评分 CSV。
func ParseRatings(r io.Reader) ([]core.Rating, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, headerError("ratings", err)
	}
	cols := columnIndex(header)
	ui, err := requireColumn(cols, "ratings", userColumns)
	if err != nil {
		return nil, err
	}
	ii, err := requireColumn(cols, "ratings", itemColumns)
	if err != nil {
		return nil, err
	}
	ri, err := requireColumn(cols, "ratings", ratingColumn)
	if err != nil {
		return nil, err
	}

	var out []core.Rating
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError("ratings", err)
		}
		line, _ := cr.FieldPos(0)
		userID, err := parseID(rec[ui], "ratings", line, "user id")
		if err != nil {
			return nil, err
		}
		itemID, err := parseID(rec[ii], "ratings", line, "movie id")
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[ri]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
				fmt.Sprintf("dataset: ratings line %d: bad rating %q", line, rec[ri]))
		}
		out = append(out, core.Rating{UserID: userID, ItemID: itemID, Value: v})
	}
	return out, nil
}

// ParseMovies 解析电影元数据 CSV。
func ParseMovies(r io.Reader) ([]core.Movie, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, headerError("movies", err)
	}
	cols := columnIndex(header)
	ii, err := requireColumn(cols, "movies", itemColumns)
	if err != nil {
		return nil, err
	}
	ti, err := requireColumn(cols, "movies", titleColumns)
	if err != nil {
		return nil, err
	}
	gi := findColumn(cols, genreColumns)

	var out []core.Movie
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError("movies", err)
		}
		line, _ := cr.FieldPos(0)
		id, err := parseID(rec[ii], "movies", line, "movie id")
		if err != nil {
			return nil, err
		}
		mv := core.Movie{ID: id, Title: strings.TrimSpace(rec[ti])}
		if gi >= 0 {
			mv.Genres = splitGenres(rec[gi])
		}
		out = append(out, mv)
	}
	return out, nil
}

// FilterTopUsers 只保留 user ID 最小的 n 个用户的评分；n <= 0 表示不过滤。
// 保持输入顺序。
func FilterTopUsers(ratings []core.Rating, n int) []core.Rating {
	if n <= 0 {
		return ratings
	}
	seen := make(map[int64]struct{})
	for _, r := range ratings {
		seen[r.UserID] = struct{}{}
	}
	if len(seen) <= n {
		return ratings
	}
	users := make([]int64, 0, len(seen))
	for id := range seen {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	keep := make(map[int64]struct{}, n)
	for _, id := range users[:n] {
		keep[id] = struct{}{}
	}

	out := make([]core.Rating, 0, len(ratings))
	for _, r := range ratings {
		if _, ok := keep[r.UserID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// FilterMovies 只保留在 ratings 中出现过的电影。
func FilterMovies(movies []core.Movie, ratings []core.Rating) []core.Movie {
	rated := make(map[int64]struct{})
	for _, r := range ratings {
		rated[r.ItemID] = struct{}{}
	}
	out := make([]core.Movie, 0, len(rated))
	for _, m := range movies {
		if _, ok := rated[m.ID]; ok {
			out = append(out, m)
		}
	}
	return out
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	return cr
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := cols[h]; !ok {
			cols[h] = i
		}
	}
	return cols
}

func findColumn(cols map[string]int, names []string) int {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i
		}
	}
	return -1
}

func requireColumn(cols map[string]int, file string, names []string) (int, error) {
	if i := findColumn(cols, names); i >= 0 {
		return i, nil
	}
	return -1, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
		fmt.Sprintf("dataset: %s: missing column %q", file, names[0]))
}

func parseID(raw, file string, line int, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: %s line %d: bad %s %q", file, line, what, raw))
	}
	return id, nil
}

func splitGenres(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == noGenres {
		return nil
	}
	parts := strings.Split(raw, "|")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func headerError(file string, err error) error {
	if errors.Is(err, io.EOF) {
		return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: %s: empty file", file))
	}
	return parseError(file, err)
}

func parseError(file string, err error) error {
	return core.NewDomainError(core.ModuleDataset, core.ErrorCodeInvalidInput,
		fmt.Sprintf("dataset: %s: %v", file, err))
}
