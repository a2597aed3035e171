package dataset

import (
	"context"
	"fmt"
	"os"

	"github.com/rushteam/movierec/core"
)

// Files 从本地 CSV 文件读取评分与电影元数据，实现 core.RatingSource 与 core.CatalogSource。
//
// MaxUsers > 0 时只保留 user ID 最小的 MaxUsers 个用户，以及这些用户评过的电影，
// 用来把稠密矩阵控制在可计算的规模内。
type Files struct {
	RatingsPath string
	MoviesPath  string
	MaxUsers    int
}

func (f *Files) Name() string { return "csv" }

// LoadRatings 读取并过滤评分。
func (f *Files) LoadRatings(ctx context.Context) ([]core.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.RatingsPath)
	if err != nil {
		return nil, fmt.Errorf("dataset: open ratings: %w", err)
	}
	defer file.Close()

	ratings, err := ParseRatings(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.RatingsPath, err)
	}
	return FilterTopUsers(ratings, f.MaxUsers), nil
}

// LoadMovies 读取电影元数据；MaxUsers > 0 时只保留被保留用户评过的电影。
func (f *Files) LoadMovies(ctx context.Context) ([]core.Movie, error) {
	if f.MoviesPath == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.MoviesPath)
	if err != nil {
		return nil, fmt.Errorf("dataset: open movies: %w", err)
	}
	defer file.Close()

	movies, err := ParseMovies(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.MoviesPath, err)
	}
	if f.MaxUsers <= 0 {
		return movies, nil
	}
	ratings, err := f.LoadRatings(ctx)
	if err != nil {
		return nil, err
	}
	return FilterMovies(movies, ratings), nil
}

// Paths 返回需要监听变化的文件路径。
func (f *Files) Paths() []string {
	var out []string
	for _, p := range []string{f.RatingsPath, f.MoviesPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	_ core.RatingSource  = (*Files)(nil)
	_ core.CatalogSource = (*Files)(nil)
)
