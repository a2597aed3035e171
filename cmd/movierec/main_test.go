package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/movierec/catalog"
)

const testRatings = `userId,movieId,rating,timestamp
1,10,5.0,964982703
1,20,3.0,964981247
2,10,4.0,964982224
2,20,5.0,964983815
3,10,1.0,964982931
`

const testMovies = `movieId,title,genres
10,Toy Story (1995),Adventure|Animation
20,Jumanji (1995),Adventure|Fantasy
`

func writeData(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	ratings := filepath.Join(dir, "ratings.csv")
	movies := filepath.Join(dir, "movies.csv")
	require.NoError(t, os.WriteFile(ratings, []byte(testRatings), 0o644))
	require.NoError(t, os.WriteFile(movies, []byte(testMovies), 0o644))
	return ratings, movies
}

// resetFlags 把所有命令的 flag 恢复为默认值，避免用例之间相互影响。
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Setenv("MOVIEREC_CONFIG", "")
	t.Setenv("MOVIEREC_LOG_LEVEL", "disabled")
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestDemoCmd(t *testing.T) {
	ratings, movies := writeData(t)
	out, err := execute(t, "demo", "--ratings", ratings, "--movies", movies)
	require.NoError(t, err)

	assert.Contains(t, out, "Loaded 5 ratings from 3 users on 2 movies (metric cosine).")
	assert.Contains(t, out, "User-based recommendations for user 1:")
	assert.Contains(t, out, "(no recommendations)")
	assert.Contains(t, out, "Movies similar to 10 Toy Story (1995):")
	assert.Contains(t, out, "Jumanji (1995)")
}

func TestRecommendCmd_JSON(t *testing.T) {
	ratings, movies := writeData(t)
	out, err := execute(t, "recommend", "3", "--json", "-n", "3", "--ratings", ratings, "--movies", movies)
	require.NoError(t, err)

	var recs []catalog.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, int64(20), recs[0].MovieID)
	assert.Equal(t, "Jumanji (1995)", recs[0].Title)
	assert.Greater(t, recs[0].Score, 0.0)
}

func TestRecommendCmd_ItemBased(t *testing.T) {
	ratings, movies := writeData(t)
	out, err := execute(t, "recommend", "3", "--item-based", "--ratings", ratings, "--movies", movies)
	require.NoError(t, err)
	assert.Contains(t, out, "Recommendations for user 3:")
	assert.Contains(t, out, "Jumanji (1995)")
}

func TestCmdErrors(t *testing.T) {
	ratings, movies := writeData(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown user", []string{"recommend", "99", "--ratings", ratings, "--movies", movies}},
		{"unknown movie", []string{"similar", "99", "--ratings", ratings, "--movies", movies}},
		{"bad id", []string{"similar", "abc", "--ratings", ratings, "--movies", movies}},
		{"bad metric", []string{"demo", "--metric", "jaccard", "--ratings", ratings, "--movies", movies}},
		{"missing file", []string{"demo", "--ratings", filepath.Join(t.TempDir(), "none.csv"), "--movies", movies}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}
