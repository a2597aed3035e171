package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rushteam/movierec/core"
)

var (
	recommendTopN     int
	recommendJSON     bool
	recommendItemBase bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend [userID]",
	Short: "Recommend movies for a user",
	Long: `Predicts ratings for the movies the user has not rated from the
ratings of positively similar users (user-based), or from the movies
the user already rated (--item-based).`,
	Args: cobra.ExactArgs(1),
	RunE: runRecommend,
}

var (
	similarTopN int
	similarJSON bool
)

var similarCmd = &cobra.Command{
	Use:   "similar [movieID]",
	Short: "Find movies similar to a movie",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func init() {
	recommendCmd.Flags().IntVarP(&recommendTopN, "top-n", "n", core.DefaultTopN, "number of results")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "output results as JSON")
	recommendCmd.Flags().BoolVar(&recommendItemBase, "item-based", false, "aggregate item similarity over the user's rated movies")
	rootCmd.AddCommand(recommendCmd)

	similarCmd.Flags().IntVarP(&similarTopN, "top-n", "n", core.DefaultTopN, "number of results")
	similarCmd.Flags().BoolVar(&similarJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(similarCmd)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	userID, err := parseID(args[0], "user ID")
	if err != nil {
		return err
	}
	rt, err := setup(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	var scored []core.Scored
	if recommendItemBase {
		snap, err := rt.engine.Snapshot()
		if err != nil {
			return err
		}
		scored, err = snap.RecommendFromHistory(userID, recommendTopN)
		if err != nil {
			return err
		}
	} else {
		scored, err = rt.engine.RecommendForUser(userID, recommendTopN)
		if err != nil {
			return err
		}
	}
	return printRecommendations(cmd, fmt.Sprintf("Recommendations for user %d:", userID),
		rt.catalog.Resolve(scored), recommendJSON)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	movieID, err := parseID(args[0], "movie ID")
	if err != nil {
		return err
	}
	rt, err := setup(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	scored, err := rt.engine.SimilarItems(movieID, similarTopN)
	if err != nil {
		return err
	}
	return printRecommendations(cmd, fmt.Sprintf("Movies similar to %d %s:", movieID, rt.catalog.Title(movieID)),
		rt.catalog.Resolve(scored), similarJSON)
}
