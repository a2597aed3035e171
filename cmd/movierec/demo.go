package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/movierec/core"
)

var demoTopN int

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Recommend for the first user and find movies similar to the first movie",
	Long: `Loads the ratings, builds both similarity matrices and prints
the user-based recommendations for the smallest user ID and the
movies most similar to the smallest movie ID.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().IntVarP(&demoTopN, "top-n", "n", core.DefaultTopN, "number of results")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, _ []string) error {
	rt, err := setup(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	snap, err := rt.engine.Snapshot()
	if err != nil {
		return err
	}
	st := snap.Stats()
	cmd.Printf("Loaded %d ratings from %d users on %d movies (metric %s).\n", st.Ratings, st.Users, st.Items, st.Metric)

	m := snap.Interaction()
	if len(m.Users()) == 0 {
		cmd.Println("No ratings.")
		return nil
	}
	user, movie := m.Users()[0], m.Items()[0]

	cmd.Println()
	scored, err := rt.engine.RecommendForUser(user, demoTopN)
	if err != nil {
		return err
	}
	if err := printRecommendations(cmd, fmt.Sprintf("User-based recommendations for user %d:", user),
		rt.catalog.Resolve(scored), false); err != nil {
		return err
	}

	cmd.Println()
	scored, err = rt.engine.SimilarItems(movie, demoTopN)
	if err != nil {
		return err
	}
	return printRecommendations(cmd, fmt.Sprintf("Movies similar to %d %s:", movie, rt.catalog.Title(movie)),
		rt.catalog.Resolve(scored), false)
}
