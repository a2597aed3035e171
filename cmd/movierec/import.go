package main

import (
	"github.com/spf13/cobra"

	"github.com/rushteam/movierec/store"
)

var importClear bool

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy ratings from the CSV files into Redis",
	Long: `Reads data.ratings_path (after the max-users filter) and writes the
ratings to the Redis rating store configured in the redis section,
so that data.source=redis can serve them.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&importClear, "clear", false, "delete existing ratings under the prefix first")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	app, err := loadApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	ratings, err := app.CSVFiles().LoadRatings(ctx)
	if err != nil {
		return err
	}

	rs, err := store.NewRedisRatingStore(app.Redis.Addr, app.Redis.DB, app.Redis.Prefix)
	if err != nil {
		return err
	}
	defer rs.Close()

	if importClear {
		if err := rs.Clear(ctx); err != nil {
			return err
		}
	}
	if err := rs.SaveRatings(ctx, ratings); err != nil {
		return err
	}
	cmd.Printf("Imported %d ratings into redis %s (prefix %q).\n", len(ratings), app.Redis.Addr, app.Redis.Prefix)
	return nil
}
