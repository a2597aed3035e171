package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rushteam/movierec/catalog"
)

func printRecommendations(cmd *cobra.Command, header string, recs []catalog.Recommendation, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(header)
	if len(recs) == 0 {
		cmd.Println("  (no recommendations)")
		return nil
	}
	for i, r := range recs {
		cmd.Printf("  [%d] %-6d %s (%.4f)\n", i+1, r.MovieID, r.Title, r.Score)
	}
	return nil
}
