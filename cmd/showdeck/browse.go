package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/showdeck/showdeck/internal/library"
	"github.com/showdeck/showdeck/internal/metadata"
	"github.com/showdeck/showdeck/pkg/types"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse and search the catalog",
}

var browseTrendingCmd = &cobra.Command{
	Use:   "trending [movie|tv]",
	Short: "Show what's trending today",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mediaType := types.MediaTypeMovie
		if len(args) == 1 {
			mt, err := types.ParseMediaType(args[0])
			if err != nil {
				return err
			}
			mediaType = mt
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		// Cached favorites are enough for the membership stars
		if entries, cErr := app.cache.Load(); cErr == nil {
			app.store.Seed(entries)
		}

		page, err := app.meta.Trending(ctx, mediaType)
		if err != nil {
			return fmt.Errorf("trending lookup failed: %w", err)
		}

		printResults(app, mediaType, page.Results)
		return nil
	},
}

var browseSearchCmd = &cobra.Command{
	Use:   "search <movie|tv> <query>",
	Short: "Search the catalog by title",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mediaType, err := types.ParseMediaType(args[0])
		if err != nil {
			return err
		}
		query := args[1]
		for _, extra := range args[2:] {
			query += " " + extra
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if entries, cErr := app.cache.Load(); cErr == nil {
			app.store.Seed(entries)
		}

		page, err := app.meta.Search(ctx, mediaType, query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(page.Results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		printResults(app, mediaType, page.Results)
		return nil
	},
}

func printResults(app *app, mediaType types.MediaType, results []metadata.Details) {
	for _, d := range results {
		key := library.Key{
			MediaID:   strconv.FormatInt(d.ID, 10),
			MediaType: mediaType,
		}
		fmt.Println(renderSearchResult(d, app.store.IsMember(key)))
	}
}

func init() {
	browseCmd.AddCommand(browseTrendingCmd)
	browseCmd.AddCommand(browseSearchCmd)
}
