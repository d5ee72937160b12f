package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/showdeck/showdeck/internal/history"
	"github.com/showdeck/showdeck/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Watch history and resume progress",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watch history, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		mediaType, _ := cmd.Flags().GetString("type")
		plain, _ := cmd.Flags().GetBool("no-enrich")

		filter := history.FilterOptions{Limit: limit, SortBy: history.SortRecentFirst}
		if mediaType != "" {
			mt, err := types.ParseMediaType(mediaType)
			if err != nil {
				return err
			}
			filter.MediaType = mt
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		items, err := app.history.Recent(filter)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No watch history yet.")
			return nil
		}

		if plain {
			for _, item := range items {
				fmt.Println(renderHistoryItem(history.EnrichedItem{Item: item}))
			}
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		enriched, err := defaultEnricher(app).EnrichHistory(ctx, items)
		if err != nil {
			if errors.Is(err, history.ErrConnectionCheck) {
				return fmt.Errorf("metadata service unreachable, check your connection and retry (or use --no-enrich): %w", err)
			}
			return err
		}

		for _, item := range enriched {
			fmt.Println(renderHistoryItem(item))
		}
		return nil
	},
}

var historyRecordCmd = &cobra.Command{
	Use:   "record <movie|tv> <id>",
	Short: "Record playback progress for a title",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mediaType, err := types.ParseMediaType(args[0])
		if err != nil {
			return err
		}
		season, _ := cmd.Flags().GetInt("season")
		episode, _ := cmd.Flags().GetInt("episode")
		progress, _ := cmd.Flags().GetInt("progress")
		duration, _ := cmd.Flags().GetInt("duration")
		completed, _ := cmd.Flags().GetBool("completed")
		title, _ := cmd.Flags().GetString("title")

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		if title == "" {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if details, dErr := app.meta.Details(ctx, mediaType, args[1]); dErr == nil {
				title = details.DisplayTitle()
			}
		}

		return app.history.RecordProgress(history.Item{
			MediaID:         args[1],
			MediaType:       mediaType,
			Title:           title,
			Season:          season,
			Episode:         episode,
			ProgressSeconds: progress,
			DurationSeconds: duration,
			Completed:       completed,
		})
	},
}

var historySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push local watch progress to your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		sess, err := app.requireSession()
		if err != nil {
			return err
		}

		items, err := app.history.Unsynced()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("Already in sync.")
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		pushed := 0
		for _, item := range items {
			if err := app.backend.PushProgress(ctx, sess, item); err != nil {
				logger.Warn("progress push failed", "media_id", item.MediaID, "error", err)
				continue
			}
			if err := app.history.MarkSynced(item.ID); err != nil {
				return err
			}
			pushed++
		}

		fmt.Printf("Pushed %d of %d items.\n", pushed, len(items))
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show watch statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		stats, err := app.history.GetStats()
		if err != nil {
			return err
		}

		fmt.Printf("Items watched:  %d\n", stats.TotalItems)
		fmt.Printf("Watch time:     %s\n", stats.TotalWatchTime.Round(time.Minute))
		fmt.Printf("Movies:         %d\n", stats.MovieCount)
		fmt.Printf("Shows:          %d\n", stats.TVCount)
		fmt.Printf("Completed:      %d\n", stats.CompletedCount)
		return nil
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove one history row by ID",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid history id %q", args[0])
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		return app.history.DeleteByID(uint(id))
	},
}

var historyCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop stale incomplete history rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		return app.history.Cleanup()
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 25, "maximum rows to list (0 = all)")
	historyListCmd.Flags().String("type", "", "filter by media type (movie or tv)")
	historyListCmd.Flags().Bool("no-enrich", false, "skip metadata enrichment")

	historyRecordCmd.Flags().Int("season", 0, "season number")
	historyRecordCmd.Flags().Int("episode", 0, "episode number")
	historyRecordCmd.Flags().Int("progress", 0, "progress in seconds")
	historyRecordCmd.Flags().Int("duration", 0, "total duration in seconds")
	historyRecordCmd.Flags().Bool("completed", false, "mark the watch as finished")
	historyRecordCmd.Flags().String("title", "", "title override (skips the metadata lookup)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyRecordCmd)
	historyCmd.AddCommand(historySyncCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyRemoveCmd)
	historyCmd.AddCommand(historyCleanupCmd)
}
