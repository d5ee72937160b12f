package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/showdeck/showdeck/internal/history"
	"github.com/showdeck/showdeck/internal/library"
)

// exportDoc is the on-disk shape of an export.
type exportDoc struct {
	ExportedAt time.Time       `json:"exported_at" yaml:"exported_at"`
	Favorites  []exportFavorite `json:"favorites" yaml:"favorites"`
	History    []exportHistory  `json:"history" yaml:"history"`
}

type exportFavorite struct {
	MediaID   string    `json:"media_id" yaml:"media_id"`
	MediaType string    `json:"media_type" yaml:"media_type"`
	Title     string    `json:"title" yaml:"title"`
	Season    int       `json:"season,omitempty" yaml:"season,omitempty"`
	Episode   int       `json:"episode,omitempty" yaml:"episode,omitempty"`
	AddedAt   time.Time `json:"added_at" yaml:"added_at"`
}

type exportHistory struct {
	MediaID         string    `json:"media_id" yaml:"media_id"`
	MediaType       string    `json:"media_type" yaml:"media_type"`
	Title           string    `json:"title" yaml:"title"`
	Season          int       `json:"season,omitempty" yaml:"season,omitempty"`
	Episode         int       `json:"episode,omitempty" yaml:"episode,omitempty"`
	ProgressSeconds int       `json:"progress_seconds" yaml:"progress_seconds"`
	DurationSeconds int       `json:"duration_seconds" yaml:"duration_seconds"`
	WatchedAt       time.Time `json:"watched_at" yaml:"watched_at"`
	Completed       bool      `json:"completed" yaml:"completed"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export favorites and history as YAML or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("output")

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.seedStore(ctx); err != nil {
			return err
		}

		items, err := app.history.Recent(history.FilterOptions{})
		if err != nil {
			return err
		}

		doc := buildExport(app.store.Snapshot(), items)

		var data []byte
		switch format {
		case "json":
			data, err = json.MarshalIndent(doc, "", "  ")
		case "yaml", "yml":
			data, err = yaml.Marshal(doc)
		default:
			return fmt.Errorf("unknown format %q (want yaml or json)", format)
		}
		if err != nil {
			return fmt.Errorf("failed to encode export: %w", err)
		}

		if outPath == "" || outPath == "-" {
			_, err = os.Stdout.Write(data)
			return err
		}
		return os.WriteFile(outPath, data, 0644)
	},
}

func buildExport(favorites []library.Entry, items []history.Item) exportDoc {
	doc := exportDoc{ExportedAt: time.Now()}

	for _, e := range favorites {
		doc.Favorites = append(doc.Favorites, exportFavorite{
			MediaID:   e.MediaID,
			MediaType: string(e.MediaType),
			Title:     e.Title,
			Season:    e.Season,
			Episode:   e.Episode,
			AddedAt:   e.AddedAt,
		})
	}
	for _, item := range items {
		doc.History = append(doc.History, exportHistory{
			MediaID:         item.MediaID,
			MediaType:       string(item.MediaType),
			Title:           item.Title,
			Season:          item.Season,
			Episode:         item.Episode,
			ProgressSeconds: item.ProgressSeconds,
			DurationSeconds: item.DurationSeconds,
			WatchedAt:       item.WatchedAt,
			Completed:       item.Completed,
		})
	}
	return doc
}

func init() {
	exportCmd.Flags().String("format", "yaml", "output format (yaml or json)")
	exportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")
}
