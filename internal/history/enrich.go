package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/showdeck/showdeck/internal/metadata"
	"github.com/showdeck/showdeck/pkg/types"
)

// ErrConnectionCheck aborts a whole enrichment run when the metadata API
// is unreachable before the fan-out even starts. Per-item failures never
// surface as this error.
var ErrConnectionCheck = errors.New("metadata connectivity check failed")

// MetadataSource is the slice of the metadata client enrichment needs.
type MetadataSource interface {
	Details(ctx context.Context, mediaType types.MediaType, id string) (*metadata.Details, error)
	Episode(ctx context.Context, id string, season, episode int) (*metadata.Episode, error)
	Ping(ctx context.Context) error
}

// EnrichedItem is a history record joined with remote metadata. When
// enrichment failed the slot survives with FailedToLoad set and a
// synthetic title, never silently disappearing from the list.
type EnrichedItem struct {
	Item

	Overview     string
	PosterPath   string
	Runtime      int
	Year         string
	EpisodeTitle string
	EpisodeAired string
	FailedToLoad bool
}

// Enricher fans history records out to the metadata API.
type Enricher struct {
	meta        MetadataSource
	concurrency int
	logger      *slog.Logger
}

// NewEnricher creates an enricher. concurrency bounds the number of
// records enriched at once.
func NewEnricher(meta MetadataSource, concurrency int, logger *slog.Logger) *Enricher {
	if concurrency <= 0 {
		concurrency = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{meta: meta, concurrency: concurrency, logger: logger}
}

// EnrichHistory joins every input record with remote metadata. The output
// always has exactly one record per input, in input order; a record whose
// fetches fail becomes a placeholder instead of being dropped. Only the
// up-front connectivity check can fail the whole call.
func (e *Enricher) EnrichHistory(ctx context.Context, items []Item) ([]EnrichedItem, error) {
	if err := e.meta.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionCheck, err)
	}

	out := make([]EnrichedItem, len(items))
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item Item) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out[i] = e.enrichOne(ctx, item)
		}(i, item)
	}
	wg.Wait()

	return out, nil
}

func (e *Enricher) enrichOne(ctx context.Context, item Item) EnrichedItem {
	details, err := e.meta.Details(ctx, item.MediaType, item.MediaID)
	if err != nil {
		e.logger.Warn("history enrichment failed",
			"media_id", item.MediaID,
			"media_type", item.MediaType,
			"error", err,
		)
		return placeholder(item)
	}

	enriched := EnrichedItem{
		Item:       item,
		Overview:   details.Overview,
		PosterPath: details.PosterPath,
		Runtime:    details.Runtime,
		Year:       details.Year(),
	}
	if title := details.DisplayTitle(); title != "" {
		enriched.Title = title
	}

	// Episode extras are best effort: a failed episode lookup keeps the
	// primary metadata instead of failing the record
	if item.MediaType == types.MediaTypeTV && item.Episode > 0 {
		ep, err := e.meta.Episode(ctx, item.MediaID, item.Season, item.Episode)
		if err != nil {
			e.logger.Warn("episode enrichment degraded",
				"media_id", item.MediaID,
				"season", item.Season,
				"episode", item.Episode,
				"error", err,
			)
		} else {
			enriched.EpisodeTitle = ep.Name
			enriched.EpisodeAired = ep.AirDate
			if ep.Runtime > 0 {
				enriched.Runtime = ep.Runtime
			}
		}
	}

	return enriched
}

func placeholder(item Item) EnrichedItem {
	enriched := EnrichedItem{Item: item, FailedToLoad: true}
	if enriched.Title == "" {
		enriched.Title = fmt.Sprintf("Unavailable title (%s %s)", item.MediaType, item.MediaID)
	}
	return enriched
}
