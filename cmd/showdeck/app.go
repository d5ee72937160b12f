package main

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/showdeck/showdeck/internal/auth"
	"github.com/showdeck/showdeck/internal/backend"
	"github.com/showdeck/showdeck/internal/database"
	"github.com/showdeck/showdeck/internal/history"
	"github.com/showdeck/showdeck/internal/library"
	"github.com/showdeck/showdeck/internal/metadata"
	"github.com/showdeck/showdeck/internal/notify"
)

// app wires the core components for one CLI invocation.
type app struct {
	db       *gorm.DB
	sessions *auth.Manager
	backend  *backend.Client
	meta     *metadata.Client
	notifier notify.Notifier
	store    *library.Store
	cache    *library.Cache
	history  *history.Service

	cacheCancel func()
	cacheDone   chan struct{}
}

// newApp builds the component graph and starts the snapshot follower
// that mirrors the favorites store into the local cache.
func newApp() (*app, error) {
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}

	sessions := auth.NewManager(
		auth.NewTokenStorage(db),
		cfg.Backend.BaseURL+"/auth/cli",
	)
	backendClient := backend.NewClient(&cfg.Backend, logger)
	metaClient := metadata.NewClient(&cfg.Metadata, logger)

	notifier := notify.Multi{
		notify.NewTerminal(os.Stderr),
		notify.NewLogger(logger),
	}

	store := library.NewStore(sessions, backendClient, notifier, logger)
	cache := library.NewCache(db, logger)

	snapshots, cancel := store.Subscribe()
	done := make(chan struct{})
	go func() {
		cache.Follow(snapshots)
		close(done)
	}()

	return &app{
		db:          db,
		sessions:    sessions,
		backend:     backendClient,
		meta:        metaClient,
		notifier:    notifier,
		store:       store,
		cache:       cache,
		history:     history.NewService(db),
		cacheCancel: cancel,
		cacheDone:   done,
	}, nil
}

// Close settles in-flight remote calls and flushes the snapshot follower
// before the process exits.
func (a *app) Close() {
	a.store.Flush()
	a.cacheCancel()
	<-a.cacheDone
	_ = database.Close(a.db)
}

// seedStore fills the favorites store from the backend when signed in,
// falling back to the local cache so lists still render offline.
func (a *app) seedStore(ctx context.Context) error {
	if sess, ok := a.sessions.Current(); ok {
		entries, err := a.backend.ListFavorites(ctx, sess)
		if err == nil {
			a.store.Seed(entries)
			return nil
		}
		logger.Warn("favorites fetch failed, using local cache", "error", err)
	}

	entries, err := a.cache.Load()
	if err != nil {
		return fmt.Errorf("failed to load cached favorites: %w", err)
	}
	a.store.Seed(entries)
	return nil
}

// requireSession returns the current session or a sign-in hint.
func (a *app) requireSession() (auth.Session, error) {
	sess, ok := a.sessions.Current()
	if !ok {
		return auth.Session{}, fmt.Errorf("not signed in; run `showdeck auth login` first")
	}
	return sess, nil
}

func defaultEnricher(a *app) *history.Enricher {
	return history.NewEnricher(a.meta, cfg.Advanced.EnrichConcurrency, logger)
}
