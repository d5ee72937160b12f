// Package library implements the favorites store: an observable in-memory
// membership index plus ordered entry list, mutated optimistically and
// reconciled against the remote backend.
//
// Every operation applies its local change synchronously, publishes the
// new snapshot to subscribers, then settles the matching remote call on a
// goroutine. A failed remote call rolls back only the affected key, so
// unrelated mutations that landed in the meantime survive.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/showdeck/showdeck/internal/auth"
	"github.com/showdeck/showdeck/internal/notify"
)

// ErrUnauthenticated is returned when an operation needs an identity and
// none is present.
var ErrUnauthenticated = errors.New("not signed in")

// ErrRemoteMutation tags remote insert/delete failures in logs. It never
// reaches the caller; the caller already moved on when the remote settles.
var ErrRemoteMutation = errors.New("remote mutation failed")

// RemoteMutator is the persistence collaborator. Calls are matched by the
// full composite key so episode-level favorites delete precisely.
type RemoteMutator interface {
	InsertFavorite(ctx context.Context, sess auth.Session, entry Entry) error
	DeleteFavorite(ctx context.Context, sess auth.Session, key Key) error
}

// keyState is the per-key lifecycle. Pending states mark an optimistic
// change whose remote call has not settled yet.
type keyState int

const (
	statePendingAdd keyState = iota + 1
	statePresent
	statePendingRemove
)

// Store holds the favorites list and membership index as one observable
// unit. All exported methods are safe for concurrent use; the mutex is
// the Go stand-in for the event loop the UI model assumes.
type Store struct {
	mu      sync.Mutex
	entries []Entry
	states  map[string]keyState

	subs    map[int]chan []Entry
	nextSub int

	sessions auth.Source
	remote   RemoteMutator
	notifier notify.Notifier
	logger   *slog.Logger

	inflight sync.WaitGroup
}

// NewStore creates an empty favorites store.
func NewStore(sessions auth.Source, remote RemoteMutator, notifier notify.Notifier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		states:   make(map[string]keyState),
		subs:     make(map[int]chan []Entry),
		sessions: sessions,
		remote:   remote,
		notifier: notifier,
		logger:   logger,
	}
}

// Seed replaces the store contents with entries already confirmed by the
// backend, e.g. the initial favorites listing at startup.
func (s *Store) Seed(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]Entry, len(entries))
	copy(s.entries, entries)
	s.states = make(map[string]keyState, len(entries))
	for _, e := range entries {
		s.states[e.Key().String()] = statePresent
	}
	s.publishLocked()
}

// IsMember reports whether key is currently favorited. Pure read, never
// blocks on I/O.
func (s *Store) IsMember(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[key.String()]
	return st == statePendingAdd || st == statePresent
}

// Snapshot returns a copy of the ordered entry list.
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Subscribe registers a snapshot listener. The channel holds only the
// latest snapshot; stale ones are dropped, never blocked on. The returned
// cancel func must be called to release the subscription.
func (s *Store) Subscribe() (<-chan []Entry, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan []Entry, 1)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Add favorites entry: the list and index change immediately, the remote
// insert settles in the background. Adding a key that is already present
// or pending is a no-op. Without an identity it returns ErrUnauthenticated
// after notifying; the remote outcome is never returned to the caller.
func (s *Store) Add(ctx context.Context, entry Entry) error {
	sess, ok := s.sessions.Current()
	if !ok {
		s.notifier.Notify(notify.KindError, "Sign in to manage favorites")
		return ErrUnauthenticated
	}

	key := entry.Key()
	token := key.String()
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}

	s.mu.Lock()
	switch s.states[token] {
	case statePendingAdd, statePresent:
		s.mu.Unlock()
		return nil
	}
	s.entries = append([]Entry{entry}, s.entries...)
	s.states[token] = statePendingAdd
	s.publishLocked()
	s.mu.Unlock()

	s.notifier.Notify(notify.KindSuccess, fmt.Sprintf("Added %q to favorites", entry.Title))

	// The settle must outlive the caller's request scope; a cancel after
	// the optimistic commit must not masquerade as a remote failure
	settleCtx := context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.settleAdd(settleCtx, sess, entry, token)
	}()

	return nil
}

func (s *Store) settleAdd(ctx context.Context, sess auth.Session, entry Entry, token string) {
	err := s.remote.InsertFavorite(ctx, sess, entry)

	s.mu.Lock()
	if s.states[token] != statePendingAdd {
		// A later operation took over this key; its settle owns the state
		s.mu.Unlock()
		return
	}
	if err == nil {
		s.states[token] = statePresent
		s.mu.Unlock()
		return
	}

	delete(s.states, token)
	s.removeEntryLocked(token)
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Error("favorite insert rolled back",
		"key", token,
		"error", fmt.Errorf("%w: %w", ErrRemoteMutation, err),
	)
	s.notifier.Notify(notify.KindError, fmt.Sprintf("Couldn't save %q to favorites", entry.Title))
}

// Remove deletes the keyed slot optimistically and settles the remote
// delete in the background. Removing an absent key, or calling without an
// identity, is a silent no-op.
func (s *Store) Remove(ctx context.Context, entry Entry) error {
	sess, ok := s.sessions.Current()
	if !ok {
		return nil
	}

	key := entry.Key()
	token := key.String()

	s.mu.Lock()
	st := s.states[token]
	if st != statePresent && st != statePendingAdd {
		s.mu.Unlock()
		return nil
	}

	pos, removed := s.takeEntryLocked(token)
	if pos < 0 {
		// Index and list disagree; repair the index rather than crash
		delete(s.states, token)
		s.mu.Unlock()
		s.logger.Warn("membership index out of sync", "key", token)
		return nil
	}
	s.states[token] = statePendingRemove
	s.publishLocked()
	s.mu.Unlock()

	s.notifier.Notify(notify.KindSuccess, fmt.Sprintf("Removed %q from favorites", removed.Title))

	settleCtx := context.WithoutCancel(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.settleRemove(settleCtx, sess, key, token, removed, pos)
	}()

	return nil
}

func (s *Store) settleRemove(ctx context.Context, sess auth.Session, key Key, token string, removed Entry, pos int) {
	err := s.remote.DeleteFavorite(ctx, sess, key)

	s.mu.Lock()
	if s.states[token] != statePendingRemove {
		s.mu.Unlock()
		return
	}
	if err == nil {
		delete(s.states, token)
		s.mu.Unlock()
		return
	}

	// Restore only this key's slot at its old position. Entries added or
	// removed for other keys while the delete was in flight stay intact.
	if pos > len(s.entries) {
		pos = len(s.entries)
	}
	s.entries = append(s.entries[:pos], append([]Entry{removed}, s.entries[pos:]...)...)
	s.states[token] = statePresent
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Error("favorite delete rolled back",
		"key", token,
		"error", fmt.Errorf("%w: %w", ErrRemoteMutation, err),
	)
	s.notifier.Notify(notify.KindError, fmt.Sprintf("Couldn't remove %q from favorites", removed.Title))
}

// Flush blocks until every in-flight remote call has settled. The CLI
// calls it before exiting so reconciliation is never cut short.
func (s *Store) Flush() {
	s.inflight.Wait()
}

// removeEntryLocked drops the entry matching token from the list.
func (s *Store) removeEntryLocked(token string) {
	for i, e := range s.entries {
		if e.Key().String() == token {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// takeEntryLocked removes and returns the entry matching token along with
// the position it occupied, or -1 when absent.
func (s *Store) takeEntryLocked(token string) (int, Entry) {
	for i, e := range s.entries {
		if e.Key().String() == token {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return i, e
		}
	}
	return -1, Entry{}
}

// publishLocked pushes the current snapshot to every subscriber. Slow
// subscribers lose intermediate snapshots, never block the store.
func (s *Store) publishLocked() {
	if len(s.subs) == 0 {
		return
	}

	snapshot := make([]Entry, len(s.entries))
	copy(snapshot, s.entries)

	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
