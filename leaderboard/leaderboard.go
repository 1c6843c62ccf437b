/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package leaderboard keeps the all-time top scores across every room.
package leaderboard

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	// Size is the number of entries kept.
	Size = 10

	timestampFormat = "2006-01-02 15:04"
)

type Entry struct {
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Timestamp string `json:"timestamp"`
}

// Result is a finished player's final score.
type Result struct {
	Name  string
	Score int
}

// Store persists the whole table. Save always receives the complete,
// already sorted and truncated list.
type Store interface {
	Load() ([]Entry, error)
	Save([]Entry) error
}

// Board serializes every read-modify-write of the table.
type Board struct {
	mu      sync.Mutex
	entries []Entry
	store   Store
	now     func() time.Time
	logf    func(format string, args ...any)
}

type Option func(*Board)

// WithLogger routes load and save failures to logf.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(b *Board) {
		b.logf = logf
	}
}

// WithClock overrides the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		b.now = now
	}
}

// New loads the table from store. A failed load starts from an empty table.
func New(store Store, opts ...Option) *Board {
	b := &Board{
		store:   store,
		now:     time.Now,
		logf:    func(string, ...any) {},
		entries: []Entry{},
	}

	for _, opt := range opts {
		opt(b)
	}

	if store == nil {
		return b
	}

	entries, err := store.Load()
	switch {
	case err != nil:
		b.logf("ERROR: Unable to load leaderboard: %v", err)
	case entries != nil:
		b.entries = entries
		b.logf("GAMES: Loaded %d leaderboard entries", len(entries))
	}

	return b
}

// Update adds every result with a positive score, keeps the best Size
// entries and persists the table if anything changed. It returns the
// current table either way.
func (b *Board) Update(results []Result) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	stamp := b.now().Format(timestampFormat)

	added := 0
	for _, r := range results {
		if r.Score <= 0 {
			continue
		}
		b.entries = append(b.entries, Entry{
			Name:      r.Name,
			Score:     r.Score,
			Timestamp: stamp,
		})
		added++
	}

	if added == 0 {
		return slices.Clone(b.entries)
	}

	slices.SortStableFunc(b.entries, func(x, y Entry) int {
		return cmp.Or(
			cmp.Compare(y.Score, x.Score),
			cmp.Compare(strings.ToLower(x.Name), strings.ToLower(y.Name)),
			cmp.Compare(x.Name, y.Name),
		)
	})

	if len(b.entries) > Size {
		b.entries = b.entries[:Size]
	}

	if b.store != nil {
		if err := b.store.Save(b.entries); err != nil {
			b.logf("ERROR: Unable to save leaderboard: %v", err)
		}
	}

	return slices.Clone(b.entries)
}

// Entries returns a copy of the current table.
func (b *Board) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.entries)
}
