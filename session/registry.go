/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"crypto/rand"
	"hash/fnv"
	mrand "math/rand/v2"
	"sync"
	"time"

	"github.com/Seednode/expedition/expedition"
	"github.com/Seednode/expedition/leaderboard"
)

// Leaderboard is the shared, cross-room score table.
type Leaderboard interface {
	Recorder
	Entries() []leaderboard.Entry
}

type Options struct {
	// IdleTimeout reaps rooms with no activity for this long. Zero disables
	// reaping.
	IdleTimeout time.Duration

	// DecisionTimeout gives undecided players a LEAVE after this long. Zero
	// waits forever.
	DecisionTimeout time.Duration

	// Seed, when non-zero, makes every room's deck order a function of the
	// seed and the room id.
	Seed uint64

	Leaderboard Leaderboard
	Logf        func(format string, args ...any)
}

// Registry holds the live hubs keyed by room id. A hub is created when the
// first client attaches and removed when its last client leaves.
type Registry struct {
	mu   sync.Mutex
	hubs map[string]*Hub
	opts Options
}

// NewRegistry starts the idle reaper, which stops when ctx is done.
func NewRegistry(ctx context.Context, opts Options) *Registry {
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}

	reg := &Registry{
		hubs: make(map[string]*Hub),
		opts: opts,
	}

	if opts.IdleTimeout > 0 {
		go reg.reaperLoop(ctx)
	}

	return reg
}

// Attach registers c with the hub for roomID, creating the hub if needed.
func (reg *Registry) Attach(roomID string, c *Client) *Hub {
	for {
		hub := reg.hub(roomID)
		if hub.Register(c) {
			return hub
		}
	}
}

// Len reports the number of live rooms.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.hubs)
}

func (reg *Registry) hub(roomID string) *Hub {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if hub, ok := reg.hubs[roomID]; ok {
		return hub
	}

	var board Recorder
	var entries func() []leaderboard.Entry
	if reg.opts.Leaderboard != nil {
		board = reg.opts.Leaderboard
		entries = reg.opts.Leaderboard.Entries
	}

	room := NewRoom(roomID, expedition.NewReducer(reg.shuffler(roomID)), board, reg.opts.Logf)
	hub := newHub(room, reg.opts.DecisionTimeout, entries, reg.release, reg.opts.Logf)
	reg.hubs[roomID] = hub

	go hub.run()

	reg.opts.Logf("GAMES: Created room %s", roomID)

	return hub
}

func (reg *Registry) shuffler(roomID string) expedition.Shuffler {
	if reg.opts.Seed == 0 {
		return mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64()))
	}

	h := fnv.New64a()
	h.Write([]byte(roomID))

	return mrand.New(mrand.NewPCG(reg.opts.Seed, h.Sum64()))
}

// release forgets h if it is still the registered hub for its room.
func (reg *Registry) release(h *Hub) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.hubs[h.id] != h {
		return false
	}
	delete(reg.hubs, h.id)

	return true
}

// NewRoomID generates a crypto-random room id that doesn't collide with a
// live room.
func (reg *Registry) NewRoomID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		reg.mu.Lock()
		_, exists := reg.hubs[id]
		reg.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically shuts down hubs idle longer than IdleTimeout.
func (reg *Registry) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(reg.opts.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-reg.opts.IdleTimeout)

		reg.mu.Lock()
		for id, hub := range reg.hubs {
			if hub.LastActive().Before(cutoff) {
				delete(reg.hubs, id)
				reg.opts.Logf("GAMES: Reaped idle room %s", id)
				go hub.Shutdown()
			}
		}
		reg.mu.Unlock()
	}
}
