/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Seednode/expedition/expedition"
	"github.com/Seednode/expedition/leaderboard"
)

const gameStartedNotice = "The game has already started. Please wait for the next one."

// Client is one connected participant. The hub closes Send when it lets go
// of the client.
type Client struct {
	ID   string
	Send chan any
}

func NewClient(id string) *Client {
	return &Client{
		ID:   id,
		Send: make(chan any, 16),
	}
}

type IntentKind string

const (
	IntentJoin    IntentKind = "join"
	IntentStart   IntentKind = "start"
	IntentSetMode IntentKind = "set_mode"
	IntentDecide  IntentKind = "decide"
	IntentReady   IntentKind = "ready"
	IntentReset   IntentKind = "reset"
)

// Intent is a single request from a client. Name and Mode are read by join,
// Mode by set_mode, Choice by decide.
type Intent struct {
	Client *Client
	Kind   IntentKind
	Name   string
	Mode   expedition.Mode
	Choice expedition.Choice
}

// Hub owns one Room and applies everything that happens to it from a single
// goroutine, in arrival order.
type Hub struct {
	id      string
	room    *Room
	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	intents  chan Intent
	timeouts chan Turn
	quit     chan struct{}
	done     chan struct{}

	lastActive atomic.Int64

	decisionTimeout time.Duration
	timer           *time.Timer
	armed           Turn
	armedOK         bool

	entries func() []leaderboard.Entry
	release func(*Hub) bool
	logf    func(format string, args ...any)
}

func newHub(room *Room, decisionTimeout time.Duration, entries func() []leaderboard.Entry, release func(*Hub) bool, logf func(format string, args ...any)) *Hub {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	h := &Hub{
		id:              room.ID(),
		room:            room,
		clients:         make(map[*Client]bool),
		register:        make(chan *Client),
		unreg:           make(chan *Client),
		intents:         make(chan Intent),
		timeouts:        make(chan Turn),
		quit:            make(chan struct{}),
		done:            make(chan struct{}),
		decisionTimeout: decisionTimeout,
		entries:         entries,
		release:         release,
		logf:            logf,
	}
	h.touch()

	return h
}

func (h *Hub) ID() string { return h.id }

// LastActive is safe to call from any goroutine.
func (h *Hub) LastActive() time.Time {
	return time.Unix(0, h.lastActive.Load())
}

// Register hands c to the hub. It returns false if the hub has shut down.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c from the hub and its room.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unreg <- c:
	case <-h.done:
	}
}

// Submit queues an intent. It is dropped if the hub has shut down.
func (h *Hub) Submit(in Intent) {
	select {
	case h.intents <- in:
	case <-h.done:
	}
}

// Shutdown disconnects every client and stops the hub.
func (h *Hub) Shutdown() {
	select {
	case h.quit <- struct{}{}:
	case <-h.done:
	}
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) touch() {
	h.lastActive.Store(time.Now().UnixNano())
}

func (h *Hub) run() {
	defer close(h.done)
	defer h.stopTimer()

	for {
		select {
		case c := <-h.register:
			h.touch()
			h.clients[c] = true

			h.sendTo(c, WelcomeMessage{
				Type:         "welcome",
				ConnectionID: c.ID,
				RoomID:       h.id,
			})
			if h.entries != nil {
				h.sendTo(c, LeaderboardMessage{Type: "leaderboard", Entries: h.entries()})
			}
			h.sendTo(c, h.room.LobbySnapshot())
			if msg, ok := h.room.GameSnapshot(); ok {
				h.sendTo(c, msg)
			}

		case c := <-h.unreg:
			h.touch()
			h.drop(c)

			if err := h.room.Leave(c.ID); err != nil && !errors.Is(err, ErrUnknownConnection) {
				h.logf("ERROR: %v", err)
			}

			if len(h.clients) == 0 && h.release != nil && h.release(h) {
				h.logf("GAMES: Closed empty room %s", h.id)
				return
			}

			h.broadcastState()

		case in := <-h.intents:
			h.touch()
			h.handle(in)
			h.broadcastState()

		case t := <-h.timeouts:
			h.armedOK = false
			if cur, ok := h.room.DecisionTurn(); !ok || cur != t {
				continue
			}
			if err := h.room.ExpireDecisions(); err != nil {
				h.logf("ERROR: %v", err)
			}
			h.broadcastState()

		case <-h.quit:
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) handle(in Intent) {
	var err error

	id := in.Client.ID

	switch in.Kind {
	case IntentJoin:
		err = h.room.Join(id, in.Name, in.Mode)
		if errors.Is(err, ErrGameInProgress) {
			h.sendTo(in.Client, NoticeMessage{Type: "notice", Message: gameStartedNotice})
		}
	case IntentStart:
		err = h.room.Start()
	case IntentSetMode:
		err = h.room.SetMode(id, in.Mode)
	case IntentDecide:
		err = h.room.Decide(id, in.Choice)
	case IntentReady:
		err = h.room.Ready(id)
	case IntentReset:
		h.room.Reset()
		h.stopTimer()
		h.armedOK = false
	default:
		err = fmt.Errorf("unknown intent %q", in.Kind)
	}

	if err != nil {
		h.logf("GAMES: Rejected %s from %s in %s: %v", in.Kind, id, h.id, err)
	}
}

// broadcastState sends the lobby and game snapshots to every client, plus
// the leaderboard if a game was just recorded, then re-arms the decision
// timer for whatever decision is now open.
func (h *Hub) broadcastState() {
	if entries, ok := h.room.TakeLeaderboard(); ok {
		h.broadcast(LeaderboardMessage{Type: "leaderboard", Entries: entries})
	}

	h.broadcast(h.room.LobbySnapshot())

	if msg, ok := h.room.GameSnapshot(); ok {
		h.broadcast(msg)
	}

	h.armTimer()
}

func (h *Hub) broadcast(msg any) {
	for c := range h.clients {
		h.sendTo(c, msg)
	}
}

// sendTo never blocks: a client whose buffer is full is dropped.
func (h *Hub) sendTo(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.Send <- msg:
	default:
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
	}
}

func (h *Hub) armTimer() {
	if h.decisionTimeout <= 0 {
		return
	}

	turn, ok := h.room.DecisionTurn()
	if !ok || (h.armedOK && turn == h.armed) {
		return
	}

	h.stopTimer()

	h.armed, h.armedOK = turn, true
	h.timer = time.AfterFunc(h.decisionTimeout, func() {
		select {
		case h.timeouts <- turn:
		case <-h.done:
		}
	})
}

func (h *Hub) stopTimer() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
