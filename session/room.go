/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package session turns per-connection intents into group decisions for a
// single expedition game.
package session

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Seednode/expedition/expedition"
	"github.com/Seednode/expedition/leaderboard"
)

var (
	ErrGameInProgress    = errors.New("game already started")
	ErrNoGame            = errors.New("no game in progress")
	ErrNotHost           = errors.New("only the host may do that")
	ErrNotSeated         = errors.New("connection has no seat in this game")
	ErrPlayerOut         = errors.New("player is not in the expedition")
	ErrWrongPhase        = errors.New("not allowed in current phase")
	ErrEmptyRoster       = errors.New("no players in room")
	ErrUnknownConnection = errors.New("unknown connection")
)

// Recorder receives final scores once per finished game.
type Recorder interface {
	Update([]leaderboard.Result) []leaderboard.Entry
}

// Member is one roster entry. Seat is nil until the game starts.
type Member struct {
	ConnectionID string
	Name         string
	Seat         *int
}

// Room coordinates one game. It is not safe for concurrent use: a Hub owns
// it and applies intents one at a time.
type Room struct {
	id       string
	roster   []Member
	state    *expedition.State
	pending  map[int]expedition.Choice
	ready    map[string]bool
	started  bool
	mode     expedition.Mode
	recorded bool

	reducer  *expedition.Reducer
	recorder Recorder
	logf     func(format string, args ...any)

	board        []leaderboard.Entry
	boardChanged bool
}

func NewRoom(id string, reducer *expedition.Reducer, recorder Recorder, logf func(format string, args ...any)) *Room {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Room{
		id:       id,
		pending:  make(map[int]expedition.Choice),
		ready:    make(map[string]bool),
		mode:     expedition.Refresh,
		reducer:  reducer,
		recorder: recorder,
		logf:     logf,
	}
}

func (r *Room) ID() string { return r.id }

func (r *Room) InProgress() bool { return r.started }

func (r *Room) Mode() expedition.Mode { return r.mode }

// Empty reports whether nobody is left on the roster.
func (r *Room) Empty() bool { return len(r.roster) == 0 }

// State returns the current game state, or nil in the lobby.
func (r *Room) State() *expedition.State { return r.state }

// Host is the connection allowed to change settings: the first on the roster.
func (r *Room) Host() string {
	if len(r.roster) == 0 {
		return ""
	}
	return r.roster[0].ConnectionID
}

func (r *Room) member(connID string) (int, *Member) {
	for i := range r.roster {
		if r.roster[i].ConnectionID == connID {
			return i, &r.roster[i]
		}
	}
	return -1, nil
}

// Join adds connID to the roster, or renames it if already present. The
// room's creator, or the host before the game starts, may pick the mode.
func (r *Room) Join(connID, name string, mode expedition.Mode) error {
	if r.started {
		r.logf("GAMES: Rejected join from %q in %s: game in progress", name, r.id)
		return ErrGameInProgress
	}

	if _, m := r.member(connID); m != nil {
		m.Name = name
	} else {
		r.roster = append(r.roster, Member{ConnectionID: connID, Name: name})
		r.logf("GAMES: Player %q joined %s", name, r.id)
	}

	if mode != "" && r.Host() == connID {
		r.mode = mode
	}

	return nil
}

// SetMode changes the game mode. Only the host may, and only in the lobby.
func (r *Room) SetMode(connID string, mode expedition.Mode) error {
	if r.Host() != connID {
		r.logf("GAMES: Ignored mode change from non-host %s in %s", connID, r.id)
		return ErrNotHost
	}
	if r.started {
		return ErrGameInProgress
	}

	r.mode = mode
	r.logf("GAMES: Mode set to %s in %s", mode, r.id)

	return nil
}

// Start seats the roster in order and plays the first round's free reveal.
func (r *Room) Start() error {
	if r.started {
		return ErrGameInProgress
	}
	if len(r.roster) == 0 {
		return ErrEmptyRoster
	}

	names := make([]string, len(r.roster))
	for i := range r.roster {
		seat := i
		r.roster[i].Seat = &seat
		names[i] = r.roster[i].Name
	}

	state := expedition.NewGame(names, r.mode)
	r.state = &state
	r.started = true
	r.recorded = false
	clear(r.pending)
	clear(r.ready)

	r.logf("GAMES: Started %s with %d players in %s mode", r.id, len(names), r.mode)

	return r.dispatch(expedition.Action{Type: expedition.StartRound})
}

// Decide buffers a STAY or LEAVE for the connection's seat and resolves the
// decision barrier once every IN seat has chosen.
func (r *Room) Decide(connID string, choice expedition.Choice) error {
	seat, err := r.activeSeat(connID)
	if err != nil {
		return err
	}

	if r.state.Phase != expedition.Decision {
		r.logf("GAMES: Ignored decision in phase %s in %s", r.state.Phase, r.id)
		return ErrWrongPhase
	}
	if r.state.Players[seat].Status != expedition.In {
		r.logf("GAMES: Ignored decision from OUT seat %d in %s", seat, r.id)
		return ErrPlayerOut
	}

	r.pending[seat] = choice

	return r.checkDecisions()
}

// Ready marks the connection ready for the next round. OUT players may ready
// up; the round starts once everyone still connected has.
func (r *Room) Ready(connID string) error {
	if _, err := r.activeSeat(connID); err != nil {
		return err
	}

	if r.state.Phase != expedition.RoundStart {
		r.logf("GAMES: Ignored ready in phase %s in %s", r.state.Phase, r.id)
		return ErrWrongPhase
	}

	r.ready[connID] = true

	return r.checkReady()
}

// Leave removes the connection. A seated player in a running game is marked
// OUT, and any barrier waiting on them is re-checked.
func (r *Room) Leave(connID string) error {
	i, m := r.member(connID)
	if m == nil {
		return ErrUnknownConnection
	}
	seat := m.Seat

	r.roster = slices.Delete(r.roster, i, i+1)
	delete(r.ready, connID)

	r.logf("GAMES: Connection %s left %s", connID, r.id)

	if !r.started || seat == nil || r.state == nil {
		return nil
	}

	wasIn := r.state.Players[*seat].Status == expedition.In

	if err := r.dispatch(expedition.Action{Type: expedition.PlayerDisconnected, Seat: *seat}); err != nil {
		return err
	}

	switch r.state.Phase {
	case expedition.Decision:
		// Seats already back at camp owe no decision.
		if wasIn {
			r.pending[*seat] = expedition.Leave
		}
		return r.checkDecisions()
	case expedition.RoundStart:
		return r.checkReady()
	}

	return nil
}

// Reset discards the game and returns everyone to the lobby.
func (r *Room) Reset() {
	r.started = false
	r.state = nil
	r.recorded = false
	clear(r.pending)
	clear(r.ready)

	for i := range r.roster {
		r.roster[i].Seat = nil
	}

	r.logf("GAMES: Reset %s", r.id)
}

// Turn identifies the current decision point, so a timer armed for one
// decision cannot fire into a later one.
type Turn struct {
	Round int
	Step  int
}

// DecisionTurn reports the open decision point, if any.
func (r *Room) DecisionTurn() (Turn, bool) {
	if r.state == nil || r.state.Phase != expedition.Decision {
		return Turn{}, false
	}
	return Turn{Round: r.state.Round, Step: len(r.state.Path)}, true
}

// ExpireDecisions gives every undecided IN seat a LEAVE decision.
func (r *Room) ExpireDecisions() error {
	if r.state == nil || r.state.Phase != expedition.Decision {
		return ErrWrongPhase
	}

	for _, seat := range r.state.Active() {
		if _, ok := r.pending[seat]; !ok {
			r.pending[seat] = expedition.Leave
			r.logf("GAMES: Seat %d timed out in %s", seat, r.id)
		}
	}

	return r.checkDecisions()
}

// TakeLeaderboard returns the table produced by the last recorded game, once.
func (r *Room) TakeLeaderboard() ([]leaderboard.Entry, bool) {
	if !r.boardChanged {
		return nil, false
	}
	r.boardChanged = false
	return r.board, true
}

func (r *Room) activeSeat(connID string) (int, error) {
	if !r.started || r.state == nil {
		return 0, ErrNoGame
	}

	_, m := r.member(connID)
	if m == nil {
		return 0, ErrUnknownConnection
	}
	if m.Seat == nil {
		return 0, ErrNotSeated
	}

	return *m.Seat, nil
}

func (r *Room) checkDecisions() error {
	for _, seat := range r.state.Active() {
		if _, ok := r.pending[seat]; !ok {
			return nil
		}
	}

	decisions := make(map[int]expedition.Choice, len(r.pending))
	for seat, c := range r.pending {
		decisions[seat] = c
	}
	clear(r.pending)

	r.logf("GAMES: All decisions in for %s", r.id)

	return r.dispatch(expedition.Action{Type: expedition.DecisionsMade, Decisions: decisions})
}

func (r *Room) checkReady() error {
	if len(r.roster) == 0 {
		return nil
	}

	for _, m := range r.roster {
		if !r.ready[m.ConnectionID] {
			return nil
		}
	}

	clear(r.ready)

	r.logf("GAMES: Everyone ready in %s, starting round %d", r.id, r.state.Round)

	return r.dispatch(expedition.Action{Type: expedition.StartRound})
}

func (r *Room) dispatch(a expedition.Action) error {
	next, err := r.reducer.Apply(*r.state, a)
	if err != nil {
		return fmt.Errorf("%s: %w", r.id, err)
	}
	r.state = &next

	if next.Phase == expedition.GameEnd && !r.recorded {
		r.recorded = true
		r.record()
	}

	return nil
}

func (r *Room) record() {
	results := make([]leaderboard.Result, len(r.state.Players))
	for i, p := range r.state.Players {
		results[i] = leaderboard.Result{Name: p.Name, Score: p.Score}
	}

	r.logf("GAMES: Game over in %s, recording %d scores", r.id, len(results))

	if r.recorder == nil {
		return
	}

	r.board = r.recorder.Update(results)
	r.boardChanged = true
}
