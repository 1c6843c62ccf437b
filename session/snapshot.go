/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"sort"

	"github.com/Seednode/expedition/expedition"
	"github.com/Seednode/expedition/leaderboard"
)

type LobbyPlayer struct {
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
	Seat         *int   `json:"seatId"`
}

// LobbyMessage describes the roster and settings of a room.
type LobbyMessage struct {
	Type             string          `json:"type"` // "lobby_state"
	RoomID           string          `json:"roomId"`
	Players          []LobbyPlayer   `json:"players"`
	InProgress       bool            `json:"inProgress"`
	GameMode         expedition.Mode `json:"gameMode"`
	HostConnectionID string          `json:"hostConnectionId"`
}

// GameMessage is the full game state plus barrier progress. Only the number
// of pending decisions is sent, never which seats have decided.
type GameMessage struct {
	Type string `json:"type"` // "game_state"
	expedition.State
	PendingDecisionsCount int   `json:"pendingDecisionsCount"`
	ReadySeatIDs          []int `json:"readySeatIds"`
}

// LeaderboardMessage carries the current top scores.
type LeaderboardMessage struct {
	Type    string              `json:"type"` // "leaderboard"
	Entries []leaderboard.Entry `json:"entries"`
}

// NoticeMessage is a user-facing notice sent to a single client.
type NoticeMessage struct {
	Type    string `json:"type"` // "notice"
	Message string `json:"message"`
}

// WelcomeMessage tells a new client its own connection id.
type WelcomeMessage struct {
	Type         string `json:"type"` // "welcome"
	ConnectionID string `json:"connectionId"`
	RoomID       string `json:"roomId"`
}

func (r *Room) LobbySnapshot() LobbyMessage {
	players := make([]LobbyPlayer, len(r.roster))
	for i, m := range r.roster {
		players[i] = LobbyPlayer{ConnectionID: m.ConnectionID, Name: m.Name}
		if m.Seat != nil {
			seat := *m.Seat
			players[i].Seat = &seat
		}
	}

	return LobbyMessage{
		Type:             "lobby_state",
		RoomID:           r.id,
		Players:          players,
		InProgress:       r.started,
		GameMode:         r.mode,
		HostConnectionID: r.Host(),
	}
}

// GameSnapshot returns false in the lobby.
func (r *Room) GameSnapshot() (GameMessage, bool) {
	if r.state == nil {
		return GameMessage{}, false
	}

	ready := make([]int, 0, len(r.ready))
	for _, m := range r.roster {
		if r.ready[m.ConnectionID] && m.Seat != nil {
			ready = append(ready, *m.Seat)
		}
	}
	sort.Ints(ready)

	return GameMessage{
		Type:                  "game_state",
		State:                 r.state.Clone(),
		PendingDecisionsCount: len(r.pending),
		ReadySeatIDs:          ready,
	}, true
}
