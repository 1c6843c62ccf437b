/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package expedition

import (
	"fmt"
	"slices"
)

type Mode string

const (
	Refresh    Mode = "REFRESH"
	Persistent Mode = "PERSISTENT"
)

// ParseMode accepts the two wire names of a game mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case Refresh, Persistent:
		return Mode(s), true
	}
	return "", false
}

type Phase string

const (
	Setup      Phase = "SETUP"
	RoundStart Phase = "ROUND_START"
	Reveal     Phase = "REVEAL"
	Decision   Phase = "DECISION"
	GameEnd    Phase = "GAME_END"
)

// Status is a seat's in-game position during a round.
type Status string

const (
	In  Status = "IN"
	Out Status = "OUT"
)

// RoundEnd is the per-round outcome reported in round summaries.
type RoundEnd string

const (
	RoundIn     RoundEnd = "IN"
	RoundSafe   RoundEnd = "SAFE"
	RoundKilled RoundEnd = "KILLED"
)

type Choice string

const (
	Stay  Choice = "STAY"
	Leave Choice = "LEAVE"
)

// ParseChoice accepts the two wire names of a decision.
func ParseChoice(s string) (Choice, bool) {
	switch Choice(s) {
	case Stay, Leave:
		return Choice(s), true
	}
	return "", false
}

type Player struct {
	Seat           int      `json:"id"`
	Name           string   `json:"name"`
	Status         Status   `json:"status"`
	GemsInHand     int      `json:"gemsInHand"`
	GemsInTent     int      `json:"gemsInTent"`
	Artifacts      []Card   `json:"artifacts"`
	RoundGems      int      `json:"roundGems"`
	RoundArtifacts int      `json:"roundArtifacts"`
	RoundEndStatus RoundEnd `json:"roundEndStatus"`
	Score          int      `json:"score"`
	Disconnected   bool     `json:"disconnected"`
}

// ArtifactValue sums the value of every artifact the player holds.
func (p Player) ArtifactValue() int {
	total := 0
	for _, a := range p.Artifacts {
		total += a.Value
	}
	return total
}

type EndReasonType string

const (
	Success  EndReasonType = "SUCCESS"
	Disaster EndReasonType = "DISASTER"
)

type EndReason struct {
	Type   EndReasonType `json:"type"`
	Hazard *Card         `json:"hazard,omitempty"`
}

// RoundResult is one line of the summary shown between rounds.
type RoundResult struct {
	Name            string   `json:"name"`
	GemsGained      int      `json:"gemsGained"`
	ArtifactsGained int      `json:"artifactsGained"`
	Status          RoundEnd `json:"status"`
}

// State is a complete game snapshot. The reducer never modifies a State it
// is given; Clone is used to derive the next one.
type State struct {
	Mode               Mode          `json:"gameMode"`
	Players            []Player      `json:"players"`
	Round              int           `json:"round"`
	Phase              Phase         `json:"phase"`
	Deck               []Card        `json:"deck"`
	Path               []Card        `json:"path"`
	GemsOnPath         []int         `json:"gemsOnPath"`
	ArtifactsDeck      []int         `json:"artifactsDeck"`
	UnclaimedArtifacts []Card        `json:"unclaimedArtifacts"`
	RemovedHazards     []HazardKind  `json:"removedHazards"`
	Log                []string      `json:"log"`
	Winner             *Player       `json:"winner"`
	LastRoundResults   []RoundResult `json:"lastRoundResults"`
	EndReason          *EndReason    `json:"currentRoundEndReason"`
}

// NewGame seats the named players in order and returns a SETUP state.
func NewGame(names []string, mode Mode) State {
	if mode != Persistent {
		mode = Refresh
	}

	players := make([]Player, len(names))
	for i, name := range names {
		players[i] = Player{
			Seat:           i,
			Name:           name,
			Status:         In,
			Artifacts:      []Card{},
			RoundEndStatus: RoundIn,
		}
	}

	desc := "classic (hazards refresh every round)"
	if mode == Persistent {
		desc = "hardcore (destroyed hazards stay removed)"
	}

	return State{
		Mode:               mode,
		Players:            players,
		Round:              1,
		Phase:              Setup,
		Deck:               []Card{},
		Path:               []Card{},
		GemsOnPath:         []int{},
		ArtifactsDeck:      slices.Clone(ArtifactValues),
		UnclaimedArtifacts: []Card{},
		RemovedHazards:     []HazardKind{},
		Log:                []string{fmt.Sprintf("Game created. Mode: %s.", desc)},
	}
}

// Clone returns a deep copy sharing no mutable memory with s.
func (s State) Clone() State {
	c := s

	c.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.Artifacts = slices.Clone(p.Artifacts)
		if p.Artifacts == nil {
			p.Artifacts = []Card{}
		}
		c.Players[i] = p
	}

	c.Deck = slices.Clone(s.Deck)
	c.Path = slices.Clone(s.Path)
	c.GemsOnPath = slices.Clone(s.GemsOnPath)
	c.ArtifactsDeck = slices.Clone(s.ArtifactsDeck)
	c.UnclaimedArtifacts = slices.Clone(s.UnclaimedArtifacts)
	c.RemovedHazards = slices.Clone(s.RemovedHazards)
	c.Log = slices.Clone(s.Log)
	c.LastRoundResults = slices.Clone(s.LastRoundResults)

	if s.Winner != nil {
		w := *s.Winner
		w.Artifacts = slices.Clone(w.Artifacts)
		c.Winner = &w
	}

	if s.EndReason != nil {
		r := *s.EndReason
		if r.Hazard != nil {
			h := *r.Hazard
			r.Hazard = &h
		}
		c.EndReason = &r
	}

	return c
}

// Active returns the seats still IN, in seat order.
func (s State) Active() []int {
	seats := make([]int, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Status == In {
			seats = append(seats, p.Seat)
		}
	}
	return seats
}

func (s *State) logf(format string, args ...any) {
	s.Log = append(s.Log, fmt.Sprintf(format, args...))
}
