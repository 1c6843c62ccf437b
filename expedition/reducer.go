/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package expedition

import (
	"errors"
	"fmt"
)

var (
	ErrWrongPhase     = errors.New("action not allowed in current phase")
	ErrInternalAction = errors.New("action cannot be dispatched externally")
	ErrUnknownAction  = errors.New("unknown action")
	ErrUnknownSeat    = errors.New("unknown seat")
)

type ActionType string

const (
	StartRound         ActionType = "START_ROUND"
	RevealCard         ActionType = "REVEAL_CARD"
	DecisionsMade      ActionType = "DECISIONS_MADE"
	PlayerDisconnected ActionType = "PLAYER_DISCONNECTED"
	endRound           ActionType = "END_ROUND"
)

// Action is a single input to the reducer. Decisions is read by
// DECISIONS_MADE, Seat by PLAYER_DISCONNECTED.
type Action struct {
	Type      ActionType
	Decisions map[int]Choice
	Seat      int
}

// Reducer applies actions to game states. Its only dependency is the random
// source used to shuffle decks, so a seeded Shuffler replays a game exactly.
type Reducer struct {
	shuffler Shuffler
}

func NewReducer(shuffler Shuffler) *Reducer {
	return &Reducer{shuffler: shuffler}
}

// Apply validates a against s and returns the resulting state. s is left
// untouched. Transitions that trigger further transitions (the free reveal
// after START_ROUND, END_ROUND after a disaster) are queued and drained here
// rather than nested.
func (r *Reducer) Apply(s State, a Action) (State, error) {
	if err := validate(s, a); err != nil {
		return s, err
	}

	next := s.Clone()

	queue := []Action{a}
	for len(queue) > 0 {
		act := queue[0]
		queue = queue[1:]

		queue = append(queue, r.step(&next, act)...)
	}

	return next, nil
}

func validate(s State, a Action) error {
	var allowed []Phase

	switch a.Type {
	case StartRound:
		allowed = []Phase{Setup, RoundStart}
	case RevealCard:
		allowed = []Phase{Reveal}
	case DecisionsMade:
		allowed = []Phase{Decision}
	case PlayerDisconnected:
		if a.Seat < 0 || a.Seat >= len(s.Players) {
			return fmt.Errorf("%w: %d", ErrUnknownSeat, a.Seat)
		}
		return nil
	case endRound:
		return fmt.Errorf("%w: %s", ErrInternalAction, a.Type)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}

	for _, p := range allowed {
		if s.Phase == p {
			return nil
		}
	}

	return fmt.Errorf("%w: %s during %s", ErrWrongPhase, a.Type, s.Phase)
}

// step performs one transition in place and returns any follow-up actions.
func (r *Reducer) step(s *State, a Action) []Action {
	switch a.Type {
	case StartRound:
		return r.startRound(s)
	case RevealCard:
		return revealCard(s)
	case DecisionsMade:
		return decisionsMade(s, a.Decisions)
	case PlayerDisconnected:
		disconnect(s, a.Seat)
	case endRound:
		finishRound(s)
	}
	return nil
}

func (r *Reducer) startRound(s *State) []Action {
	pull := min(s.Round, len(s.ArtifactsDeck))

	artifacts := make([]Card, 0, pull)
	for i, v := range s.ArtifactsDeck[:pull] {
		artifacts = append(artifacts, Card{
			ID:    fmt.Sprintf("A-%d-%d-%d", v, s.Round, i),
			Kind:  Artifact,
			Value: v,
		})
	}
	s.ArtifactsDeck = s.ArtifactsDeck[pull:]

	deck := GenerateDeck(s.Round, s.Mode, s.RemovedHazards, r.shuffler)
	deck = append(deck, artifacts...)
	deck = append(deck, s.UnclaimedArtifacts...)
	s.UnclaimedArtifacts = []Card{}

	shuffle(deck, r.shuffler)

	s.Deck = deck
	s.Path = []Card{}
	s.GemsOnPath = []int{}

	for i := range s.Players {
		p := &s.Players[i]
		p.Status = In
		if p.Disconnected {
			p.Status = Out
		}
		p.GemsInHand = 0
		p.RoundGems = 0
		p.RoundArtifacts = 0
		p.RoundEndStatus = RoundIn
	}

	s.EndReason = nil
	s.Phase = Reveal
	s.logf("Round %d begins.", s.Round)

	return []Action{{Type: RevealCard}}
}

func revealCard(s *State) []Action {
	if len(s.Deck) == 0 {
		s.logf("The deck is exhausted.")
		return []Action{{Type: endRound}}
	}

	card := s.Deck[0]
	s.Deck = s.Deck[1:]
	s.Path = append(s.Path, card)

	switch card.Kind {
	case Treasure:
		s.GemsOnPath = append(s.GemsOnPath, distribute(s, card.Value))
		s.logf("Treasure revealed: %d gems.", card.Value)

	case Hazard:
		s.GemsOnPath = append(s.GemsOnPath, 0)
		s.logf("Hazard revealed: %s!", card.Hazard.Label())

		seen := 0
		for _, c := range s.Path {
			if c.Kind == Hazard && c.Hazard == card.Hazard {
				seen++
			}
		}

		if seen >= 2 {
			strikeDisaster(s, card)
			return []Action{{Type: endRound}}
		}

	default:
		s.GemsOnPath = append(s.GemsOnPath, 0)
		s.logf("Artifact revealed! Worth %d.", card.Value)
	}

	s.Phase = Decision

	return nil
}

// distribute splits value evenly across IN seats and returns the remainder.
func distribute(s *State, value int) int {
	active := s.Active()
	if len(active) == 0 {
		panic("expedition: treasure revealed with no active players")
	}

	share := value / len(active)
	for _, seat := range active {
		s.Players[seat].GemsInHand += share
	}

	return value % len(active)
}

func strikeDisaster(s *State, card Card) {
	s.logf("Disaster! A second %s appears. The explorers flee empty-handed.", card.Hazard.Label())

	if s.Mode == Persistent {
		s.RemovedHazards = append(s.RemovedHazards, card.Hazard)
		s.logf("One %s card has been destroyed and will not return.", card.Hazard.Label())
	}

	hazard := card
	s.EndReason = &EndReason{Type: Disaster, Hazard: &hazard}

	for i := range s.Players {
		p := &s.Players[i]
		if p.Status != In {
			continue
		}
		p.GemsInHand = 0
		p.RoundGems = 0
		p.RoundArtifacts = 0
		p.RoundEndStatus = RoundKilled
		p.Status = Out
	}
}

func decisionsMade(s *State, decisions map[int]Choice) []Action {
	var leaving []int
	for _, p := range s.Players {
		if p.Status == In && decisions[p.Seat] == Leave {
			leaving = append(leaving, p.Seat)
		}
	}

	if len(leaving) > 0 {
		settleLeavers(s, leaving)
	}

	if len(s.Active()) == 0 {
		return []Action{{Type: endRound}}
	}

	return []Action{{Type: RevealCard}}
}

func settleLeavers(s *State, leaving []int) {
	k := len(leaving)

	loot := 0
	for i, gems := range s.GemsOnPath {
		if gems == 0 {
			continue
		}
		loot += gems / k
		s.GemsOnPath[i] = gems % k
	}

	if k == 1 {
		p := &s.Players[leaving[0]]

		claimed := 0
		for i, c := range s.Path {
			if c.Kind != Artifact {
				continue
			}
			p.Artifacts = append(p.Artifacts, c)
			s.Path[i].Kind = TakenArtifact
			claimed++
		}

		if claimed > 0 {
			p.RoundArtifacts += claimed
			s.logf("%s escapes with %d artifact(s)!", p.Name, claimed)
		}
	}

	for _, seat := range leaving {
		p := &s.Players[seat]
		gained := p.GemsInHand + loot
		p.GemsInTent += gained
		p.RoundGems += gained
		p.GemsInHand = 0
		p.Status = Out
		p.RoundEndStatus = RoundSafe
		s.logf("%s returns to camp with %d gems.", p.Name, gained)
	}
}

func disconnect(s *State, seat int) {
	p := &s.Players[seat]
	p.Status = Out
	p.Disconnected = true
	s.logf("%s disconnected.", p.Name)
}

func finishRound(s *State) {
	s.logf("Round %d is over.", s.Round)

	// Seats still IN here ran out of cards rather than leaving.
	for i := range s.Players {
		p := &s.Players[i]
		if p.Status != In {
			continue
		}
		p.GemsInTent += p.GemsInHand
		p.RoundGems += p.GemsInHand
		p.GemsInHand = 0
		p.Status = Out
		p.RoundEndStatus = RoundSafe
	}

	if s.EndReason == nil {
		s.EndReason = &EndReason{Type: Success}
	}

	results := make([]RoundResult, len(s.Players))
	for i, p := range s.Players {
		results[i] = RoundResult{
			Name:            p.Name,
			GemsGained:      p.RoundGems,
			ArtifactsGained: p.RoundArtifacts,
			Status:          p.RoundEndStatus,
		}
	}
	s.LastRoundResults = results

	s.Round++

	for _, c := range s.Path {
		if c.Kind == Artifact {
			s.UnclaimedArtifacts = append(s.UnclaimedArtifacts, c)
		}
	}

	if s.Round <= Rounds {
		s.Phase = RoundStart
		return
	}

	s.Phase = GameEnd

	// Ties go to the lowest seat: only a strictly greater score replaces
	// the current leader.
	best := 0
	for i := range s.Players {
		p := &s.Players[i]
		p.Score = p.GemsInTent + p.ArtifactValue()
		if p.Score > s.Players[best].Score {
			best = i
		}
	}

	if len(s.Players) > 0 {
		w := s.Players[best]
		w.Artifacts = append([]Card(nil), w.Artifacts...)
		s.Winner = &w
		s.logf("Game over! The winner is %s.", w.Name)
	}
}
