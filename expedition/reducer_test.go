/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package expedition

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
)

type noShuffle struct{}

func (noShuffle) Shuffle(int, func(i, j int)) {}

func treasure(v int) Card {
	return Card{ID: "t", Kind: Treasure, Value: v}
}

func hazard(k HazardKind) Card {
	return Card{ID: "h-" + string(k), Kind: Hazard, Hazard: k}
}

func artifact(v int) Card {
	return Card{ID: "a", Kind: Artifact, Value: v}
}

// revealing returns a state about to reveal the first card of deck.
func revealing(names []string, deck ...Card) State {
	s := NewGame(names, Refresh)
	s.Phase = Reveal
	s.Deck = deck
	return s
}

func mustApply(t *testing.T, r *Reducer, s State, a Action) State {
	t.Helper()

	next, err := r.Apply(s, a)
	if err != nil {
		t.Fatalf("Apply(%s): %v", a.Type, err)
	}
	return next
}

func allStay(s State) Action {
	d := make(map[int]Choice)
	for _, seat := range s.Active() {
		d[seat] = Stay
	}
	return Action{Type: DecisionsMade, Decisions: d}
}

func TestDisasterOnSecondHazard(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := revealing([]string{"ann", "bob", "cat"}, treasure(9), hazard(Rock), hazard(Rock))

	s = mustApply(t, r, s, Action{Type: RevealCard})
	for _, p := range s.Players {
		if p.GemsInHand != 3 {
			t.Fatalf("%s holds %d gems, want 3", p.Name, p.GemsInHand)
		}
	}

	s = mustApply(t, r, s, allStay(s))
	if s.Phase != Decision {
		t.Fatalf("phase after first rock = %s, want %s", s.Phase, Decision)
	}

	s = mustApply(t, r, s, allStay(s))

	if s.Round != 2 {
		t.Errorf("round = %d, want 2", s.Round)
	}
	if s.Phase != RoundStart {
		t.Errorf("phase = %s, want %s", s.Phase, RoundStart)
	}
	if s.EndReason == nil || s.EndReason.Type != Disaster || s.EndReason.Hazard.Hazard != Rock {
		t.Errorf("end reason = %+v, want rock disaster", s.EndReason)
	}
	for _, p := range s.Players {
		if p.GemsInHand != 0 || p.Status != Out || p.RoundEndStatus != RoundKilled {
			t.Errorf("%s = %+v, want wiped and killed", p.Name, p)
		}
	}
	if len(s.RemovedHazards) != 0 {
		t.Errorf("refresh mode removed hazards: %v", s.RemovedHazards)
	}
}

func TestPersistentDisasterRemovesHazard(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := revealing([]string{"ann", "bob"}, hazard(Gas), hazard(Gas))
	s.Mode = Persistent

	s = mustApply(t, r, s, Action{Type: RevealCard})
	s = mustApply(t, r, s, allStay(s))

	if !reflect.DeepEqual(s.RemovedHazards, []HazardKind{Gas}) {
		t.Fatalf("removed hazards = %v, want [GAS]", s.RemovedHazards)
	}
}

func TestTreasureSplitsEvenly(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := revealing([]string{"ann", "bob"}, treasure(10))

	s = mustApply(t, r, s, Action{Type: RevealCard})

	for _, p := range s.Players {
		if p.GemsInHand != 5 {
			t.Errorf("%s holds %d, want 5", p.Name, p.GemsInHand)
		}
	}
	if !reflect.DeepEqual(s.GemsOnPath, []int{0}) {
		t.Errorf("gems on path = %v, want [0]", s.GemsOnPath)
	}
}

func TestSoleLeaverTakesRemainder(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := revealing([]string{"ann", "bob"}, treasure(7), hazard(Snake))

	s = mustApply(t, r, s, Action{Type: RevealCard})
	if s.Players[0].GemsInHand != 3 || s.Players[1].GemsInHand != 3 {
		t.Fatalf("hands = %d/%d, want 3/3", s.Players[0].GemsInHand, s.Players[1].GemsInHand)
	}
	if !reflect.DeepEqual(s.GemsOnPath, []int{1}) {
		t.Fatalf("gems on path = %v, want [1]", s.GemsOnPath)
	}

	s = mustApply(t, r, s, Action{Type: DecisionsMade, Decisions: map[int]Choice{0: Leave, 1: Stay}})

	ann := s.Players[0]
	if ann.GemsInTent != 4 || ann.GemsInHand != 0 || ann.Status != Out || ann.RoundEndStatus != RoundSafe {
		t.Errorf("ann = %+v, want 4 banked and safe", ann)
	}
	if ann.RoundGems != 4 {
		t.Errorf("ann round gems = %d, want 4", ann.RoundGems)
	}
	if !reflect.DeepEqual(s.GemsOnPath, []int{0, 0}) {
		t.Errorf("gems on path = %v, want [0 0]", s.GemsOnPath)
	}
	if s.Phase != Decision || len(s.Path) != 2 {
		t.Errorf("phase %s with path %d, want decision on second card", s.Phase, len(s.Path))
	}
}

func TestSoleLeaverClaimsEveryArtifact(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := NewGame([]string{"ann", "bob", "cat"}, Refresh)
	s.Phase = Decision
	s.Path = []Card{artifact(5), treasure(3), artifact(10)}
	s.GemsOnPath = []int{0, 0, 0}
	s.Deck = []Card{hazard(Rock)}

	s = mustApply(t, r, s, Action{Type: DecisionsMade, Decisions: map[int]Choice{0: Stay, 1: Leave, 2: Stay}})

	bob := s.Players[1]
	if len(bob.Artifacts) != 2 || bob.ArtifactValue() != 15 {
		t.Errorf("bob artifacts = %+v, want both", bob.Artifacts)
	}
	if bob.RoundArtifacts != 2 {
		t.Errorf("bob round artifacts = %d, want 2", bob.RoundArtifacts)
	}
	if s.Path[0].Kind != TakenArtifact || s.Path[2].Kind != TakenArtifact {
		t.Errorf("path = %+v, want artifacts marked taken", s.Path)
	}
	if len(s.Path) != len(s.GemsOnPath) {
		t.Errorf("path %d and gems %d misaligned", len(s.Path), len(s.GemsOnPath))
	}
}

func TestSimultaneousLeaversClaimNoArtifacts(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := NewGame([]string{"ann", "bob", "cat"}, Refresh)
	s.Phase = Decision
	s.Path = []Card{artifact(5), treasure(5)}
	s.GemsOnPath = []int{0, 5}
	s.Deck = []Card{hazard(Rock)}

	s = mustApply(t, r, s, Action{Type: DecisionsMade, Decisions: map[int]Choice{0: Leave, 1: Leave, 2: Stay}})

	for _, p := range s.Players {
		if len(p.Artifacts) != 0 {
			t.Errorf("%s claimed %d artifacts", p.Name, len(p.Artifacts))
		}
	}
	if s.Path[0].Kind != Artifact {
		t.Errorf("artifact kind = %s, want untouched", s.Path[0].Kind)
	}
	if s.Players[0].GemsInTent != 2 || s.Players[1].GemsInTent != 2 {
		t.Errorf("tents = %d/%d, want 2/2", s.Players[0].GemsInTent, s.Players[1].GemsInTent)
	}
	if s.GemsOnPath[1] != 1 {
		t.Errorf("leftover = %d, want 1", s.GemsOnPath[1])
	}
}

func TestEveryoneLeavingEndsRound(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := NewGame([]string{"ann", "bob"}, Refresh)
	s.Phase = Decision
	s.Path = []Card{artifact(5)}
	s.GemsOnPath = []int{0}
	s.Deck = []Card{hazard(Rock)}

	s = mustApply(t, r, s, Action{Type: DecisionsMade, Decisions: map[int]Choice{0: Leave, 1: Leave}})

	if s.Phase != RoundStart || s.Round != 2 {
		t.Fatalf("phase %s round %d, want round_start 2", s.Phase, s.Round)
	}
	if s.EndReason == nil || s.EndReason.Type != Success {
		t.Errorf("end reason = %+v, want success", s.EndReason)
	}
	if len(s.UnclaimedArtifacts) != 1 || s.UnclaimedArtifacts[0].Value != 5 {
		t.Errorf("unclaimed = %+v, want the artifact carried over", s.UnclaimedArtifacts)
	}
	if len(s.LastRoundResults) != 2 || s.LastRoundResults[0].Status != RoundSafe {
		t.Errorf("results = %+v", s.LastRoundResults)
	}
}

func TestDeckExhaustionBanksHands(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := revealing([]string{"ann", "bob"}, treasure(4))

	s = mustApply(t, r, s, Action{Type: RevealCard})
	s = mustApply(t, r, s, allStay(s))

	if s.Round != 2 || s.Phase != RoundStart {
		t.Fatalf("round %d phase %s, want next round", s.Round, s.Phase)
	}
	for _, p := range s.Players {
		if p.GemsInTent != 2 || p.GemsInHand != 0 || p.RoundEndStatus != RoundSafe {
			t.Errorf("%s = %+v, want 2 banked", p.Name, p)
		}
	}
}

func TestStartRoundBuildsDeck(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := NewGame([]string{"ann", "bob"}, Refresh)
	s.Phase = RoundStart
	s.Round = 2
	s.ArtifactsDeck = []int{5, 10, 10}
	s.UnclaimedArtifacts = []Card{{ID: "A-5-1-0", Kind: Artifact, Value: 5}}
	s.Players[0].Status = Out
	s.Players[0].GemsInHand = 9

	s = mustApply(t, r, s, Action{Type: StartRound})

	if s.Phase != Decision {
		t.Fatalf("phase = %s, want first card revealed", s.Phase)
	}
	if len(s.Path) != 1 || len(s.GemsOnPath) != 1 {
		t.Fatalf("path %d gems %d, want one free reveal", len(s.Path), len(s.GemsOnPath))
	}
	if !reflect.DeepEqual(s.ArtifactsDeck, []int{10}) {
		t.Errorf("artifact supply = %v, want [10]", s.ArtifactsDeck)
	}
	if len(s.UnclaimedArtifacts) != 0 {
		t.Errorf("unclaimed = %v, want moved into deck", s.UnclaimedArtifacts)
	}

	_, _, artifacts := countKinds(append(append([]Card{}, s.Path...), s.Deck...))
	if artifacts != 3 {
		t.Errorf("artifacts in round = %d, want 3", artifacts)
	}

	total := len(s.Deck) + len(s.Path)
	if want := len(TreasureValues) + len(HazardKinds)*HazardsPerKind + 3; total != want {
		t.Errorf("cards = %d, want %d", total, want)
	}

	for _, p := range s.Players {
		if p.Status != In || p.RoundEndStatus != RoundIn {
			t.Errorf("%s not reset: %+v", p.Name, p)
		}
	}
	// noShuffle leaves treasure 1 on top.
	if s.Players[0].GemsInHand != 0 || s.GemsOnPath[0] != 1 {
		t.Errorf("first reveal split wrong: hand %d leftover %d", s.Players[0].GemsInHand, s.GemsOnPath[0])
	}
}

func TestStartRoundCapsArtifactSupply(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := NewGame([]string{"ann"}, Refresh)
	s.Phase = RoundStart
	s.Round = 3
	s.ArtifactsDeck = []int{10}

	s = mustApply(t, r, s, Action{Type: StartRound})

	if len(s.ArtifactsDeck) != 0 {
		t.Errorf("artifact supply = %v, want empty", s.ArtifactsDeck)
	}
	_, _, artifacts := countKinds(append(append([]Card{}, s.Path...), s.Deck...))
	if artifacts != 1 {
		t.Errorf("artifacts = %d, want 1", artifacts)
	}
}

func TestGameEndPicksWinner(t *testing.T) {
	tests := []struct {
		name  string
		tents []int
		art   []int
		want  int
	}{
		{name: "tie goes to first seat", tents: []int{10, 10, 4}, want: 0},
		{name: "strictly greater wins", tents: []int{10, 11, 4}, want: 1},
		{name: "artifacts count", tents: []int{10, 8, 4}, art: []int{0, 5, 0}, want: 1},
		{name: "all zero", tents: []int{0, 0, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReducer(noShuffle{})
			s := NewGame([]string{"ann", "bob", "cat"}, Refresh)
			s.Round = Rounds
			s.Phase = Decision
			s.Path = []Card{treasure(1)}
			s.GemsOnPath = []int{0}
			for i, v := range tt.tents {
				s.Players[i].GemsInTent = v
			}
			for i, v := range tt.art {
				if v > 0 {
					s.Players[i].Artifacts = []Card{artifact(v)}
				}
			}

			s = mustApply(t, r, s, Action{Type: DecisionsMade, Decisions: map[int]Choice{0: Leave, 1: Leave, 2: Leave}})

			if s.Phase != GameEnd || s.Round != Rounds+1 {
				t.Fatalf("phase %s round %d, want game end", s.Phase, s.Round)
			}
			if s.Winner == nil || s.Winner.Seat != tt.want {
				t.Fatalf("winner = %+v, want seat %d", s.Winner, tt.want)
			}
			if s.Winner.Score != tt.tents[tt.want]+s.Players[tt.want].ArtifactValue() {
				t.Errorf("winner score = %d", s.Winner.Score)
			}
		})
	}
}

func TestApplyRejectsInvalidActions(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := NewGame([]string{"ann"}, Refresh)

	tests := []struct {
		name string
		a    Action
		want error
	}{
		{"end round is internal", Action{Type: endRound}, ErrInternalAction},
		{"decisions in setup", Action{Type: DecisionsMade}, ErrWrongPhase},
		{"reveal in setup", Action{Type: RevealCard}, ErrWrongPhase},
		{"unknown", Action{Type: "JUMP"}, ErrUnknownAction},
		{"bad seat", Action{Type: PlayerDisconnected, Seat: 4}, ErrUnknownSeat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Apply(s, tt.a)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !reflect.DeepEqual(got, s) {
				t.Error("rejected action changed state")
			}
		})
	}
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	r := NewReducer(rand.New(rand.NewPCG(3, 4)))
	s := NewGame([]string{"ann", "bob", "cat"}, Persistent)

	s = mustApply(t, r, s, Action{Type: StartRound})
	before := s.Clone()

	next := mustApply(t, r, s, Action{Type: DecisionsMade, Decisions: map[int]Choice{0: Leave}})
	_ = mustApply(t, r, s, Action{Type: PlayerDisconnected, Seat: 2})

	if !reflect.DeepEqual(s, before) {
		t.Fatal("Apply modified its input state")
	}
	if reflect.DeepEqual(next, before) {
		t.Fatal("Apply returned an unchanged state")
	}
}

func TestPlayerDisconnected(t *testing.T) {
	r := NewReducer(noShuffle{})
	s := revealing([]string{"ann", "bob"}, treasure(3))

	s = mustApply(t, r, s, Action{Type: RevealCard})
	s = mustApply(t, r, s, Action{Type: PlayerDisconnected, Seat: 1})

	if s.Players[1].Status != Out {
		t.Errorf("bob status = %s, want OUT", s.Players[1].Status)
	}
	if got := s.Log[len(s.Log)-1]; got != "bob disconnected." {
		t.Errorf("last log = %q", got)
	}
	if !reflect.DeepEqual(s.Active(), []int{0}) {
		t.Errorf("active = %v, want [0]", s.Active())
	}

	s = mustApply(t, r, s, allStay(s))
	s = mustApply(t, r, s, Action{Type: StartRound})

	if s.Players[1].Status != Out || s.Players[0].Status != In {
		t.Errorf("statuses after new round = %s/%s, want IN/OUT", s.Players[0].Status, s.Players[1].Status)
	}
}

func sumTreasure(path []Card) int {
	total := 0
	for _, c := range path {
		if c.Kind == Treasure {
			total += c.Value
		}
	}
	return total
}

func sumHeld(s State) (tent, held int) {
	for _, p := range s.Players {
		tent += p.GemsInTent
		held += p.GemsInHand
	}
	for _, g := range s.GemsOnPath {
		held += g
	}
	return tent, held
}

func checkInvariants(t *testing.T, s State, tentBase int) {
	t.Helper()

	if len(s.Path) != len(s.GemsOnPath) {
		t.Fatalf("path %d and gems on path %d misaligned", len(s.Path), len(s.GemsOnPath))
	}

	seen := make(map[HazardKind]int)
	for _, c := range s.Path {
		if c.Kind == Hazard {
			seen[c.Hazard]++
		}
	}
	for k, n := range seen {
		if n > 2 {
			t.Fatalf("%s appeared %d times in one round", k, n)
		}
		if n == 2 {
			last := s.Path[len(s.Path)-1]
			if s.EndReason == nil || s.EndReason.Type != Disaster || last.Hazard != k {
				t.Fatalf("second %s did not end the round", k)
			}
		}
	}

	tent, held := sumHeld(s)
	gained := tent - tentBase + held
	revealed := sumTreasure(s.Path)

	if s.EndReason != nil && s.EndReason.Type == Disaster {
		if gained > revealed {
			t.Fatalf("gems created: %d held from %d revealed", gained, revealed)
		}
		return
	}
	if gained != revealed {
		t.Fatalf("gems not conserved: %d held from %d revealed", gained, revealed)
	}
}

func TestRandomGamesHoldInvariants(t *testing.T) {
	for seed := uint64(1); seed <= 200; seed++ {
		mode := Refresh
		if seed%2 == 0 {
			mode = Persistent
		}

		r := NewReducer(rand.New(rand.NewPCG(seed, seed*31)))
		choices := rand.New(rand.NewPCG(seed, 99))

		names := []string{"ann", "bob", "cat", "dan"}[:1+seed%4]
		s := NewGame(names, mode)
		tentBase := 0

		for steps := 0; s.Phase != GameEnd; steps++ {
			if steps > 10000 {
				t.Fatalf("seed %d: game did not finish", seed)
			}

			var a Action
			switch s.Phase {
			case Setup, RoundStart:
				tentBase, _ = sumHeld(s)
				a = Action{Type: StartRound}
			case Decision:
				d := make(map[int]Choice)
				for _, seat := range s.Active() {
					d[seat] = Stay
					if choices.IntN(4) == 0 {
						d[seat] = Leave
					}
				}
				a = Action{Type: DecisionsMade, Decisions: d}
			default:
				t.Fatalf("seed %d: unexpected phase %s", seed, s.Phase)
			}

			s = mustApply(t, r, s, a)
			checkInvariants(t, s, tentBase)
		}

		if s.Round != Rounds+1 || s.Winner == nil {
			t.Fatalf("seed %d: round %d winner %v", seed, s.Round, s.Winner)
		}
		for _, p := range s.Players {
			if p.Score > s.Winner.Score || (p.Score == s.Winner.Score && p.Seat < s.Winner.Seat) {
				t.Fatalf("seed %d: %s (%d) should beat winner %s (%d)", seed, p.Name, p.Score, s.Winner.Name, s.Winner.Score)
			}
		}
	}
}
