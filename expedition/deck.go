/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package expedition

import "fmt"

// Shuffler permutes n elements through swap. *rand.Rand from math/rand/v2
// satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// GenerateDeck builds and shuffles the treasure and hazard cards for one
// round. Artifacts are never included; the reducer adds them.
//
// In PERSISTENT mode every hazard recorded in removed takes one card of
// that kind out of the deck. round is accepted for future per-round scaling.
func GenerateDeck(round int, mode Mode, removed []HazardKind, shuffler Shuffler) []Card {
	deck := make([]Card, 0, len(TreasureValues)+len(HazardKinds)*HazardsPerKind)

	for i, v := range TreasureValues {
		deck = append(deck, Card{
			ID:    fmt.Sprintf("T-%d-%d", v, i),
			Kind:  Treasure,
			Value: v,
		})
	}

	gone := make(map[HazardKind]int, len(HazardKinds))
	if mode == Persistent {
		for _, h := range removed {
			gone[h]++
		}
	}

	for _, h := range HazardKinds {
		count := HazardsPerKind - gone[h]
		for i := 0; i < count; i++ {
			deck = append(deck, Card{
				ID:     fmt.Sprintf("H-%s-%d", h, i),
				Kind:   Hazard,
				Hazard: h,
				Label:  h.Label(),
			})
		}
	}

	shuffle(deck, shuffler)

	return deck
}

func shuffle(cards []Card, shuffler Shuffler) {
	if shuffler == nil {
		return
	}

	shuffler.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
