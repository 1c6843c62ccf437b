/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package expedition

// CardKind tags the variant held by a Card.
type CardKind string

const (
	Treasure      CardKind = "TREASURE"
	Hazard        CardKind = "HAZARD"
	Artifact      CardKind = "ARTIFACT"
	TakenArtifact CardKind = "TAKEN_ARTIFACT"
)

// HazardKind names one of the five hazard families.
type HazardKind string

const (
	Rock      HazardKind = "ROCK"
	Scorpion  HazardKind = "SCORPION"
	Snake     HazardKind = "SNAKE"
	Gas       HazardKind = "GAS"
	Explosion HazardKind = "EXPLOSION"
)

// HazardKinds lists every hazard family in deck order.
var HazardKinds = []HazardKind{Rock, Scorpion, Snake, Gas, Explosion}

var hazardLabels = map[HazardKind]string{
	Rock:      "Rockslide",
	Scorpion:  "Scorpions",
	Snake:     "Snakes",
	Gas:       "Poison gas",
	Explosion: "Explosion",
}

// Label returns the display name of a hazard kind.
func (k HazardKind) Label() string {
	if l, ok := hazardLabels[k]; ok {
		return l
	}
	return string(k)
}

const (
	// HazardsPerKind is the number of copies of each hazard in a fresh deck.
	HazardsPerKind = 6

	// Rounds is the length of a game.
	Rounds = 5
)

// TreasureValues is the fixed treasure multiset used every round.
var TreasureValues = []int{1, 2, 3, 4, 5, 5, 7, 7, 9, 11, 11, 13, 14, 15, 17}

// ArtifactValues is the artifact supply, introduced in order as rounds start.
var ArtifactValues = []int{5, 5, 5, 10, 10}

// Card is a single revealed or undrawn card. Value is set for treasures and
// artifacts, Hazard only for hazards.
type Card struct {
	ID     string     `json:"id"`
	Kind   CardKind   `json:"type"`
	Value  int        `json:"value,omitempty"`
	Hazard HazardKind `json:"hazardType,omitempty"`
	Label  string     `json:"label,omitempty"`
}
