package brackets

import (
	"fmt"
	"math/bits"

	"github.com/Dorofeev01/matchday-system/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Format() models.TournamentFormat {
	return models.FormatSingleElimination
}

// BracketSize returns the team count padded up to the next power of two.
func BracketSize(teams int) int {
	size := 1
	for size < teams {
		size <<= 1
	}
	if size < 2 {
		size = 2
	}
	return size
}

// TotalRounds returns the number of bracket rounds for n real teams.
func TotalRounds(teams int) int {
	return bits.Len(uint(BracketSize(teams) - 1))
}

// NextSlot is the slot a match feeds in the following round.
func NextSlot(slot int) int { return (slot + 1) / 2 }

// SiblingSlot is the other match feeding the same next-round slot.
func SiblingSlot(slot int) int {
	if slot%2 == 1 {
		return slot + 1
	}
	return slot - 1
}

// IsUpperFeed reports whether a slot feeds the home side of the
// next-round match. Odd slots feed home, even slots feed away.
func IsUpperFeed(slot int) bool { return slot%2 == 1 }

// bracketSeeds returns the seed numbers in round-1 position order for
// the standard bracket layout: positions 2k-1 and 2k form slot k, and
// slot k pairs seed i against seed size+1-i, keeping top seeds in
// opposite halves for as long as possible.
func bracketSeeds(size int) []int {
	seeds := []int{1}
	for len(seeds) < size {
		mirror := len(seeds)*2 + 1
		next := make([]int, 0, len(seeds)*2)
		for _, s := range seeds {
			next = append(next, s, mirror-s)
		}
		seeds = next
	}
	return seeds
}

// Generate produces the immediately known part of a single-elimination
// bracket. Teams are seeded by approval order (earliest approval is
// seed 1) and the count is padded to a power of two with byes, which
// occupy the lowest seed positions so a bye can never meet another bye.
//
// Matches are emitted only when at least one side is already decided:
// all real round-1 pairings, plus any later-round match whose feeding
// slots were resolved by byes. A match with one undecided side is a
// placeholder; the empty side is filled in when the feeding match
// completes. Slots with no decided side at all are created lazily as
// results arrive. Byes never produce a match row.
func (g *SingleEliminationGenerator) Generate(params GenerateParams) ([]Fixture, error) {
	teams := params.TeamIDs
	n := len(teams)
	if n < 2 {
		return nil, fmt.Errorf("single elimination: need at least 2 teams, got %d", n)
	}

	size := BracketSize(n)
	totalRounds := TotalRounds(n)

	// Round-1 nodes in bracket position order: a team ID, or nil for a
	// bye slot.
	nodes := make([]*int, size)
	for pos, seed := range bracketSeeds(size) {
		if seed <= n {
			id := teams[seed-1]
			nodes[pos] = &id
		}
	}

	fixtures := make([]Fixture, 0, n-1)
	matchIndex := 0

	for round := 1; round <= totalRounds; round++ {
		next := make([]*int, 0, len(nodes)/2)
		for slot := 1; slot*2 <= len(nodes); slot++ {
			a := nodes[slot*2-2]
			b := nodes[slot*2-1]

			if round == 1 {
				switch {
				case a == nil && b == nil:
					return nil, fmt.Errorf("single elimination: two byes paired in slot %d", slot)
				case a == nil:
					next = append(next, b) // bye, b advances
					continue
				case b == nil:
					next = append(next, a) // bye, a advances
					continue
				}
			} else if a == nil && b == nil {
				// Both sides depend on unplayed matches; created lazily.
				next = append(next, nil)
				continue
			}

			fixtures = append(fixtures, Fixture{
				Round:         round,
				Slot:          slot,
				HomeTeamID:    a,
				AwayTeamID:    b,
				ScheduledDate: params.dateFor(round),
				Venue:         params.venueFor(matchIndex),
			})
			matchIndex++
			next = append(next, nil) // winner undecided
		}
		nodes = next
	}

	return fixtures, nil
}
