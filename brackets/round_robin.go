package brackets

import (
	"fmt"

	"github.com/Dorofeev01/matchday-system/models"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() Generator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) Format() models.TournamentFormat {
	return models.FormatRoundRobin
}

// Generate builds a single round-robin schedule with the circle method
// in its table form: teams take indexes 0..N-1 in approval order, one
// index stays fixed and the rest rotate, which is equivalent to pairing
// indexes i and j in round r+1 whenever i+j ≡ r (mod N-1). An odd team
// count is padded with a synthetic bye index whose pairings are
// omitted, so the paired team sits out that round.
//
// Home sides follow the standard table rule: the fixed index alternates
// home and away by round, and in every other pair the lower index is
// home exactly when the index gap is odd. This keeps each team's home
// count within one of half its matches.
func (g *RoundRobinGenerator) Generate(params GenerateParams) ([]Fixture, error) {
	teams := params.TeamIDs
	if len(teams) < 2 {
		return nil, fmt.Errorf("round robin: need at least 2 teams, got %d", len(teams))
	}

	padded := len(teams)
	if padded%2 != 0 {
		padded++ // index padded-1 becomes the bye
	}
	m := padded - 1 // rounds, and the pairing modulus

	fixtures := make([]Fixture, 0, len(teams)*(len(teams)-1)/2)
	matchIndex := 0

	for r := 0; r < m; r++ {
		round := r + 1
		slot := 0
		seen := make(map[int]bool, padded)

		emit := func(homeIdx, awayIdx int) error {
			if homeIdx >= len(teams) || awayIdx >= len(teams) {
				return nil // bye pairing, omitted
			}
			home, away := teams[homeIdx], teams[awayIdx]
			if seen[home] || seen[away] {
				return fmt.Errorf("round robin: team scheduled twice in round %d", round)
			}
			seen[home] = true
			seen[away] = true

			slot++
			h, a := home, away
			fixtures = append(fixtures, Fixture{
				Round:         round,
				Slot:          slot,
				HomeTeamID:    &h,
				AwayTeamID:    &a,
				ScheduledDate: params.dateFor(round),
				Venue:         params.venueFor(matchIndex),
			})
			matchIndex++
			return nil
		}

		// The fixed index meets the i with 2i ≡ r (mod m); m is odd so 2
		// has inverse (m+1)/2.
		fixedOpp := r * (m + 1) / 2 % m
		var err error
		if r%2 == 0 {
			err = emit(fixedOpp, padded-1)
		} else {
			err = emit(padded-1, fixedOpp)
		}
		if err != nil {
			return nil, err
		}

		for i := 0; i < m; i++ {
			j := ((r - i) % m + m) % m
			if j <= i {
				continue
			}
			if (j-i)%2 == 1 {
				err = emit(i, j)
			} else {
				err = emit(j, i)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	want := len(teams) * (len(teams) - 1) / 2
	if len(fixtures) != want {
		return nil, fmt.Errorf("round robin: generated %d matches, expected %d", len(fixtures), want)
	}
	return fixtures, nil
}
