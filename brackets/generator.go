package brackets

import (
	"time"

	"github.com/Dorofeev01/matchday-system/models"
)

// GenerateParams is the full input of a fixture generator. Generation
// is a pure function of these values: the same parameters always
// produce the same schedule.
type GenerateParams struct {
	TournamentID int

	// TeamIDs in approval order (earliest approval first). The order is
	// the deterministic seed for pairing and bracket seeding.
	TeamIDs []int

	StartDate         time.Time
	DaysBetweenRounds int

	// Venues are assigned round-robin over this list; when empty,
	// DefaultVenue is used for every fixture.
	DefaultVenue string
	Venues       []string
}

// Fixture is one generated match before persistence. Team IDs are
// nullable so an elimination bracket can emit a placeholder whose other
// side is decided by a still-unplayed feeder match.
type Fixture struct {
	Round         int
	Slot          int
	HomeTeamID    *int
	AwayTeamID    *int
	ScheduledDate time.Time
	Venue         string
}

// Generator turns an approved team set into a conflict-free fixture
// list for one format.
type Generator interface {
	Generate(params GenerateParams) ([]Fixture, error)
	Format() models.TournamentFormat
}

// ForFormat returns the generator for the given format, or nil when the
// format is unknown.
func ForFormat(format models.TournamentFormat) Generator {
	switch format {
	case models.FormatRoundRobin:
		return NewRoundRobinGenerator()
	case models.FormatSingleElimination:
		return NewSingleEliminationGenerator()
	default:
		return nil
	}
}

func (p GenerateParams) venueFor(matchIndex int) string {
	if len(p.Venues) == 0 {
		return p.DefaultVenue
	}
	return p.Venues[matchIndex%len(p.Venues)]
}

func (p GenerateParams) dateFor(round int) time.Time {
	return p.StartDate.AddDate(0, 0, (round-1)*p.DaysBetweenRounds)
}
