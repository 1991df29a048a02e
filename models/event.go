package models

// DomainEventType identifies an event emitted by the core for
// collaborators (notification senders, websocket rooms) to consume.
type DomainEventType string

const (
	EventTeamApproved            DomainEventType = "TEAM_APPROVED"
	EventTeamRejected            DomainEventType = "TEAM_REJECTED"
	EventFixturesGenerated       DomainEventType = "FIXTURES_GENERATED"
	EventMatchResultRecorded     DomainEventType = "MATCH_RESULT_RECORDED"
	EventTournamentStatusChanged DomainEventType = "TOURNAMENT_STATUS_CHANGED"
)

// DomainEvent carries no behavior; the core does not format or send
// notifications itself.
type DomainEvent struct {
	Type         DomainEventType `json:"type"`
	TournamentID int             `json:"tournament_id"`
	Payload      interface{}     `json:"payload,omitempty"`
}
