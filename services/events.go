package services

import "github.com/Dorofeev01/matchday-system/models"

// EventPublisher receives the domain events the core emits on approval
// decisions, fixture generation, results and status changes. The
// websocket hub implements it; notification senders are expected to
// subscribe the same way.
type EventPublisher interface {
	Publish(event models.DomainEvent)
}

// NopPublisher discards events; used in tests and as a safe default.
type NopPublisher struct{}

func (NopPublisher) Publish(models.DomainEvent) {}
