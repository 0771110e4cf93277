// Package events fans swap lifecycle notifications out to subscribers.
// Emitting never blocks the caller: when the buffer is full the event is
// dropped and counted.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	OfferCreated         Type = "offer.created"
	RequestCreated       Type = "request.created"
	RequestResponded     Type = "request.responded"
	RequestNegotiation   Type = "request.negotiation"
	RequestMessage       Type = "request.message"
	RequestConfirmed     Type = "request.confirmed"
	RequestStarted       Type = "request.started"
	RequestCompleted     Type = "request.completed"
	RequestCancelled     Type = "request.cancelled"
	TransactionOpened    Type = "transaction.opened"
	TransactionCompleted Type = "transaction.completed"
	TransactionCancelled Type = "transaction.cancelled"
	FeedbackSubmitted    Type = "feedback.submitted"
	DisputeRaised        Type = "dispute.raised"
	DisputeResolved      Type = "dispute.resolved"
)

// Event is one notification. Recipients are the users who should hear about it.
type Event struct {
	ID         uuid.UUID              `json:"id"`
	Type       Type                   `json:"type"`
	EntityID   uuid.UUID              `json:"entity_id"`
	ActorID    uuid.UUID              `json:"actor_id"`
	Recipients []uuid.UUID            `json:"recipients"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// New stamps an event with an id and the current time.
func New(t Type, entityID, actorID uuid.UUID, recipients ...uuid.UUID) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		EntityID:   entityID,
		ActorID:    actorID,
		Recipients: recipients,
		OccurredAt: time.Now().UTC(),
	}
}

// WithData returns a copy of e carrying the given key/value pair.
func (e Event) WithData(key string, value interface{}) Event {
	data := make(map[string]interface{}, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}

// Emitter is what services depend on.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Subscriber receives every dispatched event on the dispatcher goroutine.
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, ev Event) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc struct {
	Label string
	Fn    func(ctx context.Context, ev Event) error
}

func (f SubscriberFunc) Name() string { return f.Label }

func (f SubscriberFunc) Handle(ctx context.Context, ev Event) error { return f.Fn(ctx, ev) }

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, Event) {}

// Nop discards every event.
func Nop() Emitter { return nopEmitter{} }

// OrNop lets services accept a nil emitter.
func OrNop(e Emitter) Emitter {
	if e == nil {
		return Nop()
	}
	return e
}
