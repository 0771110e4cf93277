package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"alumnet/internal/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Handle(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(8, logger.Nop(), rec)

	d.Emit(context.Background(), New(OfferCreated, uuid.New(), uuid.New()))
	d.Emit(context.Background(), New(RequestCreated, uuid.New(), uuid.New()))
	d.Close()

	assert.Equal(t, []Type{OfferCreated, RequestCreated}, rec.types())
	assert.Zero(t, d.Dropped())
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	blocking := SubscriberFunc{Label: "blocking", Fn: func(context.Context, Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}}
	d := NewDispatcher(1, logger.Nop(), blocking)

	d.Emit(context.Background(), New(OfferCreated, uuid.New(), uuid.New()))
	<-started
	// the loop is parked inside the subscriber; one slot is free
	d.Emit(context.Background(), New(RequestCreated, uuid.New(), uuid.New()))

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), New(RequestCancelled, uuid.New(), uuid.New()))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}

	assert.Equal(t, int64(1), d.Dropped())
	close(release)
	d.Close()
}

func TestDispatcher_SurvivesFailingSubscribers(t *testing.T) {
	rec := &recorder{}
	failing := SubscriberFunc{Label: "failing", Fn: func(context.Context, Event) error { return errors.New("boom") }}
	panicking := SubscriberFunc{Label: "panicking", Fn: func(context.Context, Event) error { panic("boom") }}
	d := NewDispatcher(4, logger.Nop(), failing, panicking)
	d.Subscribe(rec)

	d.Emit(context.Background(), New(DisputeRaised, uuid.New(), uuid.New()))
	d.Close()

	assert.Equal(t, []Type{DisputeRaised}, rec.types())
}

func TestDispatcher_EmitAfterCloseIsIgnored(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(4, nil, rec)
	d.Close()
	d.Close()

	assert.NotPanics(t, func() {
		d.Emit(context.Background(), New(OfferCreated, uuid.New(), uuid.New()))
	})
	assert.Empty(t, rec.types())
}

func TestEvent_WithDataCopies(t *testing.T) {
	base := New(FeedbackSubmitted, uuid.New(), uuid.New())
	a := base.WithData("rating", 5)
	b := a.WithData("comment", "great")

	assert.Nil(t, base.Data)
	assert.Len(t, a.Data, 1)
	assert.Len(t, b.Data, 2)
}

func TestToPublishing(t *testing.T) {
	recipient := uuid.New()
	ev := New(TransactionOpened, uuid.New(), uuid.New(), recipient).WithData("is_balanced", true)

	msg, err := toPublishing(ev)
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, string(TransactionOpened), msg.Type)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, []uuid.UUID{recipient}, decoded.Recipients)
	assert.Equal(t, true, decoded.Data["is_balanced"])
}

func TestPublisherConfig_Validate(t *testing.T) {
	assert.Error(t, PublisherConfig{}.Validate())
	assert.Error(t, PublisherConfig{URL: "amqp://localhost"}.Validate())
	assert.NoError(t, PublisherConfig{URL: "amqp://localhost", ExchangeName: "swaps"}.Validate())
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	d := NewDispatcher(1, nil)
	defer d.Close()
	assert.Same(t, d, OrNop(d))
}
