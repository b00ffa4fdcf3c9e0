package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const eventChanSize = 256

// Notifier receives events emitted by the book. Implementations must not
// block the caller.
type Notifier interface {
	Notify(Event)
}

// Sink is a delivery target for broadcast events.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Discard is a Notifier that drops every event.
type Discard struct{}

func (Discard) Notify(Event) {}

// Broadcaster fans events out to a set of sinks from a single dispatch
// goroutine. Notify never blocks: if the buffer is full the event is
// dropped and logged, publishing failures are logged and do not stop
// the loop.
type Broadcaster struct {
	sinks  []Sink
	events chan Event
	cancel context.CancelFunc
}

func NewBroadcaster(sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		sinks:  sinks,
		events: make(chan Event, eventChanSize),
	}
}

func (b *Broadcaster) Notify(event Event) {
	select {
	case b.events <- event:
	default:
		log.Warn().
			Str("kind", event.GetKind().String()).
			Str("uuid", event.GetID()).
			Msg("event buffer full, dropping event")
	}
}

// Run dispatches until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	t.Go(func() error {
		for {
			select {
			case <-t.Dying():
				return nil
			case event := <-b.events:
				b.dispatch(ctx, event)
			}
		}
	})

	log.Info().Int("sinks", len(b.sinks)).Msg("broadcaster running")
	if err := t.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (b *Broadcaster) Shutdown() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Broadcaster) dispatch(ctx context.Context, event Event) {
	for _, sink := range b.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			log.Error().
				Err(err).
				Str("kind", event.GetKind().String()).
				Str("uuid", event.GetID()).
				Msg("sink rejected event")
		}
	}
}
