package event_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tnhann/GoatDevelopers/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			published   []event.Event
			subscribers []subscriber
		}

		outputs struct {
			received map[string][]event.Event
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"a subscriber only receives the events it subscribed to": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("quiz.finished"),
						eventWithName("stats.updated"),
					},
					subscribers: []subscriber{
						{
							name:        "stats",
							subscribeTo: []string{"quiz.finished"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("quiz.finished")}, out.received["stats"])
			},
		},

		"a subscriber receives every publication of its event": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("quiz.timer.tick"),
						eventWithName("quiz.timer.tick"),
						eventWithName("quiz.timer.tick"),
					},
					subscribers: []subscriber{
						{
							name:        "notifier",
							subscribeTo: []string{"quiz.timer.tick"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.Len(t, out.received["notifier"], 3)
			},
		},

		"an event fans out to all its subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("quiz.finished"),
					},
					subscribers: []subscriber{
						{
							name:        "stats",
							subscribeTo: []string{"quiz.finished"},
						},
						{
							name:        "notifier",
							subscribeTo: []string{"quiz.finished"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("quiz.finished")}, out.received["stats"])
				assert.ElementsMatch(t, []event.Event{eventWithName("quiz.finished")}, out.received["notifier"])
			},
		},

		"mixed events route to the right subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("quiz.finished"),
						eventWithName("list.created"),
						eventWithName("quiz.finished"),
						eventWithName("stats.updated"),
					},
					subscribers: []subscriber{
						{
							name:        "stats",
							subscribeTo: []string{"quiz.finished", "list.created"},
						},
						{
							name:        "notifier",
							subscribeTo: []string{"quiz.finished", "stats.updated"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{
					eventWithName("quiz.finished"), eventWithName("quiz.finished"), eventWithName("list.created"),
				}, out.received["stats"])
				assert.ElementsMatch(t, []event.Event{
					eventWithName("quiz.finished"), eventWithName("quiz.finished"), eventWithName("stats.updated"),
				}, out.received["notifier"])
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			mu := sync.Mutex{}
			out := outputs{received: make(map[string][]event.Event)}

			b := event.NewBus()
			for _, s := range in.subscribers {
				s := s
				for _, e := range s.subscribeTo {
					b.Subscribe(e, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						out.received[s.name] = append(out.received[s.name], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range in.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

func TestBus_PanickingHandler(t *testing.T) {
	b := event.NewBus()

	var delivered int
	mu := sync.Mutex{}

	b.Subscribe("quiz.finished", func(ctx context.Context, e event.Event) error {
		panic("handler blew up")
	})
	b.Subscribe("quiz.finished", func(ctx context.Context, e event.Event) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	})

	b.Publish(context.Background(), eventWithName("quiz.finished"))
	b.Publish(context.Background(), eventWithName("quiz.finished"))
	b.Stop()

	// A panicking sibling never takes the healthy handler down with it.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, delivered)
}

type eventWithName string

func (e eventWithName) Name() string {
	return string(e)
}

type subscriber struct {
	name        string
	subscribeTo []string
}
