package notify

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"CampaignScraper/internal/models"

	"github.com/google/uuid"
)

// ErrUnknownPrompt is returned when answering a prompt that is not pending.
var ErrUnknownPrompt = errors.New("unknown or expired prompt")

// InApp is the embedded application log. It keeps the most recent events,
// streams new ones to subscribers and collects answers to pending prompts.
type InApp struct {
	mu       sync.Mutex
	events   []models.Event
	capacity int
	subs     map[chan models.Event]struct{}
	pending  map[string]chan bool
	now      func() time.Time
}

// NewInApp creates an in-app channel that remembers up to capacity events.
func NewInApp(capacity int) *InApp {
	if capacity <= 0 {
		capacity = 200
	}
	return &InApp{
		capacity: capacity,
		subs:     make(map[chan models.Event]struct{}),
		pending:  make(map[string]chan bool),
		now:      time.Now,
	}
}

func (c *InApp) Name() string { return "in-app" }

// Send records msg as an event.
func (c *InApp) Send(_ context.Context, msg Message) error {
	kind := msg.Kind
	if kind == "" {
		kind = models.KindInfo
		if msg.Product != nil {
			kind = models.KindInStock
		}
	}
	c.Publish(models.Event{Kind: kind, Text: msg.Text, Product: msg.Product})
	return nil
}

// Publish stamps ev, stores it and forwards it to subscribers. Slow
// subscribers miss events rather than block the publisher.
func (c *InApp) Publish(ev models.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = c.now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, ev)
	if len(c.events) > c.capacity {
		c.events = append([]models.Event(nil), c.events[len(c.events)-c.capacity:]...)
	}
	for sub := range c.subs {
		select {
		case sub <- ev:
		default:
			log.Println("[in-app] subscriber is too slow, dropping event")
		}
	}
}

// Recent returns a copy of the stored events, oldest first.
func (c *InApp) Recent() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.events...)
}

// Subscribe returns a stream of new events and a function that ends the subscription.
func (c *InApp) Subscribe() (<-chan models.Event, func()) {
	sub := make(chan models.Event, 32)

	c.mu.Lock()
	c.subs[sub] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return sub, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, sub)
			c.mu.Unlock()
			close(sub)
		})
	}
}

// Ask publishes an interactive event and waits for Answer with its ID.
func (c *InApp) Ask(ctx context.Context, p Prompt) (bool, error) {
	id := uuid.NewString()
	answer := make(chan bool, 1)

	c.mu.Lock()
	c.pending[id] = answer
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	product := p.Product
	c.Publish(models.Event{
		ID:                 id,
		Kind:               models.KindInStock,
		Text:               p.Text,
		Product:            &product,
		InteractiveOptions: []string{"yes", "no"},
	})

	select {
	case yes := <-answer:
		return yes, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Answer resolves the pending prompt id. Each prompt accepts one answer.
func (c *InApp) Answer(id string, yes bool) error {
	c.mu.Lock()
	answer, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		return ErrUnknownPrompt
	}
	answer <- yes
	return nil
}

// Pending returns the IDs of prompts still waiting for an answer.
func (c *InApp) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	return ids
}
