// Package notify fans human readable events out to the enabled channels and
// runs yes/no confirmation prompts across all of them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"CampaignScraper/internal/models"
)

// Message is a one-way notification with an optional product attachment.
type Message struct {
	Kind    models.EventKind
	Text    string
	Product *models.EventProduct
}

// Prompt is a yes/no question about a product.
type Prompt struct {
	Text    string
	Product models.EventProduct
}

// Channel is one notification backend.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
	// Ask blocks until the user answers or ctx is done. It must stop listening
	// for answers before it returns.
	Ask(ctx context.Context, p Prompt) (bool, error)
}

// Cleaner is implemented by channels that can remove their own stale messages.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// Sink is what the controller and the order workflow talk to.
type Sink interface {
	Notify(ctx context.Context, msg Message)
	PromptConfirmation(ctx context.Context, p Prompt) bool
	CleanupStale(ctx context.Context)
}

// ChannelNotFoundError means a configured chat channel could not be resolved.
type ChannelNotFoundError struct {
	ChannelID string
	Err       error
}

func (e *ChannelNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("channel %q not found: %v", e.ChannelID, e.Err)
	}
	return fmt.Sprintf("channel %q not found", e.ChannelID)
}

func (e *ChannelNotFoundError) Unwrap() error {
	return e.Err
}

const sendTimeout = 15 * time.Second

// Hub is the Sink over a fixed set of channels.
type Hub struct {
	channels      []Channel
	promptTimeout time.Duration
	onCleaned     func(int)
}

// NewHub builds a hub. A zero promptTimeout means 60 seconds.
func NewHub(promptTimeout time.Duration, channels ...Channel) *Hub {
	if promptTimeout <= 0 {
		promptTimeout = 60 * time.Second
	}
	return &Hub{channels: channels, promptTimeout: promptTimeout}
}

// OnCleaned registers a callback receiving the number of messages each cleanup removed.
func (h *Hub) OnCleaned(fn func(int)) {
	h.onCleaned = fn
}

// Notify sends msg to every channel concurrently. Failures are logged and never
// returned; one channel failing does not affect the others. Delivery is not
// aborted by cancellation of ctx so that shutdown messages still go out.
func (h *Hub) Notify(ctx context.Context, msg Message) {
	log.Printf("[notify] %s", msg.Text)
	if len(h.channels) == 0 {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, ch := range h.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			if err := ch.Send(sendCtx, msg); err != nil {
				logChannelError(ch, "send", err)
			}
		}(ch)
	}
	wg.Wait()
}

// PromptConfirmation asks every channel at once and returns the first answer.
// No answer within the prompt timeout, no channels, or cancellation of ctx all
// resolve to false. Pending listeners are released before it returns.
func (h *Hub) PromptConfirmation(ctx context.Context, p Prompt) bool {
	if len(h.channels) == 0 {
		log.Printf("[notify] no channel enabled to confirm %q, treating as no", p.Product.Title)
		return false
	}

	askCtx, cancel := context.WithTimeout(ctx, h.promptTimeout)
	defer cancel()

	type answer struct {
		yes bool
		err error
		ch  Channel
	}
	answers := make(chan answer, len(h.channels))
	for _, ch := range h.channels {
		go func(ch Channel) {
			yes, err := ch.Ask(askCtx, p)
			answers <- answer{yes: yes, err: err, ch: ch}
		}(ch)
	}

	for remaining := len(h.channels); remaining > 0; remaining-- {
		select {
		case a := <-answers:
			if a.err == nil {
				log.Printf("[notify] %s answered %v for %q", a.ch.Name(), a.yes, p.Product.Title)
				return a.yes
			}
			if !errors.Is(a.err, context.DeadlineExceeded) && !errors.Is(a.err, context.Canceled) {
				logChannelError(a.ch, "prompt", a.err)
			}
		case <-askCtx.Done():
			log.Printf("[notify] no answer for %q: %v", p.Product.Title, askCtx.Err())
			return false
		}
	}
	return false
}

// CleanupStale asks every channel that supports it to delete its stale messages.
func (h *Hub) CleanupStale(ctx context.Context) {
	for _, ch := range h.channels {
		cleaner, ok := ch.(Cleaner)
		if !ok {
			continue
		}
		n, err := cleaner.CleanupExpired(ctx)
		if err != nil {
			logChannelError(ch, "cleanup", err)
		}
		if n > 0 {
			log.Printf("[notify] %s: removed %d expired messages", ch.Name(), n)
			if h.onCleaned != nil {
				h.onCleaned(n)
			}
		}
	}
}

func logChannelError(ch Channel, op string, err error) {
	var notFound *ChannelNotFoundError
	if errors.As(err, &notFound) {
		log.Printf("[notify] %s %s: %v", ch.Name(), op, notFound)
		return
	}
	log.Printf("[notify] %s %s failed: %v", ch.Name(), op, err)
}
