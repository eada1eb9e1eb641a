package events

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler processes events on the bus. Handlers are called in priority order
// (lower value = called earlier) for the event types they declare.
type Handler interface {
	// ID returns a unique identifier for this handler.
	ID() string

	// Handles returns the event types this handler processes.
	Handles() []Type

	// Priority determines call order. Lower values are called first.
	Priority() int

	// Handle processes a single event. Returning an error logs a warning
	// but does not stop the handler chain.
	Handle(ctx context.Context, event *Event) error
}

// Publisher is the narrow view producers depend on.
type Publisher interface {
	Publish(ctx context.Context, event *Event)
}

// Bus dispatches events to registered handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *zap.Logger
}

// NewBus creates an empty bus. A nil logger discards handler failures.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Register adds a handler. Registration order does not matter; handlers are
// sorted by priority on each Publish.
func (b *Bus) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Handlers returns all registered handlers (for introspection).
func (b *Bus) Handlers() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, len(b.handlers))
	copy(out, b.handlers)
	return out
}

// Publish stamps the event with an id and timestamp when missing and hands
// it to every matching handler. It never fails.
func (b *Bus) Publish(ctx context.Context, event *Event) {
	if event == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = timeNow().UTC()
	}

	b.mu.RLock()
	matching := b.matchingHandlers(event.Type)
	b.mu.RUnlock()

	for _, h := range matching {
		if err := ctx.Err(); err != nil {
			b.logger.Warn("event dispatch cancelled",
				zap.String("event", string(event.Type)),
				zap.String("feature", event.FeatureID),
				zap.Error(err))
			return
		}
		if err := b.call(ctx, h, event); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("handler", h.ID()),
				zap.String("event", string(event.Type)),
				zap.String("feature", event.FeatureID),
				zap.Error(err))
		}
	}
}

// call runs one handler, turning a panic into an error.
func (b *Bus) call(ctx context.Context, h Handler, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}

// matchingHandlers returns handlers for eventType sorted by priority.
// Must be called with at least a read lock held.
func (b *Bus) matchingHandlers(eventType Type) []Handler {
	var matched []Handler
	for _, h := range b.handlers {
		for _, t := range h.Handles() {
			if t == eventType {
				matched = append(matched, h)
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority() < matched[j].Priority()
	})
	return matched
}

var timeNow = time.Now
