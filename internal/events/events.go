package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"pdf-preview/internal/logging"
)

// Kind identifies an event type on the bus.
type Kind string

const (
	// KindDocumentProcessed fires after a processing attempt completes,
	// whether or not the preview sub-step succeeded.
	KindDocumentProcessed Kind = "document.processed"
	// KindPreviewGenerated fires only when a preview file was written.
	KindPreviewGenerated Kind = "preview.generated"
)

// Event is one notification delivered to subscribers.
type Event struct {
	ID      string
	Kind    Kind
	Time    time.Time
	Payload interface{}
}

// DocumentProcessedPayload accompanies KindDocumentProcessed.
type DocumentProcessedPayload struct {
	DocumentID   int64
	MetadataOK   bool
	PreviewOK    bool
	PreviewError string
}

// PreviewGeneratedPayload accompanies KindPreviewGenerated.
type PreviewGeneratedPayload struct {
	DocumentID  int64
	PreviewPath string
	Method      string
}

// Handler receives events for a subscribed kind.
type Handler func(Event)

// Bus is an in-process publish/subscribe fanout. Delivery is asynchronous
// and fire-and-forget: a slow subscriber never blocks the publisher or
// the processing pipeline.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// Subscribe registers fn for events of the given kind.
func (b *Bus) Subscribe(kind Kind, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], fn)
}

// Publish delivers an event of the given kind to all subscribers. Each
// handler runs on its own goroutine; panics are contained so one broken
// subscriber cannot take down the process.
func (b *Bus) Publish(kind Kind, payload interface{}) {
	event := Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		Time:    time.Now(),
		Payload: payload,
	}

	b.mu.RLock()
	handlers := b.handlers[kind]
	b.mu.RUnlock()

	for _, fn := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					logging.Error("event handler panic for %s: %v", kind, r)
				}
			}()
			h(event)
		}(fn)
	}

	logging.Debug("published %s event %s to %d subscribers", kind, event.ID, len(handlers))
}
