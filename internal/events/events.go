package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"nearby-offers/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventCatalogStored is emitted when an offers catalog is stored
	EventCatalogStored EventType = "catalog.stored"
	// EventSelectionCompleted is emitted after nearby offers were selected
	EventSelectionCompleted EventType = "selection.completed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// CatalogStoredData contains data for catalog stored events.
type CatalogStoredData struct {
	Catalog models.Catalog
}

// SelectionCompletedData contains data for selection completed events.
type SelectionCompletedData struct {
	RunID     string
	CatalogID string // empty for ad hoc documents
	Checkin   time.Time
	Offers    []models.SelectedOffer
	CacheHit  bool
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	inflight sync.WaitGroup
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}
	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run on
// their own goroutines and outlive the caller's cancellation.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.enabled {
		return
	}
	handlers := m.handlers[eventType]
	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		m.inflight.Add(1)
		go func(h Handler) {
			defer m.inflight.Done()
			if err := h(ctx, event); err != nil {
				slog.Warn("event handler failed", "event", string(event.Type), "error", err)
			}
		}(handler)
	}
}

// PublishCatalogStored publishes a catalog stored event.
func (m *Manager) PublishCatalogStored(ctx context.Context, catalog models.Catalog) {
	m.Publish(ctx, EventCatalogStored, CatalogStoredData{Catalog: catalog})
}

// PublishSelectionCompleted publishes a selection completed event.
func (m *Manager) PublishSelectionCompleted(ctx context.Context, data SelectionCompletedData) {
	m.Publish(ctx, EventSelectionCompleted, data)
}

// Wait blocks until every handler started so far has returned.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Shutdown stops publishing and waits for running handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.inflight.Wait()
}
