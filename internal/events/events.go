package events

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ===============================
// EVENT INTERFACE
// ===============================

// Event represents a domain event
type Event interface {
	GetEventID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetUserID() *int64
	GetMetadata() map[string]interface{}
}

// BaseEvent provides common event functionality
type BaseEvent struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	UserID    *int64                 `json:"user_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a fresh event envelope
func NewBaseEvent(eventType string, userID *int64) BaseEvent {
	return BaseEvent{
		EventID:   GenerateEventID(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
	}
}

func (e *BaseEvent) GetEventID() string                  { return e.EventID }
func (e *BaseEvent) GetEventType() string                { return e.EventType }
func (e *BaseEvent) GetTimestamp() time.Time             { return e.Timestamp }
func (e *BaseEvent) GetUserID() *int64                   { return e.UserID }
func (e *BaseEvent) GetMetadata() map[string]interface{} { return e.Metadata }

// ===============================
// EVENT BUS INTERFACE
// ===============================

// EventBus defines the event publishing and subscription interface
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event) error

	Subscribe(eventType string, handler EventHandler) error
	SubscribePattern(pattern string, handler EventHandler) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() error
	Stats() *EventBusStats
}

// EventHandler represents an event handler
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	GetHandlerID() string
}

// EventHandlerFunc adapts a function to EventHandler
type EventHandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event Event) error
}

// Handle implements EventHandler
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Func(ctx, event)
}

// GetHandlerID implements EventHandler
func (f EventHandlerFunc) GetHandlerID() string {
	return f.ID
}

// EventBusStats represents event bus statistics
type EventBusStats struct {
	EventsPublished int64         `json:"events_published"`
	EventsProcessed int64         `json:"events_processed"`
	EventsFailed    int64         `json:"events_failed"`
	EventsDropped   int64         `json:"events_dropped"`
	HandlersCount   int           `json:"handlers_count"`
	QueueDepth      int           `json:"queue_depth"`
	Uptime          time.Duration `json:"uptime"`
}

// EventBusConfig holds configuration for the event bus
type EventBusConfig struct {
	BufferSize     int
	WorkerCount    int
	HandlerTimeout time.Duration
}

// DefaultEventBusConfig returns default configuration
func DefaultEventBusConfig() *EventBusConfig {
	return &EventBusConfig{
		BufferSize:     1000,
		WorkerCount:    4,
		HandlerTimeout: 30 * time.Second,
	}
}

// ===============================
// IN-MEMORY EVENT BUS
// ===============================

type inMemoryEventBus struct {
	mu              sync.RWMutex
	handlers        map[string][]EventHandler
	patternHandlers map[string][]EventHandler

	queue          chan eventMessage
	logger         *zap.Logger
	workerCount    int
	handlerTimeout time.Duration
	startTime      time.Time

	published, processed, failed, dropped atomic.Int64

	startOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

type eventMessage struct {
	ctx   context.Context
	event Event
}

// NewEventBus creates a new in-memory event bus. Async delivery begins after Start.
func NewEventBus(config *EventBusConfig, logger *zap.Logger) EventBus {
	if config == nil {
		config = DefaultEventBusConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.HandlerTimeout <= 0 {
		config.HandlerTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &inMemoryEventBus{
		handlers:        make(map[string][]EventHandler),
		patternHandlers: make(map[string][]EventHandler),
		queue:           make(chan eventMessage, config.BufferSize),
		logger:          logger,
		workerCount:     config.WorkerCount,
		handlerTimeout:  config.HandlerTimeout,
		startTime:       time.Now(),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Publish delivers an event to every matching handler before returning
func (b *inMemoryEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	b.published.Add(1)

	if err := b.processEvent(ctx, event); err != nil {
		b.failed.Add(1)
		return err
	}
	b.processed.Add(1)
	return nil
}

// PublishAsync queues an event for the workers. It never blocks; a full
// queue is reported as an error.
func (b *inMemoryEventBus) PublishAsync(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if b.ctx.Err() != nil {
		return fmt.Errorf("event bus is stopped")
	}

	select {
	case b.queue <- eventMessage{ctx: context.WithoutCancel(ctx), event: event}:
		b.published.Add(1)
		return nil
	default:
		b.dropped.Add(1)
		return fmt.Errorf("event queue is full")
	}
}

// Subscribe subscribes to events of a specific type
func (b *inMemoryEventBus) Subscribe(eventType string, handler EventHandler) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()

	b.logger.Info("Handler subscribed",
		zap.String("event_type", eventType),
		zap.String("handler_id", handler.GetHandlerID()),
	)
	return nil
}

// SubscribePattern subscribes to events matching a trailing-wildcard pattern
func (b *inMemoryEventBus) SubscribePattern(pattern string, handler EventHandler) error {
	if pattern == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	b.patternHandlers[pattern] = append(b.patternHandlers[pattern], handler)
	b.mu.Unlock()

	b.logger.Info("Pattern handler subscribed",
		zap.String("pattern", pattern),
		zap.String("handler_id", handler.GetHandlerID()),
	)
	return nil
}

// Start launches the worker goroutines. Calling it again is a no-op.
func (b *inMemoryEventBus) Start(ctx context.Context) error {
	b.startOnce.Do(func() {
		b.logger.Info("Starting event bus", zap.Int("worker_count", b.workerCount))
		for i := 0; i < b.workerCount; i++ {
			b.wg.Add(1)
			go b.worker(i)
		}
	})
	return nil
}

// Stop drains queued events and waits for workers until ctx expires
func (b *inMemoryEventBus) Stop(ctx context.Context) error {
	b.logger.Info("Stopping event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped successfully")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus stop timeout", zap.Int("queue_depth", len(b.queue)))
		return ctx.Err()
	}
}

// Health checks the health of the event bus
func (b *inMemoryEventBus) Health() error {
	if b.ctx.Err() != nil {
		return fmt.Errorf("event bus is stopped")
	}
	depth, capacity := len(b.queue), cap(b.queue)
	if depth > capacity*80/100 {
		return fmt.Errorf("event queue is %d%% full", depth*100/capacity)
	}
	return nil
}

// Stats returns event bus statistics
func (b *inMemoryEventBus) Stats() *EventBusStats {
	b.mu.RLock()
	handlers := 0
	for _, hs := range b.handlers {
		handlers += len(hs)
	}
	for _, hs := range b.patternHandlers {
		handlers += len(hs)
	}
	b.mu.RUnlock()

	return &EventBusStats{
		EventsPublished: b.published.Load(),
		EventsProcessed: b.processed.Load(),
		EventsFailed:    b.failed.Load(),
		EventsDropped:   b.dropped.Load(),
		HandlersCount:   handlers,
		QueueDepth:      len(b.queue),
		Uptime:          time.Since(b.startTime),
	}
}

func (b *inMemoryEventBus) worker(workerID int) {
	defer b.wg.Done()

	for {
		select {
		case msg := <-b.queue:
			b.deliver(workerID, msg)
		case <-b.ctx.Done():
			// drain what is already queued before exiting
			for {
				select {
				case msg := <-b.queue:
					b.deliver(workerID, msg)
				default:
					return
				}
			}
		}
	}
}

func (b *inMemoryEventBus) deliver(workerID int, msg eventMessage) {
	if err := b.processEvent(msg.ctx, msg.event); err != nil {
		b.logger.Error("Failed to process event",
			zap.Int("worker_id", workerID),
			zap.String("event_id", msg.event.GetEventID()),
			zap.String("event_type", msg.event.GetEventType()),
			zap.Error(err),
		)
		b.failed.Add(1)
		return
	}
	b.processed.Add(1)
}

func (b *inMemoryEventBus) matchingHandlers(eventType string) []EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	all := append([]EventHandler(nil), b.handlers[eventType]...)
	for pattern, handlers := range b.patternHandlers {
		if matchesPattern(eventType, pattern) {
			all = append(all, handlers...)
		}
	}
	return all
}

func (b *inMemoryEventBus) processEvent(ctx context.Context, event Event) error {
	handlers := b.matchingHandlers(event.GetEventType())
	if len(handlers) == 0 {
		b.logger.Debug("No handlers found for event",
			zap.String("event_type", event.GetEventType()),
			zap.String("event_id", event.GetEventID()),
		)
		return nil
	}

	var errs error
	for _, handler := range handlers {
		errs = multierr.Append(errs, b.executeHandler(ctx, handler, event))
	}
	return errs
}

// executeHandler runs one handler with a timeout, converting panics to errors
func (b *inMemoryEventBus) executeHandler(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("handler_id", handler.GetHandlerID()),
				zap.String("event_type", event.GetEventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler %s panicked: %v", handler.GetHandlerID(), r)
		}
	}()

	handlerCtx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
	defer cancel()

	if err := handler.Handle(handlerCtx, event); err != nil {
		return fmt.Errorf("handler %s: %w", handler.GetHandlerID(), err)
	}
	return nil
}

// matchesPattern supports "*" and trailing-wildcard prefixes like "achievement.*"
func matchesPattern(eventType, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(eventType, strings.TrimSuffix(pattern, "*"))
	}
	return eventType == pattern
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return "evt_" + uuid.NewString()
}

// ===============================
// EVENT HANDLER HELPERS
// ===============================

// NewEventHandlerFunc creates an EventHandler from a function
func NewEventHandlerFunc(id string, fn func(ctx context.Context, event Event) error) EventHandler {
	return EventHandlerFunc{ID: id, Func: fn}
}

// TypedEventHandler is a generic handler for specific event types
type TypedEventHandler[T Event] struct {
	ID      string
	Handler func(ctx context.Context, event T) error
}

// Handle implements EventHandler
func (h TypedEventHandler[T]) Handle(ctx context.Context, event Event) error {
	if typed, ok := event.(T); ok {
		return h.Handler(ctx, typed)
	}
	return fmt.Errorf("event type mismatch: expected %T, got %T", *new(T), event)
}

// GetHandlerID implements EventHandler
func (h TypedEventHandler[T]) GetHandlerID() string {
	return h.ID
}

// NewTypedEventHandler creates a typed event handler
func NewTypedEventHandler[T Event](id string, handler func(ctx context.Context, event T) error) EventHandler {
	return TypedEventHandler[T]{ID: id, Handler: handler}
}
