// Package events is the in-process topic exchange connecting the transaction
// side to the report side.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-fintrack/logging"
)

// ErrClosed is returned when publishing to a closed bus.
var ErrClosed = errors.New("event bus closed")

// ErrBufferFull is returned when DropIfFull is set and the buffer is full.
var ErrBufferFull = errors.New("event bus buffer full")

// Message is a published event.
type Message struct {
	Topic       string
	Payload     any
	PublishedAt time.Time

	barrier chan struct{}
}

// Handler consumes messages of a topic.
type Handler func(ctx context.Context, msg Message) error

// Config controls buffering.
type Config struct {
	BufferSize int
	DropIfFull bool
}

// Bus delivers published messages to topic subscribers from a single worker
// goroutine, in publish order.
type Bus struct {
	cfg    Config
	logger logging.Logger

	mu       sync.RWMutex
	handlers map[string]map[uint64]Handler
	nextID   uint64

	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewBus starts a bus worker.
func NewBus(cfg Config, logger logging.Logger) *Bus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if logger == nil {
		logger = logging.Default()
	}

	b := &Bus{
		cfg:      cfg,
		logger:   logger,
		handlers: make(map[string]map[uint64]Handler),
		ch:       make(chan Message, cfg.BufferSize),
		done:     make(chan struct{}),
	}

	b.wg.Add(1)
	go b.run()

	return b
}

// Subscribe registers h for topic and returns a function removing it.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[uint64]Handler)
	}
	b.handlers[topic][id] = h
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[topic], id)
	}
}

// Publish enqueues payload on topic. It blocks while the buffer is full
// unless DropIfFull is set.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	if b.closed.Load() {
		return ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	msg := Message{Topic: topic, Payload: payload, PublishedAt: time.Now().UTC()}

	if b.cfg.DropIfFull {
		select {
		case b.ch <- msg:
			return nil
		case <-b.done:
			return ErrClosed
		default:
			b.dropped.Add(1)
			return ErrBufferFull
		}
	}

	select {
	case b.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrClosed
	}
}

// Flush waits until every message published before the call was handled.
func (b *Bus) Flush(ctx context.Context) error {
	if b.closed.Load() {
		return nil
	}

	barrier := make(chan struct{})
	select {
	case b.ch <- Message{barrier: barrier}:
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return nil
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the buffer and stops the worker.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		close(b.done)
		b.wg.Wait()
	})
}

// Dropped returns how many messages were dropped on a full buffer.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Failed returns how many handler invocations returned an error or panicked.
func (b *Bus) Failed() uint64 {
	return b.failed.Load()
}

func (b *Bus) run() {
	defer b.wg.Done()

	for {
		select {
		case msg := <-b.ch:
			b.dispatch(msg)
		case <-b.done:
			for {
				select {
				case msg := <-b.ch:
					b.dispatch(msg)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(msg Message) {
	if msg.barrier != nil {
		close(msg.barrier)
		return
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[msg.Topic]))
	for _, h := range b.handlers[msg.Topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no subscribers for topic", "topic", msg.Topic)
		return
	}

	for _, h := range handlers {
		if err := b.invoke(h, msg); err != nil {
			b.failed.Add(1)
			b.logger.Error("event handler failed", "topic", msg.Topic, "error", err)
		}
	}
}

func (b *Bus) invoke(h Handler, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(context.Background(), msg)
}
