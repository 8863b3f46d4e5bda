package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/markov/internal/idgen"
	"github.com/viant/markov/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	// MaxRetries is the number of times a nacked message is put back.
	MaxRetries int `json:"maxRetries" yaml:"maxRetries"`
	// RetryDelay is the wait before a nacked message is put back.
	RetryDelay time.Duration `json:"retryDelay" yaml:"retryDelay"`
	// DeadLetter keeps messages that ran out of retries.
	DeadLetter bool `json:"deadLetter" yaml:"deadLetter"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		DeadLetter: true,
	}
}

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id         string
	payload    *T
	queue      *Queue[T]
	retryCount int
	mu         sync.Mutex
	processed  bool
	createdAt  time.Time
	lastErr    error
}

// ID returns the message identifier
func (m *Message[T]) ID() string {
	return m.id
}

// Err returns the error passed to the last Nack
func (m *Message[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return m.payload
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}

	m.processed = true
	return nil
}

// Nack indicates a failure in processing the message
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processed {
		return fmt.Errorf("message already processed")
	}

	m.processed = true
	m.retryCount++
	m.lastErr = err

	q := m.queue
	if m.retryCount <= q.config.MaxRetries {
		retry := &Message[T]{
			id:         m.id,
			payload:    m.payload,
			queue:      q,
			retryCount: m.retryCount,
			createdAt:  time.Now(),
		}
		if q.config.RetryDelay <= 0 {
			return q.push(retry)
		}
		time.AfterFunc(q.config.RetryDelay, func() {
			_ = q.push(retry)
		})
		return nil
	}
	if q.config.DeadLetter {
		q.dlqMu.Lock()
		q.dlq = append(q.dlq, m)
		q.dlqMu.Unlock()
	}
	return nil
}

// Queue is an unbounded in-memory FIFO safe for many producers and
// consumers. Consume parks on a ready signal instead of spinning.
type Queue[T any] struct {
	config Config

	mu          sync.Mutex
	items       []*Message[T]
	closed      bool
	ready       chan struct{}
	subscribers []chan struct{}

	dlqMu sync.Mutex
	dlq   []*Message[T]
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	return &Queue[T]{
		config: config,
		ready:  make(chan struct{}, 1),
	}
}

// Publish adds a new item to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.push(&Message[T]{
		id:        idgen.New(),
		payload:   t,
		queue:     q,
		createdAt: time.Now(),
	})
}

func (q *Queue[T]) push(msg *Message[T]) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return messaging.ErrClosed
	}
	q.items = append(q.items, msg)
	subscribers := q.subscribers
	q.mu.Unlock()

	poke(q.ready)
	for _, ch := range subscribers {
		poke(ch)
	}
	return nil
}

// Consume retrieves a single item from the queue, waiting when it is empty
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		msg, ok, closed := q.pop()
		if ok {
			return msg, nil
		}
		if closed {
			return nil, messaging.ErrClosed
		}
		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// TryConsume retrieves the head item without waiting
func (q *Queue[T]) TryConsume() (messaging.Message[T], bool) {
	msg, ok, _ := q.pop()
	if !ok {
		return nil, false
	}
	return msg, true
}

func (q *Queue[T]) pop() (*Message[T], bool, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		closed := q.closed
		q.mu.Unlock()
		if closed {
			poke(q.ready)
		}
		return nil, false, closed
	}
	msg := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	remaining := len(q.items) > 0 || q.closed
	q.mu.Unlock()
	if remaining {
		// pass the token on so another parked consumer wakes up
		poke(q.ready)
	}
	return msg, true, false
}

// Subscribe returns a channel signalled after every publish.
func (q *Queue[T]) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	q.mu.Lock()
	q.subscribers = append(q.subscribers, ch)
	q.mu.Unlock()
	return ch
}

// Close rejects further publishes and releases parked consumers once the
// queue is drained.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	poke(q.ready)
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

// DeadLetters returns the payloads that ran out of retries
func (q *Queue[T]) DeadLetters() []*T {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	result := make([]*T, 0, len(q.dlq))
	for _, msg := range q.dlq {
		result = append(result, msg.payload)
	}
	return result
}

func poke(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// ensure Queue implements messaging.Queue interface
var (
	_ messaging.Queue[any] = (*Queue[any])(nil)
	_ messaging.Notifier   = (*Queue[any])(nil)
)
