package messaging

import (
	"context"
	"errors"
)

// ErrClosed is returned when publishing to, or draining, a closed queue.
var ErrClosed = errors.New("messaging: queue closed")

// Queue represents an abstract FIFO queue for any payload type. Payloads
// travel by pointer; the queue owns a payload between Publish and Consume.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available or ctx is done
	Consume(ctx context.Context) (Message[T], error)

	// TryConsume returns the head message without blocking
	TryConsume() (Message[T], bool)

	// Size returns the number of pending messages
	Size() int
}

// Notifier is implemented by queues able to signal new messages. The
// returned channel is poked (coalescing) after every Publish.
type Notifier interface {
	Subscribe() <-chan struct{}
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message
	Nack(err error) error
}
