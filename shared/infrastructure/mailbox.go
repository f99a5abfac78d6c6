package infrastructure

import (
	"context"

	"github.com/pkg/errors"
)

var ErrMailboxClosed = errors.New("mailbox closed")

// Sender is the writing end of an edge. Only the owning service may Close it.
type Sender[T any] interface {
	Send(ctx context.Context, msg T) error
	Close()
}

// Receiver is the reading end of an edge
type Receiver[T any] interface {
	Receive() <-chan T
}

var (
	_ Sender[int]   = (*Mailbox[int])(nil)
	_ Receiver[int] = (*Mailbox[int])(nil)
)

// Mailbox is an unbounded, FIFO, in-process channel between two services.
//
// Send never blocks on a slow receiver: messages are queued by a pump goroutine
// that owns the backlog. The pump stops once the mailbox is closed and drained,
// or when the context passed to NewMailbox is cancelled.
type Mailbox[T any] struct {
	name string
	in   chan T
	out  chan T
	done <-chan struct{}
}

// NewMailbox creates a mailbox and starts its pump
func NewMailbox[T any](ctx context.Context, name string) *Mailbox[T] {
	m := &Mailbox[T]{
		name: name,
		in:   make(chan T),
		out:  make(chan T),
		done: ctx.Done(),
	}
	go m.pump()
	return m
}

// Name returns the edge name the mailbox was created with
func (m *Mailbox[T]) Name() string {
	return m.name
}

// Send enqueues msg. It fails only if ctx or the mailbox context is done.
// Sending after Close panics, so only the owning sender may close.
func (m *Mailbox[T]) Send(ctx context.Context, msg T) error {
	select {
	case m.in <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return errors.Wrapf(ErrMailboxClosed, "send on %s", m.name)
	}
}

// Receive returns the channel messages are delivered on, in send order.
// It is closed after Close once every queued message has been delivered.
func (m *Mailbox[T]) Receive() <-chan T {
	return m.out
}

// Close marks the end of the stream. Queued messages are still delivered.
func (m *Mailbox[T]) Close() {
	close(m.in)
}

func (m *Mailbox[T]) pump() {
	defer close(m.out)

	var queue []T
	in := m.in
	for in != nil || len(queue) > 0 {
		var (
			out  chan T
			next T
		)
		if len(queue) > 0 {
			out = m.out
			next = queue[0]
		}

		select {
		case msg, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			queue = append(queue, msg)
		case out <- next:
			var zero T
			queue[0] = zero
			queue = queue[1:]
		case <-m.done:
			return
		}
	}
}
