package api

import (
	"context"
	"time"
)

// ClaimCheckStore keeps payloads outside the execution context and hands
// back an opaque ticket. Implementations decide their own thread-safety;
// all bundled stores are safe for concurrent use.
type ClaimCheckStore interface {
	// Store saves payload and returns a ticket that can retrieve it.
	Store(ctx context.Context, payload any) (string, error)
	// Retrieve returns the payload for ticket, or ErrTicketNotFound.
	Retrieve(ctx context.Context, ticket string) (any, error)
	// Delete removes the payload for ticket. Deleting an unknown ticket is
	// not an error.
	Delete(ctx context.Context, ticket string) error
}

// DeadLetter is a message that a step failed to process.
type DeadLetter struct {
	ID            string
	RunID         string
	CorrelationID string
	Step          string
	Reason        string
	Error         string
	Message       any
	CreatedAt     time.Time
}

// DeadLetterStore receives messages whose processing failed.
type DeadLetterStore interface {
	// Send records message with a human readable reason and the optional
	// cause.
	Send(ctx context.Context, msg DeadLetter) error
	// List returns the stored dead letters, oldest first.
	List(ctx context.Context) ([]DeadLetter, error)
}

// StepRegistry resolves step names. Lookup returns ErrUnknownStep when the
// name is not registered.
type StepRegistry interface {
	Lookup(name string) (Step, error)
}

// The interfaces below are extension points for integrations built on top of
// the pattern steps. No bundled step requires them.

// MessageTranslator converts one message representation into another.
type MessageTranslator[In, Out any] interface {
	Translate(ctx context.Context, in In) (Out, error)
}

// AggregationStrategy combines a batch of items into one result.
type AggregationStrategy interface {
	Aggregate(ctx context.Context, items []any) (any, error)
}

// ChannelAdapter connects a pipeline to an external messaging channel.
type ChannelAdapter interface {
	Send(ctx context.Context, msg any) error
	Receive(ctx context.Context) (any, error)
	Close() error
}

// OutboxMessage is a message waiting in an outbox for delivery.
type OutboxMessage struct {
	ID        string
	Topic     string
	Payload   any
	CreatedAt time.Time
}

// OutboxStore holds messages that must be delivered after the run commits.
type OutboxStore interface {
	Add(ctx context.Context, msg OutboxMessage) error
	Pending(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
}

// PollingSource produces batches of messages on demand.
type PollingSource interface {
	Poll(ctx context.Context) ([]any, error)
}
