// Package redis provides Redis-backed claim-check and dead-letter stores.
//
// Key layout:
//
//	<prefix>claim:<ticket>   => encoded payload, optional TTL
//	<prefix>dead-letters     => LIST of JSON dead-letter envelopes
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/petrijr/conduit/internal/persistence"
	"github.com/petrijr/conduit/pkg/api"
)

const defaultPrefix = "conduit:"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Option configures a store.
type Option func(*options)

type options struct {
	prefix string
	ttl    time.Duration
	codec  persistence.Codec
}

// WithPrefix sets the key prefix. The default is "conduit:".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithTTL expires claim-check payloads after ttl. Zero keeps them until
// deleted.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithCodec selects the payload codec. The default is gob.
func WithCodec(c persistence.Codec) Option {
	return func(o *options) { o.codec = c }
}

func buildOptions(opts []Option) options {
	o := options{prefix: defaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	o.codec = persistence.CodecOrDefault(o.codec)
	return o
}

// ClaimCheckStore is an api.ClaimCheckStore backed by Redis strings.
type ClaimCheckStore struct {
	client redis.UniversalClient
	opts   options
}

var _ api.ClaimCheckStore = (*ClaimCheckStore)(nil)

// NewClaimCheckStore creates a store on top of client.
func NewClaimCheckStore(client redis.UniversalClient, opts ...Option) *ClaimCheckStore {
	return &ClaimCheckStore{client: client, opts: buildOptions(opts)}
}

func (s *ClaimCheckStore) key(ticket string) string {
	return s.opts.prefix + "claim:" + ticket
}

func (s *ClaimCheckStore) Store(ctx context.Context, payload any) (string, error) {
	data, err := s.opts.codec.Encode(payload)
	if err != nil {
		return "", err
	}

	ticket := uuid.NewString()
	if err := s.client.Set(ctx, s.key(ticket), data, s.opts.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis: store claim check: %w", err)
	}
	return ticket, nil
}

func (s *ClaimCheckStore) Retrieve(ctx context.Context, ticket string) (any, error) {
	data, err := s.client.Get(ctx, s.key(ticket)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.TicketNotFound(ticket)
	}
	if err != nil {
		return nil, fmt.Errorf("redis: retrieve claim check: %w", err)
	}
	return s.opts.codec.Decode(data)
}

func (s *ClaimCheckStore) Delete(ctx context.Context, ticket string) error {
	return s.client.Del(ctx, s.key(ticket)).Err()
}

// DeadLetterStore is an api.DeadLetterStore backed by a Redis list.
type DeadLetterStore struct {
	client redis.UniversalClient
	opts   options
}

var _ api.DeadLetterStore = (*DeadLetterStore)(nil)

// NewDeadLetterStore creates a store on top of client. WithTTL is ignored.
func NewDeadLetterStore(client redis.UniversalClient, opts ...Option) *DeadLetterStore {
	return &DeadLetterStore{client: client, opts: buildOptions(opts)}
}

func (s *DeadLetterStore) key() string {
	return s.opts.prefix + "dead-letters"
}

type envelope struct {
	ID            string    `json:"id"`
	RunID         string    `json:"run_id"`
	CorrelationID string    `json:"correlation_id"`
	Step          string    `json:"step"`
	Reason        string    `json:"reason"`
	Error         string    `json:"error,omitempty"`
	Message       []byte    `json:"message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *DeadLetterStore) Send(ctx context.Context, msg api.DeadLetter) error {
	msg = persistence.PrepareDeadLetter(msg)
	data, err := persistence.EncodeMessage(s.opts.codec, msg.Message)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(envelope{
		ID:            msg.ID,
		RunID:         msg.RunID,
		CorrelationID: msg.CorrelationID,
		Step:          msg.Step,
		Reason:        msg.Reason,
		Error:         msg.Error,
		Message:       data,
		CreatedAt:     msg.CreatedAt,
	})
	if err != nil {
		return err
	}

	if err := s.client.RPush(ctx, s.key(), raw).Err(); err != nil {
		return fmt.Errorf("redis: send dead letter: %w", err)
	}
	return nil
}

func (s *DeadLetterStore) List(ctx context.Context) ([]api.DeadLetter, error) {
	items, err := s.client.LRange(ctx, s.key(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list dead letters: %w", err)
	}

	out := make([]api.DeadLetter, 0, len(items))
	for _, item := range items {
		var env envelope
		if err := json.Unmarshal([]byte(item), &env); err != nil {
			return nil, err
		}
		message, err := s.opts.codec.Decode(env.Message)
		if err != nil {
			return nil, err
		}
		out = append(out, api.DeadLetter{
			ID:            env.ID,
			RunID:         env.RunID,
			CorrelationID: env.CorrelationID,
			Step:          env.Step,
			Reason:        env.Reason,
			Error:         env.Error,
			Message:       message,
			CreatedAt:     env.CreatedAt.UTC(),
		})
	}
	return out, nil
}
