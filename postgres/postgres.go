// Package postgres provides PostgreSQL-backed claim-check and dead-letter
// stores built on a pgx connection pool.
//
// The tables are created by the embedded migrations; run Migrate (or the
// conduit-migrate command) before constructing a store. Queries are built
// with goqu using the postgres dialect in prepared mode, so every value
// travels as a bind parameter.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petrijr/conduit/internal/persistence"
	"github.com/petrijr/conduit/pkg/api"
)

const (
	dialectPostgres = "postgres"

	tableClaimChecks = "conduit_claim_checks"
	tableDeadLetters = "conduit_dead_letters"

	colTicket        = "ticket"
	colPayload       = "payload"
	colCreatedAt     = "created_at"
	colSeq           = "seq"
	colID            = "id"
	colRunID         = "run_id"
	colCorrelationID = "correlation_id"
	colStep          = "step"
	colReason        = "reason"
	colError         = "error"
	colMessage       = "message"
)

// Option configures a store.
type Option func(*options)

type options struct {
	codec persistence.Codec
}

// WithCodec selects the payload codec. The default is gob.
func WithCodec(c persistence.Codec) Option {
	return func(o *options) { o.codec = c }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.codec = persistence.CodecOrDefault(o.codec)
	return o
}

var dialect = goqu.Dialect(dialectPostgres)

// ClaimCheckStore is an api.ClaimCheckStore backed by PostgreSQL.
type ClaimCheckStore struct {
	pool  *pgxpool.Pool
	codec persistence.Codec
}

var _ api.ClaimCheckStore = (*ClaimCheckStore)(nil)

// NewClaimCheckStore creates a store on top of pool.
func NewClaimCheckStore(pool *pgxpool.Pool, opts ...Option) (*ClaimCheckStore, error) {
	if pool == nil {
		return nil, errors.New("postgres: pool must not be nil")
	}
	return &ClaimCheckStore{pool: pool, codec: buildOptions(opts).codec}, nil
}

func (s *ClaimCheckStore) Store(ctx context.Context, payload any) (string, error) {
	data, err := s.codec.Encode(payload)
	if err != nil {
		return "", err
	}

	ticket := uuid.NewString()
	query, args, err := dialect.Insert(tableClaimChecks).
		Rows(goqu.Record{colTicket: ticket, colPayload: data, colCreatedAt: time.Now().UTC()}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", err
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("postgres: store claim check: %w", err)
	}
	return ticket, nil
}

func (s *ClaimCheckStore) Retrieve(ctx context.Context, ticket string) (any, error) {
	query, args, err := dialect.From(tableClaimChecks).
		Select(colPayload).
		Where(goqu.C(colTicket).Eq(ticket)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.pool.QueryRow(ctx, query, args...).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistence.TicketNotFound(ticket)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: retrieve claim check: %w", err)
	}
	return s.codec.Decode(data)
}

func (s *ClaimCheckStore) Delete(ctx context.Context, ticket string) error {
	query, args, err := dialect.Delete(tableClaimChecks).
		Where(goqu.C(colTicket).Eq(ticket)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, query, args...)
	return err
}

// DeadLetterStore is an api.DeadLetterStore backed by PostgreSQL.
type DeadLetterStore struct {
	pool  *pgxpool.Pool
	codec persistence.Codec
}

var _ api.DeadLetterStore = (*DeadLetterStore)(nil)

// NewDeadLetterStore creates a store on top of pool.
func NewDeadLetterStore(pool *pgxpool.Pool, opts ...Option) (*DeadLetterStore, error) {
	if pool == nil {
		return nil, errors.New("postgres: pool must not be nil")
	}
	return &DeadLetterStore{pool: pool, codec: buildOptions(opts).codec}, nil
}

func (s *DeadLetterStore) Send(ctx context.Context, msg api.DeadLetter) error {
	msg = persistence.PrepareDeadLetter(msg)
	data, err := persistence.EncodeMessage(s.codec, msg.Message)
	if err != nil {
		return err
	}

	query, args, err := dialect.Insert(tableDeadLetters).
		Rows(goqu.Record{
			colID:            msg.ID,
			colRunID:         msg.RunID,
			colCorrelationID: msg.CorrelationID,
			colStep:          msg.Step,
			colReason:        msg.Reason,
			colError:         msg.Error,
			colMessage:       data,
			colCreatedAt:     msg.CreatedAt,
		}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: send dead letter: %w", err)
	}
	return nil
}

func (s *DeadLetterStore) List(ctx context.Context) ([]api.DeadLetter, error) {
	query, args, err := dialect.From(tableDeadLetters).
		Select(colID, colRunID, colCorrelationID, colStep, colReason, colError, colMessage, colCreatedAt).
		Order(goqu.I(colSeq).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list dead letters: %w", err)
	}
	defer rows.Close()

	var out []api.DeadLetter
	for rows.Next() {
		var (
			msg  api.DeadLetter
			data []byte
		)
		if err := rows.Scan(&msg.ID, &msg.RunID, &msg.CorrelationID, &msg.Step, &msg.Reason, &msg.Error, &data, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if msg.Message, err = s.codec.Decode(data); err != nil {
			return nil, err
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		out = append(out, msg)
	}
	return out, rows.Err()
}
