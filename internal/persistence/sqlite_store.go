package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/conduit/pkg/api"
)

// SQLiteClaimCheckStore is a ClaimCheckStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver. The caller is responsible
// for importing the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteClaimCheckStore struct {
	db    *sql.DB
	codec Codec
}

var _ api.ClaimCheckStore = (*SQLiteClaimCheckStore)(nil)

// NewSQLiteClaimCheckStore creates the claim_checks table if needed. A nil
// codec selects GobCodec.
func NewSQLiteClaimCheckStore(db *sql.DB, codec Codec) (*SQLiteClaimCheckStore, error) {
	s := &SQLiteClaimCheckStore{db: db, codec: CodecOrDefault(codec)}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteClaimCheckStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS claim_checks (
			ticket TEXT PRIMARY KEY,
			payload BLOB,
			created_at INTEGER NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteClaimCheckStore) Store(ctx context.Context, payload any) (string, error) {
	data, err := s.codec.Encode(payload)
	if err != nil {
		return "", err
	}

	ticket := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO claim_checks (ticket, payload, created_at) VALUES (?, ?, ?)`,
		ticket, data, time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("store claim check: %w", err)
	}
	return ticket, nil
}

func (s *SQLiteClaimCheckStore) Retrieve(ctx context.Context, ticket string) (any, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM claim_checks WHERE ticket = ?`, ticket,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, TicketNotFound(ticket)
	}
	if err != nil {
		return nil, fmt.Errorf("retrieve claim check: %w", err)
	}
	return s.codec.Decode(data)
}

func (s *SQLiteClaimCheckStore) Delete(ctx context.Context, ticket string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM claim_checks WHERE ticket = ?`, ticket)
	return err
}

// SQLiteDeadLetterStore is a DeadLetterStore backed by SQLite.
type SQLiteDeadLetterStore struct {
	db    *sql.DB
	codec Codec
}

var _ api.DeadLetterStore = (*SQLiteDeadLetterStore)(nil)

// NewSQLiteDeadLetterStore creates the dead_letters table if needed. A nil
// codec selects GobCodec.
func NewSQLiteDeadLetterStore(db *sql.DB, codec Codec) (*SQLiteDeadLetterStore, error) {
	s := &SQLiteDeadLetterStore{db: db, codec: CodecOrDefault(codec)}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDeadLetterStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS dead_letters (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			run_id TEXT NOT NULL,
			correlation_id TEXT NOT NULL,
			step TEXT NOT NULL,
			reason TEXT NOT NULL,
			error TEXT,
			message BLOB,
			created_at INTEGER NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteDeadLetterStore) Send(ctx context.Context, msg api.DeadLetter) error {
	msg = PrepareDeadLetter(msg)
	data, err := EncodeMessage(s.codec, msg.Message)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dead_letters (id, run_id, correlation_id, step, reason, error, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.RunID,
		msg.CorrelationID,
		msg.Step,
		msg.Reason,
		msg.Error,
		data,
		msg.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("send dead letter: %w", err)
	}
	return nil
}

func (s *SQLiteDeadLetterStore) List(ctx context.Context) ([]api.DeadLetter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, correlation_id, step, reason, error, message, created_at
		FROM dead_letters
		ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []api.DeadLetter
	for rows.Next() {
		var (
			msg     api.DeadLetter
			errStr  sql.NullString
			data    []byte
			created int64
		)
		if err := rows.Scan(&msg.ID, &msg.RunID, &msg.CorrelationID, &msg.Step, &msg.Reason, &errStr, &data, &created); err != nil {
			return nil, err
		}
		msg.Error = errStr.String
		msg.CreatedAt = time.Unix(0, created).UTC()
		if msg.Message, err = s.codec.Decode(data); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}
