// Package mongo provides MongoDB-backed claim-check and dead-letter stores.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/conduit/internal/persistence"
	"github.com/petrijr/conduit/pkg/api"
)

const (
	defaultDatabase        = "conduit"
	defaultClaimCollection = "claim_checks"
	defaultDeadLetterColl  = "dead_letters"
)

// Option configures a store.
type Option func(*storeOptions)

type storeOptions struct {
	database   string
	collection string
	codec      persistence.Codec
}

// WithDatabase overrides the database name. The default is "conduit".
func WithDatabase(name string) Option {
	return func(o *storeOptions) { o.database = name }
}

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(o *storeOptions) { o.collection = name }
}

// WithCodec selects the payload codec. The default is gob.
func WithCodec(c persistence.Codec) Option {
	return func(o *storeOptions) { o.codec = c }
}

func buildOptions(defaultCollection string, opts []Option) storeOptions {
	o := storeOptions{database: defaultDatabase, collection: defaultCollection}
	for _, opt := range opts {
		opt(&o)
	}
	o.codec = persistence.CodecOrDefault(o.codec)
	return o
}

type claimDoc struct {
	Ticket    string    `bson:"_id"`
	Payload   []byte    `bson:"payload,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

// ClaimCheckStore is an api.ClaimCheckStore backed by a MongoDB collection.
type ClaimCheckStore struct {
	coll  *mongo.Collection
	codec persistence.Codec
}

var _ api.ClaimCheckStore = (*ClaimCheckStore)(nil)

// NewClaimCheckStore creates a store using client.
func NewClaimCheckStore(client *mongo.Client, opts ...Option) *ClaimCheckStore {
	o := buildOptions(defaultClaimCollection, opts)
	return &ClaimCheckStore{
		coll:  client.Database(o.database).Collection(o.collection),
		codec: o.codec,
	}
}

func (s *ClaimCheckStore) Store(ctx context.Context, payload any) (string, error) {
	data, err := s.codec.Encode(payload)
	if err != nil {
		return "", err
	}

	doc := claimDoc{Ticket: uuid.NewString(), Payload: data, CreatedAt: time.Now().UTC()}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("mongo: store claim check: %w", err)
	}
	return doc.Ticket, nil
}

func (s *ClaimCheckStore) Retrieve(ctx context.Context, ticket string) (any, error) {
	var doc claimDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": ticket}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, persistence.TicketNotFound(ticket)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: retrieve claim check: %w", err)
	}
	return s.codec.Decode(doc.Payload)
}

func (s *ClaimCheckStore) Delete(ctx context.Context, ticket string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": ticket})
	return err
}

type deadLetterDoc struct {
	OID           primitive.ObjectID `bson:"_id"`
	ID            string             `bson:"dead_letter_id"`
	RunID         string             `bson:"run_id"`
	CorrelationID string             `bson:"correlation_id"`
	Step          string             `bson:"step"`
	Reason        string             `bson:"reason"`
	Error         string             `bson:"error,omitempty"`
	Message       []byte             `bson:"message,omitempty"`
	CreatedAt     time.Time          `bson:"created_at"`
}

// DeadLetterStore is an api.DeadLetterStore backed by a MongoDB collection.
// Documents are keyed by ObjectID so List can return them in insertion order.
type DeadLetterStore struct {
	coll  *mongo.Collection
	codec persistence.Codec
}

var _ api.DeadLetterStore = (*DeadLetterStore)(nil)

// NewDeadLetterStore creates a store using client.
func NewDeadLetterStore(client *mongo.Client, opts ...Option) *DeadLetterStore {
	o := buildOptions(defaultDeadLetterColl, opts)
	return &DeadLetterStore{
		coll:  client.Database(o.database).Collection(o.collection),
		codec: o.codec,
	}
}

func (s *DeadLetterStore) Send(ctx context.Context, msg api.DeadLetter) error {
	msg = persistence.PrepareDeadLetter(msg)
	data, err := persistence.EncodeMessage(s.codec, msg.Message)
	if err != nil {
		return err
	}

	_, err = s.coll.InsertOne(ctx, deadLetterDoc{
		OID:           primitive.NewObjectID(),
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
		return fmt.Errorf("mongo: send dead letter: %w", err)
	}
	return nil
}

func (s *DeadLetterStore) List(ctx context.Context) ([]api.DeadLetter, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: list dead letters: %w", err)
	}
	defer cur.Close(ctx)

	var out []api.DeadLetter
	for cur.Next(ctx) {
		var doc deadLetterDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		message, err := s.codec.Decode(doc.Message)
		if err != nil {
			return nil, err
		}
		out = append(out, api.DeadLetter{
			ID:            doc.ID,
			RunID:         doc.RunID,
			CorrelationID: doc.CorrelationID,
			Step:          doc.Step,
			Reason:        doc.Reason,
			Error:         doc.Error,
			Message:       message,
			CreatedAt:     doc.CreatedAt.UTC(),
		})
	}
	return out, cur.Err()
}
