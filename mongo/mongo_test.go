package mongo

import (
	"context"
	"encoding/gob"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/conduit/internal/persistence"
	"github.com/petrijr/conduit/internal/testutil"
	"github.com/petrijr/conduit/pkg/api"
)

const testDatabase = "conduit_test"

type mongoSamplePayload struct {
	Msg string
	N   int
}

func init() {
	gob.Register(mongoSamplePayload{})
}

func TestBuildOptions(t *testing.T) {
	o := buildOptions(defaultClaimCollection, nil)
	assert.Equal(t, defaultDatabase, o.database)
	assert.Equal(t, defaultClaimCollection, o.collection)
	assert.Equal(t, "gob", o.codec.Name())

	o = buildOptions(defaultClaimCollection, []Option{
		WithDatabase("db"), WithCollection("coll"), WithCodec(persistence.JSONCodec{}),
	})
	assert.Equal(t, "db", o.database)
	assert.Equal(t, "coll", o.collection)
	assert.Equal(t, "json", o.codec.Name())
}

type MongoStoreTestSuite struct {
	suite.Suite
	client *mongo.Client
}

func TestMongoStoreTestSuite(t *testing.T) {
	uri := testutil.GetMongoURI(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})
	require.NoError(t, client.Ping(ctx, nil))

	suite.Run(t, &MongoStoreTestSuite{client: client})
}

func (m *MongoStoreTestSuite) SetupTest() {
	m.Require().NoError(m.client.Database(testDatabase).Drop(context.Background()))
}

func (m *MongoStoreTestSuite) TestClaimCheckRoundTrip() {
	ctx := context.Background()
	store := NewClaimCheckStore(m.client, WithDatabase(testDatabase))

	payload := mongoSamplePayload{Msg: "invoice", N: 3}
	ticket, err := store.Store(ctx, payload)
	m.Require().NoError(err)

	got, err := store.Retrieve(ctx, ticket)
	m.Require().NoError(err)
	m.Equal(payload, got)

	m.Require().NoError(store.Delete(ctx, ticket))
	_, err = store.Retrieve(ctx, ticket)
	m.ErrorIs(err, api.ErrTicketNotFound)
}

func (m *MongoStoreTestSuite) TestDeadLetters() {
	ctx := context.Background()
	store := NewDeadLetterStore(m.client, WithDatabase(testDatabase))

	for _, reason := range []string{"first", "second", "third"} {
		m.Require().NoError(store.Send(ctx, api.DeadLetter{Step: "s", Reason: reason}))
	}

	letters, err := store.List(ctx)
	m.Require().NoError(err)
	m.Require().Len(letters, 3)
	m.Equal("first", letters[0].Reason)
	m.Equal("second", letters[1].Reason)
	m.Equal("third", letters[2].Reason)
}
