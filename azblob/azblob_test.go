package azblob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/conduit/internal/persistence"
	"github.com/petrijr/conduit/internal/testutil"
	"github.com/petrijr/conduit/pkg/api"
)

func TestNew_RequiresConnectionString(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	store, err := New(Config{
		ConnectionString: "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;" +
			"AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;" +
			"BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, defaultContainer, store.container)
	assert.Equal(t, "claims/abc", store.blobName("abc"))
	assert.Equal(t, "gob", store.codec.Name())
}

func TestClaimCheckStore_Integration(t *testing.T) {
	connStr := testutil.GetAzblobConnectionString(t)
	ctx := context.Background()

	store, err := New(Config{
		ConnectionString: connStr,
		ContainerName:    "conduit-test",
		Codec:            persistence.JSONCodec{},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, store.EnsureContainer(ctx))
	// Second call hits ContainerAlreadyExists.
	require.NoError(t, store.EnsureContainer(ctx))

	ticket, err := store.Store(ctx, map[string]any{"document": "contract.pdf"})
	require.NoError(t, err)

	got, err := store.Retrieve(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"document": "contract.pdf"}, got)

	require.NoError(t, store.Delete(ctx, ticket))
	_, err = store.Retrieve(ctx, ticket)
	require.ErrorIs(t, err, api.ErrTicketNotFound)

	require.NoError(t, store.Delete(ctx, ticket))
}
