// Package azblob provides a claim-check store that keeps payloads as blobs
// in an Azure Storage container.
package azblob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/google/uuid"

	"github.com/petrijr/conduit/internal/persistence"
	"github.com/petrijr/conduit/pkg/api"
)

const (
	defaultContainer = "conduit-claims"
	defaultPrefix    = "claims/"
)

// Config describes the storage account and container used by the store.
type Config struct {
	ConnectionString string
	ContainerName    string
	// Prefix is prepended to every blob name. Defaults to "claims/".
	Prefix string
	Codec  persistence.Codec
}

// ClaimCheckStore is an api.ClaimCheckStore backed by Azure Blob Storage.
type ClaimCheckStore struct {
	client    *azblob.Client
	container string
	prefix    string
	codec     persistence.Codec
	logger    *slog.Logger
}

var _ api.ClaimCheckStore = (*ClaimCheckStore)(nil)

// New validates the connection string and creates the client. No request is
// made until EnsureContainer or one of the store methods is called.
func New(cfg Config, logger *slog.Logger) (*ClaimCheckStore, error) {
	if cfg.ConnectionString == "" {
		return nil, errors.New("azblob: connection string is required")
	}
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("azblob: create client: %w", err)
	}
	return NewFromClient(client, cfg, logger), nil
}

// NewFromClient wraps an existing client. ConnectionString is ignored.
func NewFromClient(client *azblob.Client, cfg Config, logger *slog.Logger) *ClaimCheckStore {
	if cfg.ContainerName == "" {
		cfg.ContainerName = defaultContainer
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimCheckStore{
		client:    client,
		container: cfg.ContainerName,
		prefix:    cfg.Prefix,
		codec:     persistence.CodecOrDefault(cfg.Codec),
		logger:    logger.With("store", "azblob", "container", cfg.ContainerName),
	}
}

// EnsureContainer creates the container if it does not exist yet.
func (s *ClaimCheckStore) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("azblob: create container %s: %w", s.container, err)
	}
	s.logger.DebugContext(ctx, "claim_container_ready")
	return nil
}

func (s *ClaimCheckStore) blobName(ticket string) string {
	return s.prefix + ticket
}

func (s *ClaimCheckStore) Store(ctx context.Context, payload any) (string, error) {
	data, err := s.codec.Encode(payload)
	if err != nil {
		return "", err
	}

	ticket := uuid.NewString()
	contentType := "application/octet-stream"
	if s.codec.Name() == "json" {
		contentType = "application/json"
	}

	_, err = s.client.UploadStream(ctx, s.container, s.blobName(ticket), bytes.NewReader(data), &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("azblob: upload %s: %w", ticket, err)
	}
	return ticket, nil
}

func (s *ClaimCheckStore) Retrieve(ctx context.Context, ticket string) (any, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.blobName(ticket), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, persistence.TicketNotFound(ticket)
		}
		return nil, fmt.Errorf("azblob: download %s: %w", ticket, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azblob: read %s: %w", ticket, err)
	}
	return s.codec.Decode(data)
}

func (s *ClaimCheckStore) Delete(ctx context.Context, ticket string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, s.blobName(ticket), nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("azblob: delete %s: %w", ticket, err)
	}
	return nil
}
