// Package testutil provides the backing services used by the store
// integration tests.
//
// Each Get* helper first honours an environment variable pointing at an
// existing service. Otherwise it starts a shared Testcontainers instance on
// first use. When neither works (no Docker, CI without privileges) the
// calling test is skipped.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	EnvPostgresDSN    = "CONDUIT_POSTGRES_DSN"
	EnvRedisAddr      = "CONDUIT_REDIS_ADDR"
	EnvMongoURI       = "CONDUIT_MONGO_URI"
	EnvAzblobConnStr  = "CONDUIT_AZBLOB_CONNECTION_STRING"
	EnvSkipContainers = "CONDUIT_SKIP_CONTAINERS"

	startTimeout = 3 * time.Minute

	// Well-known development credentials baked into the Azurite image.
	azuriteAccount = "devstoreaccount1"
	azuriteKey     = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

// service lazily resolves the endpoint of one backing service.
type service struct {
	name  string
	env   string
	start func(ctx context.Context) (string, error)

	once     sync.Once
	endpoint string
	err      error
}

func (s *service) get(t *testing.T) string {
	t.Helper()

	s.once.Do(func() {
		if v := os.Getenv(s.env); v != "" {
			s.endpoint = v
			return
		}
		if os.Getenv(EnvSkipContainers) != "" {
			s.err = fmt.Errorf("%s not set and containers disabled", s.env)
			return
		}
		s.endpoint, s.err = s.startSafely()
	})

	if s.err != nil {
		t.Skipf("skipping %s tests: %v", s.name, s.err)
	}
	return s.endpoint
}

// startSafely converts a Testcontainers panic (e.g. unsupported Docker
// setups) into an error.
func (s *service) startSafely() (endpoint string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start %s container: %v", s.name, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	return s.start(ctx)
}

var (
	postgresSvc = &service{name: "Postgres", env: EnvPostgresDSN, start: startPostgres}
	redisSvc    = &service{name: "Redis", env: EnvRedisAddr, start: startRedis}
	mongoSvc    = &service{name: "Mongo", env: EnvMongoURI, start: startMongo}
	azuriteSvc  = &service{name: "Azure Blob", env: EnvAzblobConnStr, start: startAzurite}
)

// GetPostgresDSN returns a connection string for a PostgreSQL database.
func GetPostgresDSN(t *testing.T) string { return postgresSvc.get(t) }

// GetRedisAddress returns the host:port of a Redis server.
func GetRedisAddress(t *testing.T) string { return redisSvc.get(t) }

// GetMongoURI returns a MongoDB connection URI.
func GetMongoURI(t *testing.T) string { return mongoSvc.get(t) }

// GetAzblobConnectionString returns an Azure Storage connection string.
func GetAzblobConnectionString(t *testing.T) string { return azuriteSvc.get(t) }

func startPostgres(ctx context.Context) (string, error) {
	c, err := testcontainers.Run(
		ctx, "postgres:16",
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "conduit",
			"POSTGRES_PASSWORD": "conduit",
			"POSTGRES_DB":       "conduit_test",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				// The entrypoint restarts the server once after init.
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(2*time.Minute),
		),
	)
	if err != nil {
		return "", err
	}

	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		_ = c.Terminate(context.Background())
		return "", err
	}
	return fmt.Sprintf("postgres://conduit:conduit@%s/conduit_test?sslmode=disable", endpoint), nil
}

func startRedis(ctx context.Context) (string, error) {
	c, err := testcontainers.Run(
		ctx, "redis:7",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		),
	)
	if err != nil {
		return "", err
	}

	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		_ = c.Terminate(context.Background())
		return "", err
	}
	return endpoint, nil
}

func startMongo(ctx context.Context) (string, error) {
	c, err := testcontainers.Run(
		ctx, "mongo:7",
		testcontainers.WithExposedPorts("27017/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("27017/tcp"),
			wait.ForLog("Waiting for connections"),
		),
	)
	if err != nil {
		return "", err
	}

	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		_ = c.Terminate(context.Background())
		return "", err
	}
	return "mongodb://" + endpoint, nil
}

func startAzurite(ctx context.Context) (string, error) {
	c, err := testcontainers.Run(
		ctx, "mcr.microsoft.com/azure-storage/azurite:latest",
		testcontainers.WithCmd("azurite-blob", "--blobHost", "0.0.0.0", "--skipApiVersionCheck", "--loose"),
		testcontainers.WithExposedPorts("10000/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("10000/tcp"),
		),
	)
	if err != nil {
		return "", err
	}

	endpoint, err := c.Endpoint(ctx, "http")
	if err != nil {
		_ = c.Terminate(context.Background())
		return "", err
	}
	return fmt.Sprintf(
		"DefaultEndpointsProtocol=http;AccountName=%s;AccountKey=%s;BlobEndpoint=%s/%s;",
		azuriteAccount, azuriteKey, endpoint, azuriteAccount,
	), nil
}
