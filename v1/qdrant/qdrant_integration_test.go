//go:build integration

package qdrant

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

// QdrantContainer represents a Qdrant container for testing
type QdrantContainer struct {
	testcontainers.Container
	Host string
	Port int
}

// setupQdrantContainer starts Qdrant with its gRPC port bound to a free
// host port.
func setupQdrantContainer(ctx context.Context) (*QdrantContainer, error) {
	port, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("could not get free port: %w", err)
	}

	req := testcontainers.ContainerRequest{
		Image: "qdrant/qdrant:v1.16.0",
		Env: map[string]string{
			"QDRANT__SERVICE__GRPC_PORT": "6334",
		},
		ExposedPorts: []string{"6334/tcp"},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = nat.PortMap{
				"6334/tcp": []nat.PortBinding{{HostPort: strconv.Itoa(port)}},
			}
		},
		WaitingFor: wait.ForListeningPort("6334/tcp").WithStartupTimeout(60 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start qdrant container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, "6334")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}
	if err := waitForQdrantReady(host, mapped.Port(), 30*time.Second); err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("qdrant container not ready: %w", err)
	}
	return &QdrantContainer{Container: c, Host: host, Port: mapped.Int()}, nil
}

// getFreePort gets a free port from the OS
func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitForQdrantReady attempts to connect to Qdrant until it's ready or times out
func waitForQdrantReady(host, port string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), 2*time.Second)
		if err == nil {
			_ = conn.Close()
			time.Sleep(2 * time.Second)
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timed out waiting for Qdrant to be ready after %s", timeout)
}

type namedStore struct {
	fx.In

	Store vectordb.Service `name:"qdrant"`
}

func startClient(t *testing.T) (*Client, vectordb.Service) {
	t.Helper()
	ctx := context.Background()
	qc, err := setupQdrantContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = qc.Terminate(ctx) })

	var (
		client *Client
		store  vectordb.Service
	)
	app := fxtest.New(t,
		fx.Provide(
			func() *Config {
				return FromEndpoint(qc.Host).
					WithPort(qc.Port).
					WithCompatibilityCheck(false).
					WithTimeout(10 * time.Second)
			},
			func() logger.Logger { return logger.NewFromZap(zap.NewNop(), false) },
		),
		FXModule,
		fx.Populate(&client),
		fx.Invoke(func(p namedStore) { store = p.Store }),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)
	return client, store
}

func TestQdrantServiceOperations(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	client, store := startClient(t)
	require.NoError(t, client.HealthCheck(ctx))

	const collection = "integration_docs"
	require.NoError(t, store.EnsureCollection(ctx, collection, 3))
	require.NoError(t, store.EnsureCollection(ctx, collection, 3))

	info, err := store.GetCollection(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, 3, info.VectorSize)
	assert.Equal(t, "Cosine", info.Distance)

	records := []vectordb.Record{
		{ID: "42", Vector: []float32{1, 0, 0}, Payload: vectordb.BuildPayload(
			map[string]any{"text": "numeric id", "rank": 1}, map[string]any{"lang": "en"})},
		{ID: "6f1c2a52-5d6e-4b8f-9a53-0f3c7e3c1d2b", Vector: []float32{0, 1, 0}, Payload: vectordb.BuildPayload(
			map[string]any{"text": "uuid id", "rank": 2}, map[string]any{"lang": "de"})},
		{ID: "doc-readme", Vector: []float32{0.9, 0.1, 0}, Payload: vectordb.BuildPayload(
			map[string]any{"text": "free-form id", "rank": 3, "tags": []string{"a"}}, map[string]any{"lang": "en"})},
	}
	require.NoError(t, store.Upsert(ctx, collection, records))

	got, err := store.Get(ctx, collection, []string{"doc-readme", "42"}, true)
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := []string{got[0].ID, got[1].ID}
	assert.ElementsMatch(t, []string{"doc-readme", "42"}, ids)
	for _, r := range got {
		assert.Len(t, r.Vector, 3)
		assert.NotContains(t, r.Payload, OriginalIDField)
	}

	res, err := store.Search(ctx,
		vectordb.SearchRequest{CollectionName: collection, Vector: []float32{1, 0, 0}, TopK: 2},
		vectordb.SearchRequest{CollectionName: collection, Vector: []float32{1, 0, 0}, TopK: 10,
			Filters: vectordb.NewFilterSet(vectordb.Must(vectordb.NewUserMatch("lang", "de")))},
	)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Len(t, res[0], 2)
	assert.Equal(t, "42", res[0][0].ID)
	assert.Equal(t, "doc-readme", res[0][1].ID)
	require.Len(t, res[1], 1)
	assert.Equal(t, "6f1c2a52-5d6e-4b8f-9a53-0f3c7e3c1d2b", res[1][0].ID)

	require.NoError(t, store.Delete(ctx, collection, []string{"doc-readme"}))
	got, err = store.Get(ctx, collection, []string{"doc-readme"}, false)
	require.NoError(t, err)
	assert.Empty(t, got)

	names, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, collection)

	require.NoError(t, store.DeleteCollection(ctx, collection))
	ok, err := store.CollectionExists(ctx, collection)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQdrantErrorHandling(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	_, store := startClient(t)

	_, err := store.GetCollection(ctx, "does_not_exist")
	assert.ErrorIs(t, err, vectordb.ErrCollectionNotFound)

	assert.ErrorIs(t, store.DeleteCollection(ctx, "does_not_exist"), vectordb.ErrCollectionNotFound)

	require.NoError(t, store.EnsureCollection(ctx, "dims", 3))
	err = store.Upsert(ctx, "dims", []vectordb.Record{{ID: "1", Vector: []float32{1, 2}}})
	assert.ErrorIs(t, err, vectordb.ErrDimensionMismatch)

	_, err = store.Search(ctx, vectordb.SearchRequest{CollectionName: "dims", Vector: []float32{1, 0, 0}})
	assert.ErrorIs(t, err, vectordb.ErrInvalidSearchRequest)
}
