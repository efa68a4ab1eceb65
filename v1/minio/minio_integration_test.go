//go:build integration

package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Aleph-Alpha/connectors/v1/logger"
)

func createMinIOContainer(ctx context.Context) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image: "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		Cmd:   []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minio_admin",
			"MINIO_ROOT_PASSWORD": "minio_admin",
		},
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("9000/tcp").WithStartupTimeout(30*time.Second),
			wait.ForHTTP("/minio/health/ready").WithPort("9000/tcp").WithStartupTimeout(30*time.Second),
		),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start MinIO container: %w", err)
	}
	endpoint, err := c.PortEndpoint(ctx, "9000/tcp", "")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get endpoint: %w", err)
	}
	return c, endpoint, nil
}

func TestMinioWithFXModule(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()
	c, endpoint, err := createMinIOContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	var media *MediaStore
	app := fxtest.New(t,
		fx.Provide(
			func() Config {
				return Config{Connection: ConnectionConfig{
					Endpoint:             endpoint,
					AccessKeyID:          "minio_admin",
					SecretAccessKey:      "minio_admin",
					BucketName:           "media",
					AccessBucketCreation: true,
				}}
			},
			func() logger.Logger { return logger.NewFromZap(zap.NewNop(), false) },
		),
		FXModule,
		fx.Populate(&media),
	)
	app.RequireStart()
	defer app.RequireStop()

	uri, err := media.Save(ctx, "audio/hello.mp3", []byte("ID3-audio"), "audio/mpeg")
	require.NoError(t, err)

	resp, err := http.Get(uri)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ID3-audio", string(body))
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))

	data, mime, err := media.Load(ctx, "audio/hello.mp3")
	require.NoError(t, err)
	assert.Equal(t, "ID3-audio", string(data))
	assert.Equal(t, "audio/mpeg", mime)

	require.NoError(t, media.Delete(ctx, "audio/hello.mp3"))
	_, _, err = media.Load(ctx, "audio/hello.mp3")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
