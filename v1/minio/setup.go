package minio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=minio

// Logger is the logging surface the MinIO client needs.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// MinioClient wraps the MinIO client with connection monitoring and
// reconnection.
type MinioClient struct {
	// client is stored in an atomic pointer so it can be swapped during
	// reconnection without racing with concurrent operations.
	client atomic.Pointer[minio.Client]

	cfg      Config
	observer observability.Observer
	logger   Logger

	// shutdownSignal stops the monitor and retry loops
	shutdownSignal chan struct{}

	// reconnectSignal is used to trigger reconnection attempts
	reconnectSignal chan error

	closeShutdownOnce sync.Once
}

// NewClient connects, validates the credentials and makes sure the
// configured bucket exists (creating it when AccessBucketCreation is set).
//
//	client, err := minio.NewClient(minio.Config{
//	    Connection: minio.ConnectionConfig{
//	        Endpoint:             "localhost:9000",
//	        AccessKeyID:          "minioadmin",
//	        SecretAccessKey:      "minioadmin",
//	        BucketName:           "media",
//	        AccessBucketCreation: true,
//	    },
//	}, log)
//	defer client.GracefulShutdown()
func NewClient(cfg Config, logger Logger) (*MinioClient, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := connectToMinio(cfg)
	if err != nil {
		return nil, err
	}

	m := &MinioClient{
		cfg:             cfg,
		logger:          logger,
		shutdownSignal:  make(chan struct{}),
		reconnectSignal: make(chan error, 1),
	}
	m.client.Store(client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := m.ensureBucketExists(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func connectToMinio(cfg Config) (*minio.Client, error) {
	client, err := minio.New(cfg.Connection.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Connection.AccessKeyID, cfg.Connection.SecretAccessKey, ""),
		Secure: cfg.Connection.UseSSL,
		Region: cfg.Connection.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return client, nil
}

// Client returns the current MinIO client.
func (m *MinioClient) Client() *minio.Client {
	return m.client.Load()
}

func (m *MinioClient) Config() Config {
	return m.cfg
}

// HealthCheck checks that the bucket is reachable with the configured
// credentials. It needs no ListAllMyBuckets permission.
func (m *MinioClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c := m.client.Load()
	if c == nil {
		return ErrConnectionFailed
	}
	if _, err := c.BucketExists(ctx, m.cfg.Connection.BucketName); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, TranslateError(err))
	}
	return nil
}

func (m *MinioClient) ensureBucketExists(ctx context.Context) error {
	bucket := m.cfg.Connection.BucketName
	c := m.client.Load()

	exists, err := c.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket %s exists: %w", bucket, TranslateError(err))
	}
	if exists {
		return nil
	}
	if !m.cfg.Connection.AccessBucketCreation {
		return fmt.Errorf("%w: %s, please create it manually", ErrBucketNotFound, bucket)
	}

	m.logInfo("bucket does not exist, creating it", map[string]interface{}{
		"bucket": bucket,
		"region": m.cfg.Connection.Region,
	})
	err = c.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.cfg.Connection.Region})
	if err != nil {
		// A concurrent creator may have won.
		if resp := minio.ToErrorResponse(err); resp.Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return TranslateError(err)
	}
	return nil
}

// MonitorConnection runs a health check every 30 seconds and signals
// RetryConnection on failure.
func (m *MinioClient) MonitorConnection(ctx context.Context) {
	ticker := time.NewTicker(connectionHealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.HealthCheck(ctx); err != nil {
				m.logError("minio health check failed", err, map[string]interface{}{
					"endpoint": m.cfg.Connection.Endpoint,
				})
				select {
				case m.reconnectSignal <- err:
				default:
				}
			}
		case <-m.shutdownSignal:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RetryConnection rebuilds the client after MonitorConnection reported a
// failure. The new client only replaces the old one once it can see the
// bucket.
func (m *MinioClient) RetryConnection(ctx context.Context) {
	for {
		select {
		case <-m.shutdownSignal:
			return
		case <-ctx.Done():
			return
		case <-m.reconnectSignal:
		}

		for {
			err := m.reconnect(ctx)
			if err == nil {
				m.logInfo("reconnected to minio", map[string]interface{}{
					"endpoint": m.cfg.Connection.Endpoint,
				})
				break
			}
			m.logError("minio reconnection failed", err, map[string]interface{}{
				"will_retry_in": "1s",
			})
			select {
			case <-m.shutdownSignal:
				return
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func (m *MinioClient) reconnect(ctx context.Context) error {
	client, err := connectToMinio(m.cfg)
	if err != nil {
		return err
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := client.BucketExists(checkCtx, m.cfg.Connection.BucketName); err != nil {
		return TranslateError(err)
	}
	m.client.Store(client)
	return nil
}

// GracefulShutdown stops the monitor and retry loops.
func (m *MinioClient) GracefulShutdown() {
	m.closeShutdownOnce.Do(func() {
		close(m.shutdownSignal)
	})
}

// WithObserver sets the observer for this client and returns the client for method chaining.
func (m *MinioClient) WithObserver(observer observability.Observer) *MinioClient {
	m.observer = observer
	return m
}

func (m *MinioClient) WithLogger(logger Logger) *MinioClient {
	m.logger = logger
	return m
}

func (m *MinioClient) logInfo(msg string, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.Info(msg, nil, fields)
	}
}

func (m *MinioClient) logError(msg string, err error, fields map[string]interface{}) {
	if m.logger != nil {
		m.logger.Error(msg, err, fields)
	}
}
