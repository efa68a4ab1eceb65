package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

type storedObject struct {
	data        []byte
	contentType string
}

// fakeS3 answers the handful of path-style S3 calls the media store makes.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]map[string]storedObject
}

func newFakeS3(buckets ...string) *fakeS3 {
	f := &fakeS3{buckets: map[string]map[string]storedObject{}}
	for _, b := range buckets {
		f.buckets[b] = map[string]storedObject{}
	}
	return f
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	objects, ok := f.buckets[bucket]

	if key == "" {
		switch r.Method {
		case http.MethodHead:
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			f.buckets[bucket] = map[string]storedObject{}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotImplemented)
		}
		return
	}

	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		objects[key] = storedObject{data: body, contentType: r.Header.Get("Content-Type")}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		obj, found := objects[key]
		if !found {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", fmt.Sprint(len(obj.data)))
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj.data)
		}
	case http.MethodDelete:
		delete(objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func testConfig(t *testing.T, srv *httptest.Server) Config {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return Config{
		Connection: ConnectionConfig{
			Endpoint:        u.Host,
			AccessKeyID:     "access",
			SecretAccessKey: "secret",
			BucketName:      "media",
			Region:          "us-east-1",
		},
		PresignedConfig: PresignedConfig{ExpiryDuration: time.Hour},
	}
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []observability.OperationContext
}

func (o *recordingObserver) ObserveOperation(op observability.OperationContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
}

func TestMediaStoreSaveAndLoad(t *testing.T) {
	s3 := newFakeS3("media")
	srv := httptest.NewServer(s3)
	defer srv.Close()

	client, err := NewClient(testConfig(t, srv), nil)
	require.NoError(t, err)
	defer client.GracefulShutdown()
	obs := &recordingObserver{}
	client.WithObserver(obs)
	store := NewMediaStore(client)
	ctx := context.Background()

	uri, err := store.Save(ctx, "/images/cat.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)

	u, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, "/media/images/cat.png", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	data, mime, err := store.Load(ctx, "images/cat.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", mime)

	_, err = store.Save(ctx, "raw.bin", []byte{1, 2}, "")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", s3.buckets["media"]["raw.bin"].contentType)

	require.NoError(t, store.Delete(ctx, "images/cat.png"))
	_, _, err = store.Load(ctx, "images/cat.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = store.Save(ctx, "/", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, ErrInvalidObjectName)

	require.NotEmpty(t, obs.ops)
	assert.Equal(t, "minio", obs.ops[0].Component)
	assert.Equal(t, "save", obs.ops[0].Operation)
	assert.Equal(t, "media", obs.ops[0].Resource)
	assert.Equal(t, "images/cat.png", obs.ops[0].SubResource)
	assert.Equal(t, int64(len("png-bytes")), obs.ops[0].Size)
}

func TestNewClientBucketHandling(t *testing.T) {
	s3 := newFakeS3()
	srv := httptest.NewServer(s3)
	defer srv.Close()

	cfg := testConfig(t, srv)
	_, err := NewClient(cfg, nil)
	assert.ErrorIs(t, err, ErrBucketNotFound)

	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info("bucket does not exist, creating it", nil, gomock.Any()).Times(1)

	cfg.Connection.AccessBucketCreation = true
	client, err := NewClient(cfg, log)
	require.NoError(t, err)
	assert.Contains(t, s3.buckets, "media")
	assert.NoError(t, client.HealthCheck(context.Background()))
}

func TestPresignedBaseURL(t *testing.T) {
	presigned, err := url.Parse("http://minio:9000/media/a%20b.png?X-Amz-Signature=abc")
	require.NoError(t, err)

	out, err := urlGenerator(presigned, "https://cdn.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/a%20b.png?X-Amz-Signature=abc", out)

	out, err = urlGenerator(presigned, "https://example.com/files/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/files/media/a%20b.png?X-Amz-Signature=abc", out)

	_, err = urlGenerator(presigned, "not a url")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_BUCKET", "media")
	t.Setenv("MINIO_BUCKET_CREATION", "true")

	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Connection.AccessBucketCreation)
	assert.Equal(t, 24*time.Hour, cfg.PresignedConfig.ExpiryDuration)

	cfg.PresignedConfig.ExpiryDuration = 8 * 24 * time.Hour
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{}.Validate(), ErrInvalidConfig)
}
