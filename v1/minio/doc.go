// Package minio stores generated media in MinIO or any S3 compatible
// service and hands out presigned links to it.
//
// The kernel's image and audio services return bytes; MediaStore.Save
// turns them into a URL a chat client can render:
//
//	client, err := minio.NewClient(minio.Config{
//		Connection: minio.ConnectionConfig{
//			Endpoint:             "localhost:9000",
//			AccessKeyID:          "minioadmin",
//			SecretAccessKey:      "minioadmin",
//			BucketName:           "media",
//			AccessBucketCreation: true,
//		},
//		PresignedConfig: minio.PresignedConfig{ExpiryDuration: time.Hour},
//	}, log)
//	if err != nil {
//		return err
//	}
//	defer client.GracefulShutdown()
//
//	media := minio.NewMediaStore(client)
//	url, err := media.Save(ctx, "images/cat.png", png, "image/png")
//
// NewClient checks the bucket and creates it when AccessBucketCreation is
// set; otherwise a missing bucket fails with ErrBucketNotFound.
//
// Presigned URLs:
//
// Links expire after PresignedConfig.ExpiryDuration (default 24h, at most
// seven days as S3 allows). With PresignedConfig.BaseURL set, scheme and
// host of every link are replaced, e.g. to serve through a CDN or an
// ingress in front of the object store. The signature stays valid only if
// the proxy forwards the original Host header.
//
// Connection Management:
//
// The client is held in an atomic pointer. MonitorConnection checks the
// bucket every 30 seconds and RetryConnection swaps in a fresh client once
// the endpoint is reachable again. FXModule runs both for the lifetime of
// the application.
//
// Errors:
//
// TranslateError maps S3 error codes to ErrBucketNotFound,
// ErrObjectNotFound, ErrAccessDenied and ErrInvalidObjectName.
// IsRetryableError reports throttling and 5xx responses.
package minio
