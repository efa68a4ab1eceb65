package minio

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// FXModule provides *MinioClient and *MediaStore. The connection monitor
// runs for the lifetime of the application.
//
//	app := fx.New(
//	    logger.FXModule,
//	    minio.FXModule,
//	    fx.Provide(minio.NewConfig),
//	)
var FXModule = fx.Module("minio",
	fx.Provide(
		NewClientWithParams,
		NewMediaStore,
	),
	fx.Invoke(RegisterLifecycle),
)

type Params struct {
	fx.In

	Config   Config
	Logger   logger.Logger
	Observer observability.Observer `optional:"true"`
}

func NewClientWithParams(p Params) (*MinioClient, error) {
	client, err := NewClient(p.Config, p.Logger)
	if err != nil {
		return nil, err
	}
	return client.WithObserver(p.Observer), nil
}

// RegisterLifecycle starts connection monitoring and reconnection on start
// and stops both on shutdown.
func RegisterLifecycle(lc fx.Lifecycle, client *MinioClient) {
	wg := &sync.WaitGroup{}
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(2)
			go func() {
				defer wg.Done()
				client.MonitorConnection(runCtx)
			}()
			go func() {
				defer wg.Done()
				client.RetryConnection(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			client.GracefulShutdown()
			wg.Wait()
			return nil
		},
	})
}
