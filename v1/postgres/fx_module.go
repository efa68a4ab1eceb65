package postgres

import (
	"context"
	"sync"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/connectors/v1/contents"
	"github.com/Aleph-Alpha/connectors/v1/logger"
	"github.com/Aleph-Alpha/connectors/v1/observability"
	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

// FXModule is an fx module that provides the Postgres connection, the
// pgvector store (as *VectorStore and as a vectordb.Service named
// "postgres") and the chat history store (also as a
// contents.ChatHistoryStore named "postgres").
//
// It also registers lifecycle hooks that run connection monitoring and
// reconnection while the application is up, and close the pool on stop.
//
//	app := fx.New(
//	    logger.FXModule,
//	    postgres.FXModule,
//	    fx.Provide(postgres.NewConfig),
//	)
var FXModule = fx.Module("postgres",
	fx.Provide(
		NewPostgresWithParams,
		NewVectorStoreWithParams,
		fx.Annotate(
			func(s *VectorStore) vectordb.Service { return s },
			fx.ResultTags(`name:"postgres"`),
		),
		NewChatHistoryStoreWithParams,
		fx.Annotate(
			func(s *ChatHistoryStore) contents.ChatHistoryStore { return s },
			fx.ResultTags(`name:"postgres"`),
		),
	),
	fx.Invoke(RegisterPostgresLifecycle),
)

// PostgresParams groups the dependencies needed to create the connection.
type PostgresParams struct {
	fx.In

	Config Config
	Logger logger.Logger
}

func NewPostgresWithParams(params PostgresParams) (*Postgres, error) {
	return NewPostgres(params.Config, params.Logger)
}

type VectorStoreParams struct {
	fx.In

	Postgres *Postgres
	Observer observability.Observer `optional:"true"`
}

func NewVectorStoreWithParams(params VectorStoreParams) *VectorStore {
	return NewVectorStore(params.Postgres, WithVectorStoreObserver(params.Observer))
}

func NewChatHistoryStoreWithParams(pg *Postgres) (*ChatHistoryStore, error) {
	return NewChatHistoryStore(context.Background(), pg)
}

// PostgresLifeCycleParams groups the dependencies for lifecycle management.
type PostgresLifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Postgres  *Postgres
}

// RegisterPostgresLifecycle registers lifecycle hooks for the connection:
//  1. connection monitoring and reconnection start with the application
//  2. on stop both loops are signalled, awaited, and the pool is closed
//
// The loops run on their own context since the start context ends once
// startup completes.
func RegisterPostgresLifecycle(params PostgresLifeCycleParams) {
	wg := &sync.WaitGroup{}
	runCtx, cancel := context.WithCancel(context.Background())

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(2)
			go func() {
				defer wg.Done()
				params.Postgres.MonitorConnection(runCtx)
			}()
			go func() {
				defer wg.Done()
				params.Postgres.RetryConnection(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			err := params.Postgres.GracefulShutdown()
			wg.Wait()
			return err
		},
	})
}
