// Package postgres provides PostgreSQL backed storage for the connectors:
// a pgvector vector store and a chat history store, both on one monitored
// GORM connection.
//
// Core Features:
//   - Connection pooling, health checks and automatic reconnection
//   - Transactions with automatic rollback on errors
//   - vectordb.Service on pgvector with cosine scoring
//   - Filter translation to JSONB predicates
//   - contents.ChatHistoryStore on the chat_messages table
//   - Error classification from PostgreSQL SQLSTATE codes
//
// Basic Usage:
//
//	import (
//		"github.com/Aleph-Alpha/connectors/v1/postgres"
//		"github.com/Aleph-Alpha/connectors/v1/logger"
//	)
//
//	log := logger.NewLoggerClient(logger.Config{Level: logger.Info})
//
//	pg, err := postgres.NewPostgres(postgres.Config{
//		Connection: postgres.Connection{
//			Host:     "localhost",
//			Port:     "5432",
//			User:     "postgres",
//			Password: "password",
//			DbName:   "vectors",
//		},
//	}, log)
//	if err != nil {
//		log.Fatal("failed to connect to database", err)
//	}
//	defer pg.GracefulShutdown()
//
// Vector Store:
//
// Each collection is a table with the layout
//
//	id TEXT PRIMARY KEY, embedding vector(N) NOT NULL, payload JSONB NOT NULL
//
// Collection names must be lower case identifiers (letters, digits and
// underscores, at most 63 characters) since they become table names.
//
//	store := postgres.NewVectorStore(pg)
//	if err := store.EnsureCollection(ctx, "documents", 1536); err != nil {
//		return err
//	}
//	err = store.Upsert(ctx, "documents", []vectordb.Record{
//		{ID: "doc-1", Vector: embedding, Payload: map[string]any{"text": "hello"}},
//	})
//
//	results, err := store.Search(ctx, vectordb.SearchRequest{
//		CollectionName: "documents",
//		Vector:         query,
//		TopK:           5,
//		Filters:        filters,
//	})
//
// The score is 1 - (embedding <=> query), the cosine similarity. Vectors
// are exchanged in pgvector's text form, so no client side vector type is
// involved.
//
// Filters:
//
// vectordb filters become predicates on the payload column:
//
//	Match          payload #> path = value, or the array at path contains value
//	MatchAny       OR of Match
//	MatchExcept    NOT (OR of Match); a missing field matches
//	NumericRange   numeric comparison when the value is a JSON number
//	TimeRange      timestamptz comparison of the string value
//	IsNull         the value is JSON null
//	IsEmpty        the field is missing, null or []
//
// Must parts are joined with AND, Should parts form one OR group and MustNot
// parts are negated.
//
// Chat History:
//
//	histories, err := postgres.NewChatHistoryStore(ctx, pg)
//	err = histories.Append(ctx, "session-1", contents.NewTextMessage(contents.RoleUser, "hi"))
//	history, err := histories.Load(ctx, "session-1")
//
// Messages are stored as JSON with a per-session position. Appends lock the
// session's last row so concurrent writers keep a gapless order.
//
// Transactions:
//
//	err := pg.Transaction(ctx, func(tx *gorm.DB) error {
//		return tx.Exec("DELETE FROM documents WHERE payload->>'stale' = 'true'").Error
//	})
//
// Error Handling:
//
// TranslateError maps driver errors to the package sentinels:
//
//	ErrRecordNotFound   no rows
//	ErrDuplicateKey     23505
//	ErrForeignKey       23503
//	ErrInvalidData      23502, 23514, 22P02
//	ErrTemporary        serialization failures, deadlocks, connection loss
//
// Undefined tables surface as vectordb.ErrCollectionNotFound and dimension
// mismatches as vectordb.ErrDimensionMismatch. IsRetryable reports whether
// an operation may succeed when repeated.
//
// FX Module Integration:
//
//	app := fx.New(
//		logger.FXModule,
//		postgres.FXModule,
//		fx.Provide(postgres.NewConfig),
//	)
//
// The module provides *Postgres, *VectorStore, *ChatHistoryStore and the
// named values vectordb.Service `name:"postgres"` and
// contents.ChatHistoryStore `name:"postgres"`.
//
// Thread Safety:
//
// All methods are safe for concurrent use. The connection is held in an
// atomic pointer and replaced on reconnection.
package postgres
