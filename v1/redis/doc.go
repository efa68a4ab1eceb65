// Package redis provides a Redis client and a chat history store on top of
// github.com/redis/go-redis/v9.
//
// Core Features:
//   - Standalone client with pooling, retries and optional TLS
//   - contents.ChatHistoryStore on Redis lists
//   - Optional idle expiry of conversations
//   - Operation observation through observability.Observer
//   - Integration with the Fx dependency injection framework
//
// Basic Usage:
//
//	import "github.com/Aleph-Alpha/connectors/v1/redis"
//
//	client, err := redis.NewClient(redis.Config{
//		Host:       "localhost",
//		Port:       6379,
//		HistoryTTL: 24 * time.Hour,
//	}, log)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	histories := redis.NewChatHistoryStore(client)
//	err = histories.Append(ctx, "session-1",
//		contents.NewTextMessage(contents.RoleUser, "hello"))
//	history, err := histories.Load(ctx, "session-1")
//
// Storage Layout:
//
// A conversation lives in the list "<KeyPrefix>chat:<session>". Each element
// is one JSON encoded contents.ChatMessageContent, so function calls and
// results survive the round trip. Append pushes with RPUSH and, when
// HistoryTTL is set, refreshes the expiry in the same MULTI/EXEC block.
// Loading a missing key yields an empty history.
//
// Configuration:
//
// NewConfig reads REDIS_HOST, REDIS_PORT, REDIS_USERNAME, REDIS_PASSWORD,
// REDIS_DB, REDIS_POOL_SIZE, REDIS_KEY_PREFIX, REDIS_HISTORY_TTL and
// REDIS_TLS_ENABLED.
//
// FX Module Integration:
//
//	app := fx.New(
//		logger.FXModule,
//		redis.FXModule,
//		fx.Provide(redis.NewConfig),
//	)
//
// The module provides *RedisClient, *ChatHistoryStore and a
// contents.ChatHistoryStore named "redis". Redis is pinged on start.
//
// Advanced Usage:
//
// Client() exposes the underlying redis.UniversalClient for commands this
// package does not wrap.
//
// Thread Safety:
//
// All methods are safe for concurrent use.
package redis
