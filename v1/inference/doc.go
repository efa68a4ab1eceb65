// Package inference provides embeddings and reranking through an HTTP
// inference service.
//
// # Overview
//
// The package exposes a single entrypoint, Client, which hides endpoint
// paths, authentication and error mapping. Two services are built from it:
//
//	client, err := inference.NewClient(*inference.NewConfig(), log)
//	gen := client.EmbeddingGenerator()   // POST {endpoint}/embeddings
//	rr := client.Reranker()              // POST {endpoint}/rerank
//
// The embeddings endpoint takes the OpenAI-compatible body
// {"model": ..., "input": [...]} and the rerank endpoint the Cohere-style
// body {"model", "query", "documents", "top_n"} answered with
// {"results": [{"index", "relevance_score"}]}.
//
// # Configuration
//
//   - INFERENCE_ENDPOINT: root URL of the service, without /embeddings
//   - INFERENCE_SERVICE_TOKEN: sent as "Authorization: Bearer <token>"
//   - INFERENCE_HTTP_TIMEOUT_SECONDS: request timeout, default 30
//   - INFERENCE_EMBEDDING_MODEL, INFERENCE_RERANK_MODEL
//   - INFERENCE_BATCH_SIZE: texts per embeddings request, default 128
//
// # Errors
//
// HTTP 429, 408 and 5xx wrap ai.ErrServiceRetryable, 401 and 403 wrap
// ai.ErrAuthentication, other 4xx wrap ai.ErrInvalidRequest.
package inference
