// Package huggingface connects the HuggingFace inference API through
// langchaingo for text generation and feature-extraction embeddings.
package huggingface
