package ai

// DefaultMaxParallelFunctionCalls bounds concurrent function invocations
// within one model response.
const DefaultMaxParallelFunctionCalls = 8

// Config tunes the function-calling loop.
type Config struct {
	// MaxParallelFunctionCalls limits concurrently running calls when the
	// function choice behavior allows concurrent invocation.
	MaxParallelFunctionCalls int `yaml:"max_parallel_function_calls" envconfig:"AI_MAX_PARALLEL_FUNCTION_CALLS" default:"8"`
}

func (c Config) maxParallel() int {
	if c.MaxParallelFunctionCalls <= 0 {
		return DefaultMaxParallelFunctionCalls
	}
	return c.MaxParallelFunctionCalls
}
