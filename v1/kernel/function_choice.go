package kernel

import (
	"fmt"
	"slices"
)

// FunctionChoice tells the model how it may use the advertised functions.
type FunctionChoice string

const (
	// FunctionChoiceAuto lets the model decide.
	FunctionChoiceAuto FunctionChoice = "auto"
	// FunctionChoiceRequired forces at least one call.
	FunctionChoiceRequired FunctionChoice = "required"
	// FunctionChoiceNone advertises the functions but forbids calls.
	FunctionChoiceNone FunctionChoice = "none"
)

const (
	// DefaultMaximumAutoInvokeAttempts bounds the request/invoke rounds of Auto.
	DefaultMaximumAutoInvokeAttempts = 5

	// MaximumInflightAutoInvokes caps any configured attempt count.
	MaximumInflightAutoInvokes = 128
)

// FunctionChoiceFilters narrow the kernel functions that are advertised.
// Included and excluded lists of the same kind are mutually exclusive.
// Function entries are fully qualified names ("plugin-function").
type FunctionChoiceFilters struct {
	IncludedPlugins   []string `json:"included_plugins,omitempty" yaml:"included_plugins"`
	ExcludedPlugins   []string `json:"excluded_plugins,omitempty" yaml:"excluded_plugins"`
	IncludedFunctions []string `json:"included_functions,omitempty" yaml:"included_functions"`
	ExcludedFunctions []string `json:"excluded_functions,omitempty" yaml:"excluded_functions"`
}

func (f *FunctionChoiceFilters) validate() error {
	if f == nil {
		return nil
	}
	if len(f.IncludedPlugins) > 0 && len(f.ExcludedPlugins) > 0 {
		return fmt.Errorf("%w: plugins", ErrConflictingFilters)
	}
	if len(f.IncludedFunctions) > 0 && len(f.ExcludedFunctions) > 0 {
		return fmt.Errorf("%w: functions", ErrConflictingFilters)
	}
	return nil
}

func (f *FunctionChoiceFilters) allows(m *FunctionMetadata) bool {
	if f == nil {
		return true
	}
	fqn := m.FullyQualifiedName()
	if len(f.IncludedPlugins) > 0 && !slices.Contains(f.IncludedPlugins, m.PluginName) {
		return false
	}
	if slices.Contains(f.ExcludedPlugins, m.PluginName) {
		return false
	}
	if len(f.IncludedFunctions) > 0 && !slices.Contains(f.IncludedFunctions, fqn) {
		return false
	}
	return !slices.Contains(f.ExcludedFunctions, fqn)
}

// FunctionChoiceOptions tune how calls are issued and executed.
type FunctionChoiceOptions struct {
	// AllowParallelCalls is forwarded to the model as parallel_tool_calls.
	AllowParallelCalls *bool `json:"allow_parallel_calls,omitempty" yaml:"allow_parallel_calls"`

	// AllowConcurrentInvocation runs the calls of one response concurrently.
	AllowConcurrentInvocation bool `json:"allow_concurrent_invocation,omitempty" yaml:"allow_concurrent_invocation"`
}

// FunctionChoiceBehavior controls which kernel functions a chat request
// advertises and whether the returned calls are invoked automatically.
type FunctionChoiceBehavior struct {
	Type                      FunctionChoice         `json:"type" yaml:"type"`
	AutoInvoke                bool                   `json:"auto_invoke" yaml:"auto_invoke"`
	MaximumAutoInvokeAttempts int                    `json:"maximum_auto_invoke_attempts" yaml:"maximum_auto_invoke_attempts"`
	Filters                   *FunctionChoiceFilters `json:"filters,omitempty" yaml:"filters"`

	// Functions restricts the advertised set to these fully qualified names.
	Functions []string `json:"functions,omitempty" yaml:"functions"`

	Options FunctionChoiceOptions `json:"options,omitempty" yaml:"options"`
}

// Auto advertises the functions and lets the model choose. With autoInvoke
// the returned calls are executed for up to five rounds.
func Auto(autoInvoke bool, filters *FunctionChoiceFilters, functions ...string) *FunctionChoiceBehavior {
	attempts := 0
	if autoInvoke {
		attempts = DefaultMaximumAutoInvokeAttempts
	}
	return &FunctionChoiceBehavior{
		Type:                      FunctionChoiceAuto,
		AutoInvoke:                autoInvoke,
		MaximumAutoInvokeAttempts: attempts,
		Filters:                   filters,
		Functions:                 functions,
	}
}

// Required forces the model to call one of the functions. With autoInvoke
// the call is executed once and the model then answers freely.
func Required(autoInvoke bool, filters *FunctionChoiceFilters, functions ...string) *FunctionChoiceBehavior {
	attempts := 0
	if autoInvoke {
		attempts = 1
	}
	return &FunctionChoiceBehavior{
		Type:                      FunctionChoiceRequired,
		AutoInvoke:                autoInvoke,
		MaximumAutoInvokeAttempts: attempts,
		Filters:                   filters,
		Functions:                 functions,
	}
}

// NoneInvoke advertises the functions so the model can reason about them
// but never lets it call one.
func NoneInvoke(filters *FunctionChoiceFilters, functions ...string) *FunctionChoiceBehavior {
	return &FunctionChoiceBehavior{
		Type:      FunctionChoiceNone,
		Filters:   filters,
		Functions: functions,
	}
}

// Attempts is the effective number of auto-invoke rounds.
func (b *FunctionChoiceBehavior) Attempts() int {
	if b == nil || !b.AutoInvoke {
		return 0
	}
	return min(max(b.MaximumAutoInvokeAttempts, 0), MaximumInflightAutoInvokes)
}

// FunctionChoiceConfiguration is the resolved form of a behavior for one
// request, consumed by the chat connectors.
type FunctionChoiceConfiguration struct {
	Choice             FunctionChoice
	Functions          []*FunctionMetadata
	AutoInvoke         bool
	AllowParallelCalls *bool
}

// Configure resolves the advertised functions against k.
func (b *FunctionChoiceBehavior) Configure(k *Kernel) (*FunctionChoiceConfiguration, error) {
	if b == nil {
		return nil, nil
	}
	choice := b.Type
	if choice == "" {
		choice = FunctionChoiceAuto
	}
	cfg := &FunctionChoiceConfiguration{
		Choice:             choice,
		AutoInvoke:         b.AutoInvoke,
		AllowParallelCalls: b.Options.AllowParallelCalls,
	}
	if k == nil {
		return cfg, nil
	}

	functions, err := k.FunctionsMetadata(b.Filters)
	if err != nil {
		return nil, err
	}
	if len(b.Functions) > 0 {
		functions = slices.DeleteFunc(functions, func(m *FunctionMetadata) bool {
			return !slices.Contains(b.Functions, m.FullyQualifiedName())
		})
	}
	cfg.Functions = functions
	return cfg, nil
}
