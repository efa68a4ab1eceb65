package kernel

import "errors"

var (
	ErrInvalidPluginName   = errors.New("[Kernel] plugin name must match ^[0-9A-Za-z_]+$")
	ErrInvalidFunctionName = errors.New("[Kernel] function name must match ^[0-9A-Za-z_]+$")
	ErrPluginExists        = errors.New("[Kernel] plugin already exists")
	ErrFunctionExists      = errors.New("[Kernel] function already exists in plugin")
	ErrPluginNotFound      = errors.New("[Kernel] plugin not found")
	ErrFunctionNotFound    = errors.New("[Kernel] function not found")
	ErrServiceExists       = errors.New("[Kernel] service already registered")
	ErrServiceNotFound     = errors.New("[Kernel] service not found")
	ErrInvalidFunction     = errors.New("[Kernel] invalid native function")
	ErrInvalidArguments    = errors.New("[Kernel] invalid function arguments")
	ErrConflictingFilters  = errors.New("[Kernel] included and excluded filters cannot both be set")
)

// Messages returned to the model in place of a function result. The model
// reads them and usually corrects its call on the next request.
const (
	MalformedArgumentsMessage = "The tool call arguments are malformed. Arguments must be in JSON format. Please try again."
	FunctionNotFoundMessage   = "The tool call with name `%s` is not part of the provided tools, please try again with a supplied tool call name and make sure to validate the path."
	MissingArgumentsMessage   = "There are `%d` tool call arguments required and only `%d` received. The required arguments are: %v. Please provide the required arguments and try again."
	FunctionErrorMessage      = "An error occurred while invoking the function %s: %v"
)
