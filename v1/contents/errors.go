package contents

import "errors"

var (
	// ErrMalformedArguments is returned when function-call arguments are not a JSON object.
	ErrMalformedArguments = errors.New("function call arguments are not a valid JSON object")

	// ErrInvalidReducer is returned for a reducer with a non-positive target.
	ErrInvalidReducer = errors.New("reducer target count must be greater than zero")

	// ErrUnknownItemType is returned when decoding an item with an unknown type tag.
	ErrUnknownItemType = errors.New("unknown content item type")
)
