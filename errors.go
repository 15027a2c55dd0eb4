package windowed

import "errors"

var (
	// ErrIndexOutOfRange is returned when an operation refers to an item
	// index outside [0, Len). It is fatal to the single call, not to the
	// engine.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrEngineClosed is returned by operations on an engine after Close.
	ErrEngineClosed = errors.New("engine closed")
)
