package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCorpus         = errors.New("corpus is empty")
	ErrCorpusTooShort      = errors.New("corpus is shorter than the context window")
	ErrUnknownSymbol       = errors.New("symbol not in vocabulary")
	ErrUnsupportedEncoding = errors.New("unsupported text encoding")
	ErrInvalidEncoding     = errors.New("text does not match its declared encoding")
	ErrNotTrainable        = errors.New("model does not support training")
)

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

// NewConfigError creates a configuration error for field.
func NewConfigError(field, message string) error {
	return &ConfigError{Field: field, Message: message}
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// DataError reports a problem with the corpus or with text handed to a codec.
type DataError struct {
	Op  string
	Err error
}

// NewDataError wraps err with the failing operation.
func NewDataError(op string, err error) error {
	return &DataError{Op: op, Err: err}
}

func (e *DataError) Error() string { return fmt.Sprintf("data: %s: %v", e.Op, e.Err) }

func (e *DataError) Unwrap() error { return e.Err }

// IOError reports a failed read or write of a file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// NewIOError wraps err with the operation and the path involved.
func NewIOError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}

func (e *IOError) Error() string { return fmt.Sprintf("io: %s %s: %v", e.Op, e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }
