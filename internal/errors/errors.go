// Package errors defines application-specific error types and sentinel errors.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrUnknownTag        = errors.New("unknown pgn tag")
	ErrDuplicateTag      = errors.New("duplicate pgn tag")
	ErrEmptySchema       = errors.New("no pgn tags")
	ErrHeaderWritten     = errors.New("header row already written")
	ErrNoInputs          = errors.New("no pgn files found")
	ErrDuplicateOutput   = errors.New("inputs share an output name")
	ErrWriterClosed      = errors.New("output writer is closed")
	ErrConsumerClosed    = errors.New("consumer is closed")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrColumnCount       = errors.New("row column count does not match header")
	ErrBufferFull        = errors.New("buffer full")
)

// ConfigError reports an invalid configuration value. It is fatal before any
// file is processed.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: field=%s value=%q: %s: %v", e.Field, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("config error: field=%s value=%q: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// WriteError represents a failed write of one tag value to an output sink.
type WriteError struct {
	Tag   string
	Value string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed writing tag %s with value %q: %v", e.Tag, e.Value, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ConversionError represents a failure converting a single input file.
type ConversionError struct {
	Input  string
	Output string
	Op     string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion error: op=%s input=%s output=%s: %v",
		e.Op, e.Input, e.Output, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// StorageError represents a storage operation failure.
type StorageError struct {
	Backend   string
	Operation string
	Path      string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: backend=%s operation=%s path=%s: %v",
		e.Backend, e.Operation, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError represents a stream message that does not carry a PGN
// payload.
type ValidationError struct {
	EventID string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: event=%s field=%s: %s", e.EventID, e.Field, e.Reason)
}

// IsConfig reports whether err is, or wraps, a configuration error.
func IsConfig(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
