package webrouter

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable code naming the pipeline stage that failed.
type ErrorKind string

const (
	// KindRouting marks an unsupported method or an unregistered path.
	KindRouting ErrorKind = "ROUTING"
	// KindBodyDecode marks a malformed or oversized body, or a failure storing an upload.
	KindBodyDecode ErrorKind = "BODY_DECODE"
	// KindHandler marks a failure reported (or a panic raised) by application code.
	KindHandler ErrorKind = "HANDLER"
	// KindFileRead marks a FileRoute whose file could not be read.
	KindFileRead ErrorKind = "FILE_READ"
	// KindSerialization marks a JSON encoding, cookie or template rendering failure.
	KindSerialization ErrorKind = "SERIALIZATION"
	// KindCompression marks a gzip failure.
	KindCompression ErrorKind = "COMPRESSION"
)

var (
	ErrMethodNotSupported = errors.New("method not supported")
	ErrRouteNotFound      = errors.New("route not found")
)

// PipelineError carries the failing stage alongside the underlying error. Error()
// returns the underlying message unchanged so it can be reflected to the client.
type PipelineError struct {
	Kind ErrorKind
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func newPipelineError(kind ErrorKind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Err: err}
}

// asPipelineError classifies err, defaulting to fallback when it was not produced by
// the pipeline itself.
func asPipelineError(err error, fallback ErrorKind) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return newPipelineError(fallback, err)
}

// KindOf returns the ErrorKind of err, or the empty string for foreign errors.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func panicError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", recovered)
}
