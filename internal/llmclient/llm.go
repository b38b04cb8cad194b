// Package llmclient defines the generation capability the orchestrator
// consumes: one structured-JSON request/response call per invocation.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrEmptyResponse reports a backend reply with no usable candidate text.
var ErrEmptyResponse = errors.New("llmclient: empty response from backend")

// Client is the external generation capability. GenerateJSON embeds input as
// interpolated JSON context below the prompt and returns the model's raw JSON.
// Cross-cutting concerns (retry, timeout) belong to the caller.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	Close() error
}

// BadRequestError marks a malformed-request-class failure: the transport or
// backend rejected the request. These usually clear up on a regenerated
// prompt, so the orchestrator retries them up to the attempt cap. Every other
// error class is fatal immediately.
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string { return "llmclient: bad request: " + e.Err.Error() }
func (e *BadRequestError) Unwrap() error { return e.Err }

func NewBadRequestError(err error) error {
	return &BadRequestError{Err: err}
}

// IsBadRequest reports whether err is malformed-request-class.
func IsBadRequest(err error) bool {
	var bre *BadRequestError
	return errors.As(err, &bre)
}
