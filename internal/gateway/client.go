// Package gateway is the single path from chuck to the completion service.
// It bounds concurrency, applies per-call deadlines and retries, and
// fans batches of tagged prompts out concurrently.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

// LLMClient defines the interface for completion providers.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ClientFunc adapts a function to LLMClient.
type ClientFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Task is one tagged prompt in a batch.
type Task struct {
	ID     string
	Prompt string
}

var (
	// ErrEmptyResponse is returned by providers that produce no text.
	ErrEmptyResponse = errors.New("empty completion response")

	// ErrDuplicateTaskID rejects a batch before dispatch.
	ErrDuplicateTaskID = errors.New("duplicate task id in batch")

	// ErrEmptyTaskID rejects a batch containing an untagged task.
	ErrEmptyTaskID = errors.New("empty task id in batch")
)

// GatewayError reports a completion failure to the calling phase.
type GatewayError struct {
	Op       string // "complete" or "complete_batch"
	TaskID   string // empty for single calls
	Attempts int
	Err      error
}

func (e *GatewayError) Error() string {
	switch {
	case e.TaskID != "" && e.Attempts > 0:
		return fmt.Sprintf("gateway %s: task %s failed after %d attempt(s): %v", e.Op, e.TaskID, e.Attempts, e.Err)
	case e.TaskID != "":
		return fmt.Sprintf("gateway %s: task %s: %v", e.Op, e.TaskID, e.Err)
	default:
		return fmt.Sprintf("gateway %s: failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
	}
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsGatewayError reports whether err carries a *GatewayError.
func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}
