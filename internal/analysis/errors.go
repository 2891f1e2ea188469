package analysis

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an operation-level failure.
type Kind string

const (
	KindConfig    Kind = "config"
	KindUpstream  Kind = "upstream"
	KindTimeout   Kind = "timeout"
	KindCancelled Kind = "cancelled"
)

// Error is a fatal analysis failure. No partial report accompanies it.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func configError(format string, a ...any) *Error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, a...)}
}

// contextError maps a context failure to a timeout or cancellation error.
// Other errors are returned as upstream errors prefixed with what.
func contextError(err error, what string) *Error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Message: "analysis exceeded its time limit"}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCancelled, Message: "analysis was cancelled"}
	}
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf("%s: %v", what, err)}
}
