package generation

import (
	"context"
	"errors"
	"fmt"

	"ai-artist-backend/internal/gemini"
	"ai-artist-backend/internal/media"
	"ai-artist-backend/internal/workspace"
)

// Kind classifies a failure for the caller.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindCredentialRequired Kind = "credential_required"
	KindCredentialExpired  Kind = "credential_expired"
	KindBlocked            Kind = "blocked"
	KindEmptyResult        Kind = "empty_result"
	KindTransient          Kind = "transient"
	KindStorage            Kind = "storage"
	KindBusy               Kind = "busy"
)

// Error is the user-facing failure placed in a controller's error slot.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrBusy rejects a dispatch while the controller already has a run in flight.
var ErrBusy = &Error{Kind: KindBusy, Message: "a generation is already in progress"}

var ErrTooManyInputs = errors.New("too many input images")

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf reports the kind of err. Unknown errors are transient.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return classify(err, "").Kind
}

// classify converts a failure from the backend, encoder or store into an *Error.
// prefix is prepended to the message of service failures.
func classify(err error, prefix string) *Error {
	var (
		ge       *Error
		blocked  *gemini.BlockedError
		storeErr *workspace.StorageError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ge):
		return ge
	case errors.As(err, &blocked):
		return &Error{Kind: KindBlocked, Message: blocked.FriendlyMessage(), Err: err}
	case errors.Is(err, gemini.ErrCredentialRejected):
		return &Error{Kind: KindCredentialExpired, Message: "The API key was not found or is invalid. Please select another key.", Err: err}
	case errors.As(err, &storeErr):
		return &Error{Kind: KindStorage, Message: "The workspace could not be updated.", Err: err}
	case errors.Is(err, media.ErrEmptyFile), errors.Is(err, ErrTooManyInputs):
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTransient, Message: "The generation was interrupted.", Err: err}
	}
	msg := err.Error()
	if prefix != "" {
		msg = fmt.Sprintf("%s: %s", prefix, msg)
	}
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}
