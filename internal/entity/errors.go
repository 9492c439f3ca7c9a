package entity

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the classification of an extraction failure.
type ErrorKind string

const (
	KindInvalidLinkFormat ErrorKind = "InvalidLinkFormat"
	KindUntrustedHost     ErrorKind = "UntrustedHost"
	KindRateLimitExceeded ErrorKind = "RateLimitExceeded"
	KindUnreachable       ErrorKind = "Unreachable"
	KindNotOk             ErrorKind = "NotOk"
	KindRestricted        ErrorKind = "Restricted"
	KindProtected         ErrorKind = "Protected"
	KindMalformed         ErrorKind = "Malformed"
	KindNotFound          ErrorKind = "NotFound"
	KindInternal          ErrorKind = "Internal"
)

// Sub-reasons reported alongside 403 responses.
const (
	ReasonRestricted = "RESTRICTED"
	ReasonProtected  = "PROTECTED"
)

// User-facing messages. Both link validation kinds share one message so the
// caller cannot tell which check rejected the link.
const (
	MsgInvalidLink  = "Invalid Telegram link format. Example: https://t.me/channel/123"
	MsgMissingLink  = "Please provide a Telegram message link"
	MsgRateLimited  = "Rate limit exceeded. Please try again later."
	MsgUnreachable  = "Cannot access this message. Please ensure the link is correct and the channel is public."
	MsgNotFound     = "Message not found or has no extractable content"
	MsgRestricted   = "This message is restricted and cannot be displayed"
	MsgProtected    = "This message is protected and can only be viewed in the Telegram app"
	MsgInternal     = "Failed to fetch message. Please try again later."
	MsgMalformedDef = "Telegram returned an error for this message"
)

// Error is the tagged result of a failed extraction.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status is the upstream HTTP status for NotOk errors, 0 otherwise.
	Status int
	Err    error
}

// NewError creates an error of the given kind with the default message for it.
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Message: defaultMessage(kind), Err: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)

	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	var t *Error

	if !errors.As(target, &t) {
		return false
	}

	return t.Kind == e.Kind
}

// HTTPStatus maps the error kind to the status code returned to clients.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidLinkFormat, KindUntrustedHost, KindMalformed:
		return http.StatusBadRequest
	case KindRestricted, KindProtected:
		return http.StatusForbidden
	case KindUnreachable, KindNotOk, KindNotFound:
		return http.StatusNotFound
	case KindRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Reason returns the 403 sub-reason, or an empty string.
func (e *Error) Reason() string {
	switch e.Kind {
	case KindRestricted:
		return ReasonRestricted
	case KindProtected:
		return ReasonProtected
	default:
		return ""
	}
}

// Definitive reports whether the page itself declared the state, in which
// case no other endpoint form should be tried.
func (e *Error) Definitive() bool {
	return e.Kind == KindRestricted || e.Kind == KindProtected || e.Kind == KindMalformed
}

// AsError converts any error into an *Error. Unknown errors become Internal
// with the generic message; the original error is kept as the cause.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error

	if errors.As(err, &e) {
		return e
	}

	return NewError(KindInternal, err)
}

// KindOf returns the kind of err, or an empty kind for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	return AsError(err).Kind
}

func defaultMessage(kind ErrorKind) string {
	switch kind {
	case KindInvalidLinkFormat, KindUntrustedHost:
		return MsgInvalidLink
	case KindRateLimitExceeded:
		return MsgRateLimited
	case KindUnreachable, KindNotOk:
		return MsgUnreachable
	case KindNotFound:
		return MsgNotFound
	case KindRestricted:
		return MsgRestricted
	case KindProtected:
		return MsgProtected
	case KindMalformed:
		return MsgMalformedDef
	default:
		return MsgInternal
	}
}
