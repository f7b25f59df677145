// Package omniverr defines the error taxonomy shared across the ingestion
// core. Every component wraps failures into one of these kinds instead of
// returning ad-hoc errors, so callers can branch on Kind without parsing
// messages.
package omniverr

import (
	"errors"
	"fmt"
)

// Kind identifies the origin of a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindRequest
	KindFetchURL
	KindParseRSSChannel
	KindFetchNews
	KindEmbedding
	KindDatabase
	KindAlreadyExists
	KindNotFound
	KindExtractLink
	KindWebDriver
	KindWebDriverNotFound
	KindWebDriverPool
	KindFirebase
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "Request"
	case KindFetchURL:
		return "FetchUrl"
	case KindParseRSSChannel:
		return "ParseRssChannel"
	case KindFetchNews:
		return "FetchNews"
	case KindEmbedding:
		return "Embedding"
	case KindDatabase:
		return "Database"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindNotFound:
		return "NotFound"
	case KindExtractLink:
		return "ExtractLinkError"
	case KindWebDriver:
		return "WebDriverError"
	case KindWebDriverNotFound:
		return "WebDriverNotFound"
	case KindWebDriverPool:
		return "WebDriverPool"
	case KindFirebase:
		return "FirebaseError"
	case KindParse:
		return "ParseError"
	default:
		return "Unknown"
	}
}

// Error is the single wrapped-error type used across the ingestion core.
type Error struct {
	Kind  Kind
	What  string // populated for KindNotFound
	Cause error
}

func (e *Error) Error() string {
	if e.What != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.What)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(k Kind, cause error) *Error { return &Error{Kind: k, Cause: cause} }

func Request(cause error) *Error         { return newErr(KindRequest, cause) }
func FetchURL(cause error) *Error        { return newErr(KindFetchURL, cause) }
func ParseRSSChannel(cause error) *Error { return newErr(KindParseRSSChannel, cause) }
func FetchNews(cause error) *Error       { return newErr(KindFetchNews, cause) }
func Embedding(cause error) *Error       { return newErr(KindEmbedding, cause) }
func Database(cause error) *Error        { return newErr(KindDatabase, cause) }
func AlreadyExists() *Error              { return &Error{Kind: KindAlreadyExists} }
func NotFound(what string) *Error        { return &Error{Kind: KindNotFound, What: what} }
func ExtractLink(cause error) *Error     { return newErr(KindExtractLink, cause) }
func WebDriver(cause error) *Error       { return newErr(KindWebDriver, cause) }
func WebDriverNotFound() *Error          { return &Error{Kind: KindWebDriverNotFound} }
func Firebase(cause error) *Error        { return newErr(KindFirebase, cause) }
func Parse(cause error) *Error           { return newErr(KindParse, cause) }

// PoolErrorKind identifies the sub-kind of a WebDriverPool error.
type PoolErrorKind int

const (
	PoolExhausted PoolErrorKind = iota
	PoolTimeout
	PoolWebDriver
)

func (k PoolErrorKind) String() string {
	switch k {
	case PoolExhausted:
		return "Exhausted"
	case PoolTimeout:
		return "Timeout"
	case PoolWebDriver:
		return "WebDriver"
	default:
		return "Unknown"
	}
}

// PoolError wraps driver-pool specific failures.
type PoolError struct {
	SubKind PoolErrorKind
	Cause   error
}

func (e *PoolError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pool(%s): %s", e.SubKind, e.Cause)
	}
	return fmt.Sprintf("pool(%s)", e.SubKind)
}

func (e *PoolError) Unwrap() error { return e.Cause }

func WebDriverPool(sub PoolErrorKind, cause error) *Error {
	return &Error{Kind: KindWebDriverPool, Cause: &PoolError{SubKind: sub, Cause: cause}}
}

var (
	ErrExhausted = &PoolError{SubKind: PoolExhausted}
	ErrTimeout   = &PoolError{SubKind: PoolTimeout}
)

// Is supports errors.Is comparisons against the sentinel pool errors
// above by sub-kind rather than identity, since callers construct new
// PoolError values with causes attached.
func (e *PoolError) Is(target error) bool {
	t, ok := target.(*PoolError)
	if !ok {
		return false
	}
	return e.SubKind == t.SubKind
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, otherwise KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
