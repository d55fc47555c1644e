package cms

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind classifies a domain error.
type ErrorKind int

const (
	NotFound ErrorKind = iota + 1
	InvalidArgument
	Duplicate
	Permission
	Logic
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InvalidArgument:
		return "invalid_argument"
	case Duplicate:
		return "duplicate"
	case Permission:
		return "permission"
	case Logic:
		return "logic"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound        = &Error{Kind: NotFound}
	ErrInvalidArgument = &Error{Kind: InvalidArgument}
	ErrDuplicate       = &Error{Kind: Duplicate}
	ErrPermission      = &Error{Kind: Permission}
	ErrLogic           = &Error{Kind: Logic}
)

// Error is a domain error with a machine-readable key (e.g.
// "page.slug.maxlength") and the data needed to render a localized message.
type Error struct {
	Kind ErrorKind
	Key  string
	Data map[string]any
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Key)
	if e.Key == "" {
		b.WriteString(e.Kind.String())
	}
	if len(e.Data) > 0 {
		keys := make([]string, 0, len(e.Data))
		for k := range e.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Data[k])
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind, and other *Error values by kind and key.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Key == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Key == t.Key
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case NotFound:
		return http.StatusNotFound
	case Permission:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func newError(kind ErrorKind, key string, data map[string]any) *Error {
	return &Error{Kind: kind, Key: key, Data: data}
}

func notFound(key string, data map[string]any) *Error {
	return newError(NotFound, key, data)
}

func invalidArgument(key string, data map[string]any) *Error {
	return newError(InvalidArgument, key, data)
}

func duplicate(key string, data map[string]any) *Error {
	return newError(Duplicate, key, data)
}

func permissionDenied(key string, data map[string]any) *Error {
	return newError(Permission, key, data)
}

func logicError(key string, data map[string]any) *Error {
	return newError(Logic, key, data)
}

// ErrorKey returns the domain key of err, or "" if err is not an *Error.
func ErrorKey(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Key
	}
	return ""
}
