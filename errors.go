package restflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// NonFieldErrors is the reserved key used for validation errors that are
// not attached to a specific field.
const NonFieldErrors = "non_field_errors"

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested object does not exist.
	ErrNotFound = errors.New("restflow: object not found")

	// ErrNotAuthenticated is returned when a request carries no valid
	// authentication credentials.
	ErrNotAuthenticated = errors.New("restflow: authentication credentials were not provided")

	// ErrPermissionDenied is returned when a permission rule rejects a request.
	ErrPermissionDenied = errors.New("restflow: permission denied")

	// ErrSkipField is an internal control signal meaning "omit this field".
	// It is consumed entirely within the validation and representation
	// engines and never surfaces to callers.
	ErrSkipField = errors.New("restflow: skip field")
)

// ValidationError is a structured per-field or per-item validation failure.
// Exactly one of Messages, Fields or Items is populated: Messages carries a
// flat ordered list for a single value, Fields maps child field names to
// their failures, and Items maps list indexes to their failures.
type ValidationError struct {
	Messages []string
	Fields   map[string]*ValidationError
	Items    map[int]*ValidationError

	// ItemCount is the total number of validated items. Detail renders
	// Items as a sequence of this length, with empty mappings for valid
	// slots; zero means "up to the largest error index".
	ItemCount int
}

// NewValidationError returns a flat validation error with the given messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// FieldErrors returns a structured validation error keyed by field name.
func FieldErrors(fields map[string]*ValidationError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// ItemErrors returns a structured validation error keyed by list index.
func ItemErrors(items map[int]*ValidationError) *ValidationError {
	return &ValidationError{Items: items}
}

// ItemErrorsN is ItemErrors with the total item count, so trailing valid
// items still render as empty mappings.
func ItemErrorsN(n int, items map[int]*ValidationError) *ValidationError {
	return &ValidationError{Items: items, ItemCount: n}
}

// Structured reports whether the error targets child fields or items rather
// than a single value.
func (e *ValidationError) Structured() bool {
	return len(e.Fields) > 0 || len(e.Items) > 0
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("restflow: invalid data")
	switch {
	case len(e.Messages) > 0:
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Messages, "; "))
	case len(e.Fields) > 0:
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&sb, " in fields [%s]", strings.Join(names, ", "))
	case len(e.Items) > 0:
		fmt.Fprintf(&sb, " in %d item(s)", len(e.Items))
	}
	return sb.String()
}

// Detail returns the wire-shaped representation of the error: a []string
// for flat errors, a map keyed by field name, or an ordered sequence with
// one entry per item, empty mappings marking valid items.
func (e *ValidationError) Detail() any {
	switch {
	case len(e.Fields) > 0:
		m := make(map[string]any, len(e.Fields))
		for name, child := range e.Fields {
			m[name] = child.Detail()
		}
		return m
	case len(e.Items) > 0:
		n := e.ItemCount
		for idx := range e.Items {
			if idx+1 > n {
				n = idx + 1
			}
		}
		out := make([]any, n)
		for i := range out {
			out[i] = map[string]any{}
		}
		for idx, child := range e.Items {
			if idx >= 0 && idx < n {
				out[idx] = child.Detail()
			}
		}
		return out
	default:
		if e.Messages == nil {
			return []string{}
		}
		return e.Messages
	}
}

// MarshalJSON renders the error in its wire shape.
func (e *ValidationError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Detail())
}

// IsValidation returns true if the error is a ValidationError.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// AsValidation returns the ValidationError wrapped by err, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var e *ValidationError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// NotFoundError reports a failed point lookup.
type NotFoundError struct {
	label string
	key   any
}

// NewNotFoundError returns a new NotFoundError for the given object label.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithKey returns a new NotFoundError carrying the key that
// was searched for.
func NewNotFoundErrorWithKey(label string, key any) *NotFoundError {
	return &NotFoundError{label: label, key: key}
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.key != nil {
		return fmt.Sprintf("restflow: %s not found (key=%v)", e.label, e.key)
	}
	return fmt.Sprintf("restflow: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool { return err == ErrNotFound }

// Label returns the object label.
func (e *NotFoundError) Label() string { return e.label }

// Key returns the key that was searched for, if available.
func (e *NotFoundError) Key() any { return e.key }

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// AuthenticationError reports failed or missing authentication credentials.
// It aborts the authenticator chain immediately.
type AuthenticationError struct {
	msg string
	// Scheme is the value advertised in the WWW-Authenticate response header.
	Scheme string
}

// NewAuthenticationError returns a new AuthenticationError.
func NewAuthenticationError(msg string) *AuthenticationError {
	return &AuthenticationError{msg: msg}
}

// Error returns the error string.
func (e *AuthenticationError) Error() string {
	if e.msg == "" {
		return ErrNotAuthenticated.Error()
	}
	return "restflow: " + e.msg
}

// Is reports whether the target error matches AuthenticationError.
func (e *AuthenticationError) Is(err error) bool { return err == ErrNotAuthenticated }

// IsAuthentication returns true if the error is an AuthenticationError.
func IsAuthentication(err error) bool {
	if err == nil {
		return false
	}
	var e *AuthenticationError
	return errors.As(err, &e) || errors.Is(err, ErrNotAuthenticated)
}

// PermissionError reports a request rejected by a permission rule.
type PermissionError struct {
	msg string
}

// NewPermissionError returns a new PermissionError. An empty message uses
// the default detail string.
func NewPermissionError(msg string) *PermissionError {
	return &PermissionError{msg: msg}
}

// Error returns the error string.
func (e *PermissionError) Error() string {
	if e.msg == "" {
		return ErrPermissionDenied.Error()
	}
	return "restflow: " + e.msg
}

// Is reports whether the target error matches PermissionError.
func (e *PermissionError) Is(err error) bool { return err == ErrPermissionDenied }

// IsPermissionDenied returns true if the error is a PermissionError.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	var e *PermissionError
	return errors.As(err, &e) || errors.Is(err, ErrPermissionDenied)
}

// ThrottledError reports a request rejected by throttling. Wait is the
// maximum finite wait time collected across all denying throttles.
type ThrottledError struct {
	Wait time.Duration
}

// Error returns the error string.
func (e *ThrottledError) Error() string {
	if e.Wait > 0 {
		return fmt.Sprintf("restflow: request was throttled, available in %s", e.Wait)
	}
	return "restflow: request was throttled"
}

// IsThrottled returns true if the error is a ThrottledError.
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}
	var e *ThrottledError
	return errors.As(err, &e)
}

// MethodNotAllowedError reports a request method with no bound handler.
type MethodNotAllowedError struct {
	Method string
}

// Error returns the error string.
func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("restflow: method %q not allowed", e.Method)
}

// IsMethodNotAllowed returns true if the error is a MethodNotAllowedError.
func IsMethodNotAllowed(err error) bool {
	if err == nil {
		return false
	}
	var e *MethodNotAllowedError
	return errors.As(err, &e)
}

// ConfigError is a fatal misconfiguration detected at schema construction or
// route-binding time. It is never translated into a response.
type ConfigError struct {
	msg string
}

// Configf returns a new formatted ConfigError.
func Configf(format string, a ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, a...)}
}

// Error returns the error string.
func (e *ConfigError) Error() string { return "restflow: " + e.msg }

// IsConfig returns true if the error is a ConfigError.
func IsConfig(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// ContractError is an assertion-class failure raised on integrator misuse,
// such as calling Save before IsValid. It is panicked, never returned, and
// must not be recovered into a response.
type ContractError struct {
	msg string
}

// Contractf returns a new formatted ContractError.
func Contractf(format string, a ...any) *ContractError {
	return &ContractError{msg: fmt.Sprintf(format, a...)}
}

// Error returns the error string.
func (e *ContractError) Error() string { return "restflow: " + e.msg }

// IsContract returns true if the error is a ContractError.
func IsContract(err error) bool {
	if err == nil {
		return false
	}
	var e *ContractError
	return errors.As(err, &e)
}
