// Package schema validates JSON payloads received from the Harmony service
// before they are turned into harmony types.
//
// Decoding alone is not enough: encoding/json silently zeroes missing fields
// and accepts any string for an enum. An Object schema first checks the raw
// object for required and non-nullable keys, then decodes, then runs the
// type-specific checks. Every issue found is reported in one ValidationError.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

var (
	// ErrNotObject is reported when a payload that must be a JSON object is
	// something else (array, string, null, malformed JSON).
	ErrNotObject = errors.New("expected a JSON object")

	// ErrNotArray is reported when a payload that must be a JSON array is not.
	ErrNotArray = errors.New("expected a JSON array")
)

// Issue is a single validation problem at a path inside the payload.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) Error() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// Issuef builds an Issue for the given path.
func Issuef(path, format string, args ...any) error {
	return Issue{Path: path, Message: fmt.Sprintf(format, args...)}
}

// ValidationError collects every issue found while validating one payload.
type ValidationError struct {
	Schema string
	errs   error
}

// NewValidationError wraps issues combined with multierr.
func NewValidationError(schema string, errs error) *ValidationError {
	return &ValidationError{Schema: schema, errs: errs}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0)
	for _, err := range multierr.Errors(e.errs) {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid %s: %s", e.Schema, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual issues to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	return multierr.Errors(e.errs)
}

// Issues returns the issues with their paths.
func (e *ValidationError) Issues() []Issue {
	var issues []Issue
	for _, err := range multierr.Errors(e.errs) {
		var issue Issue
		if errors.As(err, &issue) {
			issues = append(issues, issue)
		} else {
			issues = append(issues, Issue{Message: err.Error()})
		}
	}
	return issues
}

// Validator checks a raw JSON value without producing a typed result.
type Validator interface {
	Validate(raw json.RawMessage) error
}

// Object validates a JSON object and decodes it into T.
type Object[T any] struct {
	Name string

	// Required keys must be present and not null.
	Required []string

	// Nested validators run against the raw value of present, non-null keys.
	Nested map[string]Validator

	// Check runs after decoding; it returns zero or more issues combined with
	// multierr.
	Check func(v *T) error
}

// Parse validates data and returns the decoded value.
func (o Object[T]) Parse(data []byte) (T, error) {
	var v T
	if err := o.parse(data, &v, ""); err != nil {
		var zero T
		return zero, NewValidationError(o.Name, err)
	}
	return v, nil
}

// Validate implements Validator.
func (o Object[T]) Validate(raw json.RawMessage) error {
	var v T
	return o.parse(raw, &v, "")
}

func (o Object[T]) parse(data []byte, v *T, prefix string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Issue{Path: prefix, Message: ErrNotObject.Error()}
	}

	var errs error
	for _, key := range o.Required {
		raw, ok := fields[key]
		if !ok {
			errs = multierr.Append(errs, Issuef(join(prefix, key), "required"))
		} else if isNull(raw) {
			errs = multierr.Append(errs, Issuef(join(prefix, key), "must not be null"))
		}
	}

	for key, nested := range o.Nested {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			continue
		}
		if err := nested.Validate(raw); err != nil {
			errs = multierr.Append(errs, prefixIssues(join(prefix, key), err))
		}
	}

	if errs != nil {
		return errs
	}

	if err := json.Unmarshal(data, v); err != nil {
		return decodeIssue(prefix, err)
	}

	if o.Check != nil {
		return prefixIssues(prefix, o.Check(v))
	}
	return nil
}

// Array validates a JSON array whose elements all satisfy Elem.
type Array[T any] struct {
	Elem Object[T]
}

// ArrayOf returns an array schema for elem.
func ArrayOf[T any](elem Object[T]) Array[T] {
	return Array[T]{Elem: elem}
}

// Parse validates data and returns the decoded elements.
func (a Array[T]) Parse(data []byte) ([]T, error) {
	items, err := a.parse(data)
	if err != nil {
		return nil, NewValidationError(a.Elem.Name+" list", err)
	}
	return items, nil
}

// Validate implements Validator.
func (a Array[T]) Validate(raw json.RawMessage) error {
	_, err := a.parse(raw)
	return err
}

func (a Array[T]) parse(data []byte) ([]T, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil || raws == nil {
		return nil, Issue{Message: ErrNotArray.Error()}
	}

	items := make([]T, len(raws))
	var errs error
	for i, raw := range raws {
		if err := a.Elem.parse(raw, &items[i], fmt.Sprintf("[%d]", i)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return items, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	if strings.HasPrefix(key, "[") {
		return prefix + key
	}
	return prefix + "." + key
}

func prefixIssues(prefix string, err error) error {
	if err == nil || prefix == "" {
		return err
	}
	var out error
	for _, e := range multierr.Errors(err) {
		var issue Issue
		if errors.As(e, &issue) {
			out = multierr.Append(out, Issue{Path: join(prefix, issue.Path), Message: issue.Message})
		} else {
			out = multierr.Append(out, Issue{Path: prefix, Message: e.Error()})
		}
	}
	return out
}

func decodeIssue(prefix string, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return Issuef(join(prefix, typeErr.Field), "expected %s, got %s", typeErr.Type, typeErr.Value)
	}
	return Issue{Path: prefix, Message: err.Error()}
}
