package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var ErrInvalid = errors.New("invalid")

// FieldError names one bad setting. Hint, when set, tells the user what would be accepted.
type FieldError struct {
	Field   string
	Message string
	Hint    string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationError collects every problem found in one pass so a config or front
// matter can be fixed in a single edit.
type ValidationError struct {
	Items []FieldError
}

func (e ValidationError) Error() string {
	switch len(e.Items) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + e.Items[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed (%d problems):\n", len(e.Items))
	for _, item := range e.Items {
		b.WriteString(" - ")
		b.WriteString(item.Error())
		b.WriteString("\n")
	}
	return b.String()
}

func (e *ValidationError) Add(field, msg string) {
	e.Items = append(e.Items, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) Addf(field, format string, args ...interface{}) {
	e.Add(field, fmt.Sprintf(format, args...))
}

// AddHint records a problem together with the accepted values.
func (e *ValidationError) AddHint(field, msg, hint string) {
	e.Items = append(e.Items, FieldError{Field: field, Message: msg, Hint: hint})
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func (e ValidationError) HasAny() bool {
	return len(e.Items) > 0
}

// Fields returns the field names that failed, in the order they were added.
func (e ValidationError) Fields() []string {
	out := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		out = append(out, item.Field)
	}
	return out
}

// Err returns nil when nothing was collected. Otherwise it returns the
// ValidationError with each field hint attached, readable through Hints.
func (e ValidationError) Err() error {
	if !e.HasAny() {
		return nil
	}
	var err error = e
	for _, item := range e.Items {
		if item.Hint != "" {
			err = errors.WithHintf(err, "%s: %s", item.Field, item.Hint)
		}
	}
	return err
}

// Hints flattens the user-facing hints carried anywhere in err's chain.
func Hints(err error) string {
	return errors.FlattenHints(err)
}
