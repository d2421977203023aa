package billing

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNoPending is returned by refresh when there is nothing to reconcile.
	ErrNoPending = errors.New("no pending payment found")
	// ErrBusy means the student's lock could not be taken in time.
	ErrBusy = errors.New("payment generation already in progress")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so messages match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError is a client mistake in the request; never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + " " + e.Message
}

func newValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "email":
		msg = "must be a valid email address"
	case "gt":
		msg = "must be greater than " + fe.Param()
	case "max":
		msg = "must be at most " + fe.Param() + " characters"
	default:
		msg = "is invalid"
	}
	return &ValidationError{Field: fe.Field(), Message: msg}
}
