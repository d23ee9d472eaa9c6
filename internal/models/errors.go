package models

import (
	"errors"
	"strings"

	"github.com/daleribragimov115-spec/my-website/internal/connect"
	"github.com/go-playground/validator/v10"
)

const (
	RuleBody          = "body"
	RuleRequired      = "required"
	RulePhone         = "phone"
	RuleCommentLength = "comment_length"
	RuleRating        = "rating"
	RuleSchema        = "schema"
)

var (
	ErrStorageUnavailable = connect.ErrUnavailable
	ErrStorageTimeout     = errors.New("storage operation timed out")
	ErrReviewNotFound     = errors.New("review not found")
	ErrNotOwner           = errors.New("not the owner of this review")
)

// ValidationError reports a rejected field; Rule names the failed check.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func schemaError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Rule: RuleSchema, Message: err.Error()}
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, prettyError(fe))
	}
	return &ValidationError{Rule: RuleSchema, Message: strings.Join(msgs, ", ")}
}

func prettyError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if e.Kind().String() == "string" {
			return field + " must be at least " + e.Param() + " characters long"
		}
		return field + " must be greater than or equal to " + e.Param()
	case "max":
		return field + " must be less than or equal to " + e.Param()
	case "review_phone":
		return field + " must contain 10-13 digits"
	default:
		return e.Error()
	}
}
