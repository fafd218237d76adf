package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrDuplicateReview       = errors.New("review already exists for this target")
	ErrForbidden             = errors.New("forbidden")
	ErrUnauthenticated       = errors.New("authenticated active user required")
	ErrInvalidTarget         = errors.New("review target cannot be resolved")
	ErrTargetNotFound        = errors.New("review target not found")
	ErrUnsupportedTargetKind = errors.New("unsupported review target kind")
	ErrReviewNotFound        = errors.New("review not found")
	ErrMediaLimitExceeded    = errors.New("review media limit exceeded")
	ErrUnsupportedMediaType  = errors.New("unsupported media type")
	ErrCompanyNotFound       = errors.New("company not found")
	ErrNotificationNotFound  = errors.New("notification not found")
)

// ValidationError 필드 단위 검증 오류 (errors.Is(err, ErrValidation) 로 판별)
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
