package apperrors

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrEmptyBatch          = errors.New("batch contains no queries")
	ErrUnsafeTemplateValue = errors.New("template value failed injection check")
)
