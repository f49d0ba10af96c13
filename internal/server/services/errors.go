package services

import "github.com/dmitrijs2005/gatherer/internal/common"

// FieldError rejects one request field. It matches common.ErrorValidation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *FieldError) Unwrap() error { return common.ErrorValidation }
