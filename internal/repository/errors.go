package repository

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrMalformedRecord is returned when a stored record fails shape validation on read.
	ErrMalformedRecord = errors.New("malformed record")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// CheckShape validates a decoded record against its struct tags.
func CheckShape(v *validator.Validate, record interface{}) error {
	if err := v.Struct(record); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return nil
}
