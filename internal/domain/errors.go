package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus is returned when a vectorizer is fitted on no documents.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrEmptyMaster is returned when matching against no master records.
	ErrEmptyMaster = errors.New("empty master dataset")
	// ErrInvalidRecord is matched by every *InvalidRecordError via errors.Is.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrStateMismatch indicates precomputed vectorizer state that does not fit the master dataset.
	ErrStateMismatch = errors.New("precomputed state does not match master dataset")
)

// InvalidRecordError reports an input row with a missing or null id or text field.
type InvalidRecordError struct {
	Table string
	Row   int
	Field string
}

func (e *InvalidRecordError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("invalid record: row %d: field %q is missing or null", e.Row, e.Field)
	}
	return fmt.Sprintf("invalid record in %s: row %d: field %q is missing or null", e.Table, e.Row, e.Field)
}

// Is reports whether target is ErrInvalidRecord.
func (e *InvalidRecordError) Is(target error) bool { return target == ErrInvalidRecord }
