package appointments

import (
	"errors"

	"agenda/backend/internal/scheduling"
	"agenda/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// ConflictError reports a request the calendar refused. Occurrences lists
// every refused occurrence when a series was checked.
type ConflictError struct {
	Kind        scheduling.Kind
	Message     string
	Occurrences []scheduling.OccurrenceConflict
	err         error
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return e.err
}

func rejection(d scheduling.Decision) error {
	return &ConflictError{Kind: d.Kind, Message: d.Reason()}
}

// translate turns store conflicts raised by the database backstop into the
// same error shape admission refusals use.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var cErr *ConflictError
	if errors.As(err, &cErr) {
		return err
	}
	if errors.Is(err, store.ErrConflict) {
		return &ConflictError{
			Kind:    scheduling.KindSlotConflict,
			Message: scheduling.KindSlotConflict.Message(),
			err:     err,
		}
	}
	return err
}
