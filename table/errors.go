package table

import (
	"errors"
	"fmt"
)

var (
	ErrCellEditRejected = errors.New("cell edit rejected")
	ErrSelection        = errors.New("invalid selection")
	ErrRowOutOfRange    = errors.New("row out of range")
	ErrColumnOutOfRange = errors.New("column out of range")
	ErrNotEditable      = errors.New("column is not editable")
	ErrNotBoolean       = errors.New("not a boolean")
	ErrNotSortable      = errors.New("column is not sortable")
)

// CellEditError reports a rejected edit. The row is left as it was.
type CellEditError struct {
	Row    int
	Column int
	Label  string
	Value  string
	Err    error
}

func (e *CellEditError) Error() string {
	return fmt.Sprintf("row %d column %d (%s): cannot set %q: %v", e.Row, e.Column, e.Label, e.Value, e.Err)
}

func (e *CellEditError) Unwrap() error { return e.Err }

func (e *CellEditError) Is(target error) bool { return target == ErrCellEditRejected }

// SelectionError reports a row command invoked with the wrong number of rows.
type SelectionError struct {
	Want  string
	Count int
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("%v: %d rows selected, want %s", ErrSelection, e.Count, e.Want)
}

func (e *SelectionError) Is(target error) bool { return target == ErrSelection }
