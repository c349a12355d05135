package driver

import "errors"

var (
	ErrInvalidID          = errors.New("driver: invalid id")
	ErrInvalidWeek        = errors.New("driver: invalid follow-up week")
	ErrDriverNotFound     = errors.New("driver: not found")
	ErrEmptyImport        = errors.New("driver: import contains no rows")
	ErrNothingToExport    = errors.New("driver: no data to export")
	ErrNothingToUndo      = errors.New("driver: nothing to undo")
	ErrUnknownImportField = errors.New("driver: unknown import field")
)
