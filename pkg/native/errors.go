package native

import "fmt"

// RowCountMismatch reports that a Block's columns disagree on length, or
// that a column pushed into a Builder has a different length than the
// columns already present.
type RowCountMismatch struct {
	Reason string
}

func (e *RowCountMismatch) Error() string {
	return fmt.Sprintf("native: row count mismatch: %s", e.Reason)
}

func newRowCountMismatch(reason string) *RowCountMismatch {
	return &RowCountMismatch{Reason: reason}
}

// DuplicateColumn reports that a Builder was asked to add two columns
// under the same name without explicitly allowing duplicates.
type DuplicateColumn struct {
	Name string
}

func (e *DuplicateColumn) Error() string {
	return fmt.Sprintf("native: duplicate column name %q", e.Name)
}

// MissingColumn reports that StreamWriter.AppendRow's setter did not
// supply a value for a column the schema declares.
type MissingColumn struct {
	Name string
}

func (e *MissingColumn) Error() string {
	return fmt.Sprintf("native: missing column %q", e.Name)
}

// UnknownColumn reports that StreamWriter.AppendRow's setter supplied a
// value for a name that is not in the schema.
type UnknownColumn struct {
	Name string
}

func (e *UnknownColumn) Error() string {
	return fmt.Sprintf("native: unknown column %q", e.Name)
}

// InvalidValue reports that AppendJSON could not coerce a JSON value into
// the shape a column's TypeDesc requires.
type InvalidValue struct {
	Path   string
	Reason string
}

func (e *InvalidValue) Error() string {
	return fmt.Sprintf("native: invalid value at %s: %s", e.Path, e.Reason)
}

func newInvalidValue(path, reason string) *InvalidValue {
	return &InvalidValue{Path: path, Reason: reason}
}
