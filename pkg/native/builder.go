package native

import (
	"fmt"

	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
)

// ColumnBuilder accumulates one column's values, validating each push
// against its declared TypeDesc, the way spec.md §4.8 describes typed
// column builders (GenericColumn/StringColumn/ArrayColumn/...) collapsed
// here into one builder parameterized by TypeDesc rather than by a Go
// generic per ClickHouse type family — TypeDesc is already the closed
// tagged union spec.md §9 asks for, so a second type-level dispatch would
// just duplicate it.
type ColumnBuilder struct {
	name   string
	typ    *chtype.TypeDesc
	values []chvalue.Value
}

// NewColumnBuilder creates an empty builder for a column named name of
// type typ.
func NewColumnBuilder(name string, typ *chtype.TypeDesc) *ColumnBuilder {
	return &ColumnBuilder{name: name, typ: typ}
}

// Name returns the column's declared name.
func (b *ColumnBuilder) Name() string { return b.name }

// Type returns the column's declared type.
func (b *ColumnBuilder) Type() *chtype.TypeDesc { return b.typ }

// Len returns the number of values pushed so far.
func (b *ColumnBuilder) Len() int { return len(b.values) }

// Push validates v against the builder's TypeDesc and appends it.
func (b *ColumnBuilder) Push(v chvalue.Value) error {
	if err := chvalue.Validate(b.typ, v); err != nil {
		return err
	}
	b.values = append(b.values, v)
	return nil
}

// Extend pushes each value of vs in order, stopping at the first
// validation failure. Values already pushed before the failure remain in
// the builder.
func (b *ColumnBuilder) Extend(vs []chvalue.Value) error {
	for _, v := range vs {
		if err := b.Push(v); err != nil {
			return err
		}
	}
	return nil
}

// Values returns the builder's accumulated values, aliasing its internal
// slice.
func (b *ColumnBuilder) Values() []chvalue.Value { return b.values }

// Builder assembles a Block from a set of ColumnBuilders, the way
// spec.md §4.8 describes a Native block builder's Build step: it checks
// that every column has the same row count and, unless explicitly
// allowed, that no two columns share a name.
type Builder struct {
	columns        []*ColumnBuilder
	allowDuplicate bool
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AllowDuplicateNames disables the duplicate-column-name check in Build.
// The wire format itself tolerates duplicate names (spec.md §3.3); the
// builder rejects them by default because a caller that names two
// columns the same is almost always a mistake.
func (b *Builder) AllowDuplicateNames() *Builder {
	b.allowDuplicate = true
	return b
}

// AddColumn registers a ColumnBuilder with the Builder. Order is
// preserved: the resulting Block's columns appear in the order they were
// added.
func (b *Builder) AddColumn(col *ColumnBuilder) *Builder {
	b.columns = append(b.columns, col)
	return b
}

// Build assembles the registered columns into an immutable Block,
// returning RowCountMismatch if any column's length disagrees with the
// first, and DuplicateColumn if two columns share a name and
// AllowDuplicateNames was not called.
func (b *Builder) Build() (Block, error) {
	if len(b.columns) == 0 {
		return Block{}, nil
	}
	numRows := b.columns[0].Len()
	seen := make(map[string]bool, len(b.columns))
	block := Block{Columns: make([]Column, len(b.columns))}
	for i, col := range b.columns {
		if col.Len() != numRows {
			return Block{}, newRowCountMismatch(fmt.Sprintf("column %q has %d rows, column %q has %d", col.name, col.Len(), b.columns[0].name, numRows))
		}
		if !b.allowDuplicate {
			if seen[col.name] {
				return Block{}, &DuplicateColumn{Name: col.name}
			}
			seen[col.name] = true
		}
		block.Columns[i] = Column{Name: col.name, Type: col.typ, Values: col.Values()}
	}
	return block, nil
}
