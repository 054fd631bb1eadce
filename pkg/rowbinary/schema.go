package rowbinary

import (
	"fmt"
	"strings"

	"github.com/clickhouse-wire/chwire/internal/wireio"
	"github.com/clickhouse-wire/chwire/pkg/chtype"
)

// Format selects which member of the RowBinary family a Writer/Reader
// speaks.
type Format uint8

const (
	// Plain carries no header at all: the caller must already know the
	// column count, names, and types out of band.
	Plain Format = iota
	// WithNames prefixes the stream with a uvarint column count followed
	// by that many length-prefixed column name strings.
	WithNames
	// WithNamesAndTypes additionally follows the names with a
	// length-prefixed type string per column.
	WithNamesAndTypes
)

// Column describes one column of a row schema: its name and its parsed
// type.
type Column struct {
	Name string
	Type *chtype.TypeDesc
}

// Schema is the ordered column list a RowBinary stream is read or written
// against. Schema is always the logical, unexpanded column list: a
// Nested(...) column appears here as a single Column, the way row
// encoding/decoding (WriteRow/ReadRow) dispatches on it. Headers on the
// wire are expanded first, the way the server's own RowBinaryWithNames(
// AndTypes) headers list "events.name Array(String)",
// "events.count Array(UInt32)" rather than a single
// "events Nested(name String, count UInt32)" entry.
type Schema []Column

// WriteHeader writes the framing format requires ahead of the first row.
// Plain writes nothing.
func WriteHeader(w *wireio.Writer, format Format, schema Schema) error {
	wire := expandSchemaForWriting(schema)
	switch format {
	case Plain:
		return nil
	case WithNames:
		if err := w.WriteUvarint(uint64(len(wire))); err != nil {
			return err
		}
		for _, col := range wire {
			if err := w.WriteString(col.Name); err != nil {
				return err
			}
		}
		return nil
	case WithNamesAndTypes:
		if err := w.WriteUvarint(uint64(len(wire))); err != nil {
			return err
		}
		for _, col := range wire {
			if err := w.WriteString(col.Name); err != nil {
				return err
			}
		}
		for _, col := range wire {
			if err := w.WriteString(col.Type.String()); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("rowbinary: unknown format %d", format)
	}
}

// expandSchemaForWriting turns each Nested column into n parallel
// dotted-name Array(Ti) columns, the shape the header actually carries on
// the wire, while leaving every other column untouched.
func expandSchemaForWriting(schema Schema) Schema {
	var wire Schema
	for _, col := range schema {
		if col.Type.Kind != chtype.KindNested {
			wire = append(wire, col)
			continue
		}
		for _, field := range col.Type.Fields {
			wire = append(wire, Column{
				Name: col.Name + "." + field.Name,
				Type: &chtype.TypeDesc{Kind: chtype.KindArray, Elem: field.Type},
			})
		}
	}
	return wire
}

// ReadHeader reads the framing format requires, resolving column types
// against knownTypes when format is WithNames (which carries no type
// strings of its own). If format is WithNamesAndTypes, knownTypes may be
// nil: the wire types are parsed and used directly, and SchemaMismatch is
// returned if they were also supplied and disagree. The returned Schema
// is always collapsed back to logical form: dotted Nested sub-columns are
// regrouped into a single Nested Column.
func ReadHeader(r *wireio.Reader, format Format, knownTypes Schema) (Schema, error) {
	switch format {
	case Plain:
		if knownTypes == nil {
			return nil, fmt.Errorf("rowbinary: plain RowBinary requires a schema supplied out of band")
		}
		return knownTypes, nil
	case WithNames:
		names, err := readNameList(r)
		if err != nil {
			return nil, err
		}
		if knownTypes == nil {
			return nil, fmt.Errorf("rowbinary: RowBinaryWithNames requires column types supplied out of band")
		}
		wireKnown := expandSchemaForWriting(knownTypes)
		if len(names) != len(wireKnown) {
			return nil, newSchemaMismatch(fmt.Sprintf("wire header has %d columns, known schema expands to %d", len(names), len(wireKnown)))
		}
		for i, name := range names {
			if name != wireKnown[i].Name {
				return nil, newSchemaMismatch(fmt.Sprintf("column %d: wire name %q, known name %q", i, name, wireKnown[i].Name))
			}
		}
		return knownTypes, nil
	case WithNamesAndTypes:
		names, err := readNameList(r)
		if err != nil {
			return nil, err
		}
		wire := make(Schema, len(names))
		for i, name := range names {
			typeStr, err := r.ReadString()
			if err != nil {
				return nil, err
			}
			ty, err := chtype.Parse(typeStr)
			if err != nil {
				return nil, fmt.Errorf("rowbinary: column %q: %w", name, err)
			}
			wire[i] = Column{Name: name, Type: ty}
		}
		if knownTypes != nil {
			wireKnown := expandSchemaForWriting(knownTypes)
			if err := wire.mustMatch(wireKnown); err != nil {
				return nil, err
			}
			return knownTypes, nil
		}
		return collapseWireSchema(wire), nil
	default:
		return nil, fmt.Errorf("rowbinary: unknown format %d", format)
	}
}

// collapseWireSchema regroups consecutive dotted-name Array(Ti) columns
// that share a common "prefix." into a single logical Nested column,
// mirroring expandSchemaForWriting in reverse. It is only needed when no
// known schema was supplied, so there is nothing to compare the wire
// columns against.
func collapseWireSchema(wire Schema) Schema {
	var out Schema
	i := 0
	for i < len(wire) {
		prefix, field, ok := splitDottedName(wire[i].Name)
		if !ok || wire[i].Type.Kind != chtype.KindArray {
			out = append(out, wire[i])
			i++
			continue
		}
		fields := []chtype.TupleField{{Name: field, Type: wire[i].Type.Elem}}
		j := i + 1
		for j < len(wire) {
			p2, f2, ok2 := splitDottedName(wire[j].Name)
			if !ok2 || p2 != prefix || wire[j].Type.Kind != chtype.KindArray {
				break
			}
			fields = append(fields, chtype.TupleField{Name: f2, Type: wire[j].Type.Elem})
			j++
		}
		out = append(out, Column{Name: prefix, Type: &chtype.TypeDesc{Kind: chtype.KindNested, Fields: fields}})
		i = j
	}
	return out
}

func splitDottedName(name string) (prefix, field string, ok bool) {
	idx := strings.Index(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

func readNameList(r *wireio.Reader) ([]string, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	names := make([]string, n)
	for i := range names {
		names[i], err = r.ReadString()
		if err != nil {
			return nil, err
		}
	}
	return names, nil
}

func (s Schema) mustMatch(other Schema) error {
	if len(s) != len(other) {
		return newSchemaMismatch(fmt.Sprintf("got %d columns, expected %d", len(s), len(other)))
	}
	for i := range s {
		if s[i].Name != other[i].Name {
			return newSchemaMismatch(fmt.Sprintf("column %d: got name %q, expected %q", i, s[i].Name, other[i].Name))
		}
		if s[i].Type.String() != other[i].Type.String() {
			return newSchemaMismatch(fmt.Sprintf("column %q: got type %s, expected %s", s[i].Name, s[i].Type.String(), other[i].Type.String()))
		}
	}
	return nil
}
