// Package native encodes and decodes the ClickHouse Native block format:
// a column-oriented wire representation where each column carries its own
// name, type string, and contiguous run of encoded values, optionally
// wrapped in a checksummed LZ4/ZSTD compression frame.
package native

import (
	"fmt"
	"io"

	"github.com/clickhouse-wire/chwire/internal/wireio"
	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
)

// Column is one column of a Native block: its declared name/type and its
// values, one per row, in row order.
type Column struct {
	Name   string
	Type   *chtype.TypeDesc
	Values []chvalue.Value
}

// Block is a single Native block: a fixed row count shared by every
// column.
type Block struct {
	Columns []Column
}

// NumRows returns the block's row count, taken from its first column (all
// columns in a well-formed block share the same length).
func (b Block) NumRows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return len(b.Columns[0].Values)
}

// EncodeBlock writes a Native block header (uvarint column count, uvarint
// row count) followed by each column's name, type string, and encoded
// data, uncompressed. A Nested column is expanded into n parallel
// dotted-name Array(Ti) columns first, per spec.md §4.6: the wire never
// carries a Nested column directly. Use EncodeCompressedBlock to wrap the
// result in the checksummed compression frame the server uses on the
// wire.
func EncodeBlock(w *wireio.Writer, block Block) error {
	numRows := block.NumRows()
	for _, col := range block.Columns {
		if len(col.Values) != numRows {
			return newRowCountMismatch(fmt.Sprintf("column %q has %d rows, block has %d", col.Name, len(col.Values), numRows))
		}
	}

	wire, err := expandNestedColumns(block.Columns)
	if err != nil {
		return err
	}

	if err := w.WriteUvarint(uint64(len(wire))); err != nil {
		return err
	}
	if err := w.WriteUvarint(uint64(numRows)); err != nil {
		return err
	}
	for _, col := range wire {
		if err := w.WriteString(col.Name); err != nil {
			return err
		}
		if err := w.WriteString(col.Type.String()); err != nil {
			return err
		}
		if err := EncodeColumnData(w, col.Type, col.Values); err != nil {
			return fmt.Errorf("native: column %q: %w", col.Name, err)
		}
	}
	return nil
}

// DecodeBlock reads one Native block, parsing each column's type string
// and decoding its data, then collapses consecutive dotted-name
// Array(Ti) columns that share a "prefix." back into a single logical
// Nested column, the reverse of expandNestedColumns.
func DecodeBlock(r *wireio.Reader) (Block, error) {
	numColumns, err := r.ReadUvarint()
	if err != nil {
		return Block{}, err
	}
	numRows, err := r.ReadUvarint()
	if err != nil {
		return Block{}, err
	}

	wire := make([]Column, numColumns)
	for i := range wire {
		name, err := r.ReadString()
		if err != nil {
			return Block{}, err
		}
		typeStr, err := r.ReadString()
		if err != nil {
			return Block{}, err
		}
		ty, err := chtype.Parse(typeStr)
		if err != nil {
			return Block{}, fmt.Errorf("native: column %q: %w", name, err)
		}
		values, err := DecodeColumnData(r, ty, int(numRows))
		if err != nil {
			return Block{}, fmt.Errorf("native: column %q: %w", name, err)
		}
		wire[i] = Column{Name: name, Type: ty, Values: values}
	}
	return Block{Columns: collapseNestedColumns(wire)}, nil
}

// expandNestedColumns turns each Nested column's block-row values — each
// one an Array(Tuple(...)) of nested sub-rows, per spec.md §3.1 — into n
// parallel Array(Ti) columns named "name.fieldI" that each carry their
// own (identical) offsets array, the redundant-but-independent layout
// the server itself writes. Every other column passes through untouched.
func expandNestedColumns(columns []Column) ([]Column, error) {
	var wire []Column
	for _, col := range columns {
		if col.Type.Kind != chtype.KindNested {
			wire = append(wire, col)
			continue
		}
		fieldColumns := make([][]chvalue.Value, len(col.Type.Fields))
		for i := range fieldColumns {
			fieldColumns[i] = make([]chvalue.Value, 0, len(col.Values))
		}
		for _, blockRow := range col.Values {
			if blockRow.Kind != chvalue.KindArray {
				return nil, &wireio.EncodingError{Reason: fmt.Sprintf("Nested column %q: expected Array(Tuple(...)) value, got %s", col.Name, blockRow.TypeName())}
			}
			fieldItems := make([][]chvalue.Value, len(col.Type.Fields))
			for _, nestedRow := range blockRow.Items {
				if len(nestedRow.Items) != len(col.Type.Fields) {
					return nil, &wireio.EncodingError{Reason: fmt.Sprintf("Nested column %q: tuple arity mismatch", col.Name)}
				}
				for i, item := range nestedRow.Items {
					fieldItems[i] = append(fieldItems[i], item)
				}
			}
			for i := range fieldColumns {
				fieldColumns[i] = append(fieldColumns[i], chvalue.Value{Kind: chvalue.KindArray, Items: fieldItems[i]})
			}
		}
		for i, field := range col.Type.Fields {
			wire = append(wire, Column{
				Name:   col.Name + "." + field.Name,
				Type:   &chtype.TypeDesc{Kind: chtype.KindArray, Elem: field.Type},
				Values: fieldColumns[i],
			})
		}
	}
	return wire, nil
}

// collapseNestedColumns is the inverse of expandNestedColumns, used only
// when decoding a block with no caller-supplied schema to compare
// against.
func collapseNestedColumns(wire []Column) []Column {
	var out []Column
	i := 0
	for i < len(wire) {
		prefix, field, ok := splitDottedColumnName(wire[i].Name)
		if !ok || wire[i].Type.Kind != chtype.KindArray {
			out = append(out, wire[i])
			i++
			continue
		}
		fields := []chtype.TupleField{{Name: field, Type: wire[i].Type.Elem}}
		blockRows := len(wire[i].Values)
		j := i + 1
		for j < len(wire) {
			p2, f2, ok2 := splitDottedColumnName(wire[j].Name)
			if !ok2 || p2 != prefix || wire[j].Type.Kind != chtype.KindArray || len(wire[j].Values) != blockRows {
				break
			}
			fields = append(fields, chtype.TupleField{Name: f2, Type: wire[j].Type.Elem})
			j++
		}
		values := make([]chvalue.Value, blockRows)
		for row := 0; row < blockRows; row++ {
			nestedLen := len(wire[i].Values[row].Items)
			nestedRows := make([]chvalue.Value, nestedLen)
			for n := 0; n < nestedLen; n++ {
				items := make([]chvalue.Value, j-i)
				for k := i; k < j; k++ {
					items[k-i] = wire[k].Values[row].Items[n]
				}
				nestedRows[n] = chvalue.Value{Kind: chvalue.KindTuple, Items: items}
			}
			values[row] = chvalue.Value{Kind: chvalue.KindArray, Items: nestedRows}
		}
		out = append(out, Column{
			Name:   prefix,
			Type:   &chtype.TypeDesc{Kind: chtype.KindNested, Fields: fields},
			Values: values,
		})
		i = j
	}
	return out
}

func splitDottedColumnName(name string) (prefix, field string, ok bool) {
	idx := -1
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			idx = i
			break
		}
	}
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

// EncodeCompressedBlock encodes block uncompressed into memory, then
// wraps it in a single checksummed compression frame and writes that
// frame to w. The server always frames at this granularity: one frame per
// block, never per column.
func EncodeCompressedBlock(w io.Writer, codec wireio.Codec, block Block) error {
	raw, err := encodeBlockToBytes(block)
	if err != nil {
		return err
	}
	frame, err := wireio.EncodeFrame(codec, raw)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// DecodeCompressedBlock reads one checksummed compression frame from r
// and decodes the Native block inside it.
func DecodeCompressedBlock(r io.Reader) (Block, error) {
	raw, err := wireio.DecodeFrame(r)
	if err != nil {
		return Block{}, err
	}
	return DecodeBlock(wireio.NewReader(&byteReader{raw}))
}

type byteReader struct{ data []byte }

func (b *byteReader) Read(p []byte) (int, error) {
	n := copy(p, b.data)
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	b.data = b.data[n:]
	return n, nil
}

func encodeBlockToBytes(block Block) ([]byte, error) {
	buf := &growBuffer{}
	w := wireio.NewWriter(buf)
	if err := EncodeBlock(w, block); err != nil {
		return nil, err
	}
	return buf.data, nil
}

// growBuffer is a minimal io.Writer sink; bytes.Buffer would work too,
// but a dedicated type keeps this package's only external alloc pattern
// explicit and avoids pulling in bytes.Buffer's larger API for one use.
type growBuffer struct{ data []byte }

func (g *growBuffer) Write(p []byte) (int, error) {
	g.data = append(g.data, p...)
	return len(p), nil
}
