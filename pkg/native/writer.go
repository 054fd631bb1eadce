package native

import (
	"io"

	"github.com/clickhouse-wire/chwire/internal/wireio"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
)

// StreamWriter appends rows into per-column buffers and flushes a Native
// block once it accumulates rowBudget rows, per spec.md §4.9. Each
// flushed block carries its own LowCardinality dictionaries: state is
// never carried across blocks, matching the server's HTTP FORMAT Native
// behavior for multi-block streams.
type StreamWriter struct {
	sink      io.Writer
	schema    Schema
	rowBudget int
	codec     wireio.Codec
	columns   []*ColumnBuilder
	dirty     bool
}

// NewStreamWriter creates a StreamWriter that flushes blocks of up to
// rowBudget rows to sink, compressed with codec (wireio.CodecNone to
// write uncompressed blocks with no frame at all).
func NewStreamWriter(sink io.Writer, schema Schema, rowBudget int, codec wireio.Codec) *StreamWriter {
	columns := make([]*ColumnBuilder, len(schema))
	for i, col := range schema {
		columns[i] = NewColumnBuilder(col.Name, col.Type)
	}
	return &StreamWriter{sink: sink, schema: schema, rowBudget: rowBudget, codec: codec, columns: columns}
}

// AppendRow applies setter's per-column values to the in-progress block.
// Every schema column must appear exactly once: a missing column fails
// with MissingColumn, an extra key fails with UnknownColumn. Application
// is atomic — if any value fails structural validation, no column
// advances, matching spec.md §4.9's "partial row application is atomic".
func (w *StreamWriter) AppendRow(setter map[string]chvalue.Value) error {
	for name := range setter {
		if w.schema.IndexOf(name) == -1 {
			return &UnknownColumn{Name: name}
		}
	}
	for _, col := range w.schema {
		if _, ok := setter[col.Name]; !ok {
			return &MissingColumn{Name: col.Name}
		}
	}
	for _, col := range w.schema {
		if err := chvalue.Validate(col.Type, setter[col.Name]); err != nil {
			return err
		}
	}
	for i, col := range w.schema {
		w.columns[i].values = append(w.columns[i].values, setter[col.Name])
	}
	w.dirty = true
	if w.columns[0].Len() >= w.rowBudget {
		return w.Flush()
	}
	return nil
}

// Flush encodes the in-progress block (if it has any rows), frames it
// per the writer's compression codec, writes it to the sink, and resets
// the column buffers for the next block. Flushing an empty in-progress
// block is a no-op, so callers can call Flush speculatively.
func (w *StreamWriter) Flush() error {
	if !w.dirty {
		return nil
	}
	block := Block{Columns: make([]Column, len(w.columns))}
	for i, col := range w.columns {
		block.Columns[i] = Column{Name: col.name, Type: col.typ, Values: col.values}
	}
	if err := EncodeCompressedBlock(w.sink, w.codec, block); err != nil {
		return err
	}
	for _, col := range w.columns {
		col.values = nil
	}
	w.dirty = false
	return nil
}

// Finish flushes any partial block — one with fewer than rowBudget rows
// is explicitly allowed here, per spec.md §4.9 — and returns the sink so
// callers can inspect or close it.
func (w *StreamWriter) Finish() (io.Writer, error) {
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return w.sink, nil
}
