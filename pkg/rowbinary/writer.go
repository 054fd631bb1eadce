package rowbinary

import (
	"fmt"
	"io"

	"github.com/clickhouse-wire/chwire/internal/wireio"
	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
)

// Writer streams rows into an underlying io.Writer in one of the
// RowBinary formats, writing the header lazily before the first row.
type Writer struct {
	inner         *wireio.Writer
	sink          io.Writer
	format        Format
	schema        Schema
	headerWritten bool
}

// NewWriter creates a Writer for the given format and schema.
func NewWriter(w io.Writer, format Format, schema Schema) *Writer {
	return &Writer{inner: wireio.NewWriter(w), sink: w, format: format, schema: schema}
}

// TakeInner returns the Writer's current underlying io.Writer without
// closing or flushing anything extra, and forgets that the header was
// written. Paired with Reset, this is the explicit recycle-the-buffer
// idiom spec.md §9 asks for instead of relying on a destructor to flush:
// a caller that wants to swap sinks mid-stream gets back exactly what it
// handed in, with no hidden side effect.
func (w *Writer) TakeInner() io.Writer {
	sink := w.sink
	w.sink = nil
	w.inner = nil
	return sink
}

// WriteHeader writes the header RowBinaryWithNames(AndTypes) requires. It
// is a no-op after the first call or for plain RowBinary.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if err := WriteHeader(w.inner, w.format, w.schema); err != nil {
		return err
	}
	w.headerWritten = true
	return nil
}

// WriteRow writes one row, matching row[i] against w.schema[i].Type. A
// Nested column is routed through EncodeNestedTransposed exactly as
// writer.rs's write_row special-cases TypeDesc::Nested, rather than
// through the generic EncodeValue dispatcher.
func (w *Writer) WriteRow(row []chvalue.Value) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if len(row) != len(w.schema) {
		return newRowCountMismatch(fmt.Sprintf("row has %d values, schema has %d columns", len(row), len(w.schema)))
	}
	for i, col := range w.schema {
		if col.Type.Kind == chtype.KindNested {
			if err := EncodeNestedTransposed(w.inner, col.Type.Fields, row[i]); err != nil {
				return err
			}
			continue
		}
		if err := EncodeValue(w.inner, col.Type, row[i]); err != nil {
			return err
		}
	}
	return nil
}

// WriteRows writes each row in turn, stopping at the first error.
func (w *Writer) WriteRows(rows [][]chvalue.Value) error {
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Reset replaces the underlying io.Writer and forgets that the header was
// written, so the next WriteRow call re-emits it against the new
// destination. This is the idiom headerless parallel-chunk encoding
// relies on: one goroutine per thread writes a run of rows into its own
// buffer via Reset, and only the aggregator's stream carries a header.
func (w *Writer) Reset(inner io.Writer) {
	w.inner = wireio.NewWriter(inner)
	w.sink = inner
	w.headerWritten = false
}
