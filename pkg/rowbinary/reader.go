package rowbinary

import (
	"errors"
	"io"
	"iter"

	"github.com/clickhouse-wire/chwire/internal/wireio"
	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
	"github.com/clickhouse-wire/chwire/pkg/containers"
)

// Row is one decoded RowBinary row, one Value per schema column in
// order.
type Row = []chvalue.Value

// rowIndexStride is the default spacing, in rows, between entries kept in
// a Reader's seek index: a dense index (stride 1) costs one entry per row
// but makes SeekToRow exact without replaying the stream; a sparse index
// trades index memory for replay work after the nearest indexed row.
const rowIndexStride = 128

// Reader streams rows out of an underlying io.Reader in one of the
// RowBinary formats. When the underlying reader also implements
// io.Seeker, Reader records row offsets as it reads so SeekToRow can jump
// back without replaying the whole stream; otherwise SeekToRow fails with
// ErrNotSeekable.
type Reader struct {
	inner         *wireio.Reader
	seeker        io.Seeker
	format        Format
	knownSchema   Schema
	schema        Schema
	headerRead    bool
	rowsRead      uint64
	index         []rowIndexEntry
	stride        int
	errNotSeeking bool
}

type rowIndexEntry struct {
	row    uint64
	offset int64
}

// ErrNotSeekable is returned by SeekToRow when the underlying reader does
// not support io.Seeker.
var ErrNotSeekable = errors.New("rowbinary: underlying reader is not seekable")

// NewReader creates a Reader. knownSchema may be nil for
// RowBinaryWithNamesAndTypes, which carries its own types; it is required
// for Plain and RowBinaryWithNames.
func NewReader(r io.Reader, format Format, knownSchema Schema) *Reader {
	reader := &Reader{
		inner:       wireio.NewReader(r),
		format:      format,
		knownSchema: knownSchema,
		stride:      rowIndexStride,
	}
	if seeker, ok := r.(io.Seeker); ok {
		reader.seeker = seeker
	}
	return reader
}

// SetIndexStride overrides the default spacing between recorded seek
// index entries. Must be called before the first row is read.
func (r *Reader) SetIndexStride(stride int) {
	if stride < 1 {
		stride = 1
	}
	r.stride = stride
}

func (r *Reader) readHeader() error {
	if r.headerRead {
		return nil
	}
	schema, err := ReadHeader(r.inner, r.format, r.knownSchema)
	if err != nil {
		return err
	}
	r.schema = schema
	r.headerRead = true
	return nil
}

// Schema returns the resolved column schema, reading the header first if
// needed.
func (r *Reader) Schema() (Schema, error) {
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r.schema, nil
}

// ReadRow reads the next row, returning (nil, nil) at clean end of
// stream. End of stream is detected the way reader.rs does: decoding the
// first column is allowed to return io.EOF at a value boundary, while
// io.EOF from any later column is a truncated-row error.
func (r *Reader) ReadRow() (Row, error) {
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	if len(r.schema) == 0 {
		return nil, nil
	}

	if r.seeker != nil && len(r.schema) > 0 && r.rowsRead%uint64(r.stride) == 0 {
		if offset, err := r.seeker.Seek(0, io.SeekCurrent); err == nil {
			r.index = append(r.index, rowIndexEntry{row: r.rowsRead, offset: offset})
		}
	}

	row := make(Row, len(r.schema))
	for i, col := range r.schema {
		var v chvalue.Value
		var err error
		if col.Type.Kind == chtype.KindNested {
			fields := make([]chtype.TypeDesc, len(col.Type.Fields))
			for j, f := range col.Type.Fields {
				fields[j] = *f.Type
			}
			items, nestedErr := DecodeNestedTransposed(r.inner, fields)
			err = nestedErr
			if err == nil {
				v = chvalue.Value{Kind: chvalue.KindArray, Items: items}
			}
		} else {
			v, err = DecodeValue(r.inner, col.Type)
		}
		if err != nil {
			if i == 0 && errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
		row[i] = v
	}
	r.rowsRead++
	return row, nil
}

// SeekToRow repositions the reader so the next ReadRow call returns row
// targetRow. It requires the underlying reader to implement io.Seeker and
// relies on the index entries recorded by prior ReadRow calls, replaying
// forward from the nearest indexed row at or before targetRow.
func (r *Reader) SeekToRow(targetRow uint64) error {
	if r.seeker == nil {
		return ErrNotSeekable
	}
	best := rowIndexEntry{row: 0, offset: 0}
	for _, entry := range r.index {
		if entry.row <= targetRow && entry.row >= best.row {
			best = entry
		}
	}
	if _, err := r.seeker.Seek(best.offset, io.SeekStart); err != nil {
		return err
	}
	r.rowsRead = best.row
	for r.rowsRead < targetRow {
		if _, err := r.ReadRow(); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns an iterator over decoded rows, in the teacher's
// iter.Seq[containers.Result[T]] idiom: iteration stops either when the
// consumer returns false from yield or when ReadRow reports an error.
func (r *Reader) Rows() iter.Seq[containers.Result[Row]] {
	return func(yield func(containers.Result[Row]) bool) {
		for {
			row, err := r.ReadRow()
			if err != nil {
				yield(containers.Err[Row](err))
				return
			}
			if row == nil {
				return
			}
			if !yield(containers.Ok(row)) {
				return
			}
		}
	}
}
