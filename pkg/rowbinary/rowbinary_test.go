package rowbinary_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
	"github.com/clickhouse-wire/chwire/pkg/rowbinary"
)

func parseType(t *testing.T, s string) *chtype.TypeDesc {
	ty, err := chtype.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", s, err)
	}
	return ty
}

func TestWriter_Reader_RoundTrip(t *testing.T) {
	schema := rowbinary.Schema{
		{Name: "id", Type: parseType(t, "UInt32")},
		{Name: "name", Type: parseType(t, "String")},
		{Name: "tags", Type: parseType(t, "Array(String)")},
		{Name: "score", Type: parseType(t, "Nullable(Float64)")},
	}

	rows := [][]chvalue.Value{
		{
			{Kind: chvalue.KindUInt32, U32: 1},
			{Kind: chvalue.KindString, Str: []byte("alice")},
			{Kind: chvalue.KindArray, Items: []chvalue.Value{
				{Kind: chvalue.KindString, Str: []byte("a")},
				{Kind: chvalue.KindString, Str: []byte("b")},
			}},
			chvalue.NullableOf(chvalue.Value{Kind: chvalue.KindFloat64, F64: 3.5}),
		},
		{
			{Kind: chvalue.KindUInt32, U32: 2},
			{Kind: chvalue.KindString, Str: []byte("bob")},
			{Kind: chvalue.KindArray, Items: nil},
			chvalue.Null(),
		},
	}

	for _, format := range []rowbinary.Format{rowbinary.Plain, rowbinary.WithNames, rowbinary.WithNamesAndTypes} {
		buf := &bytes.Buffer{}
		w := rowbinary.NewWriter(buf, format, schema)
		if err := w.WriteRows(rows); err != nil {
			t.Fatalf("format %d: WriteRows failed: %v", format, err)
		}

		r := rowbinary.NewReader(buf, format, schema)
		var got [][]chvalue.Value
		for {
			row, err := r.ReadRow()
			if err != nil {
				t.Fatalf("format %d: ReadRow failed: %v", format, err)
			}
			if row == nil {
				break
			}
			got = append(got, row)
		}

		if len(got) != len(rows) {
			t.Fatalf("format %d: got %d rows, want %d", format, len(got), len(rows))
		}
		if got[0][1].Kind != chvalue.KindString || string(got[0][1].Str) != "alice" {
			t.Errorf("format %d: row 0 name mismatch: %+v", format, got[0][1])
		}
		if got[1][3].Kind != chvalue.KindNull {
			t.Errorf("format %d: row 1 score should be null, got %+v", format, got[1][3])
		}
	}
}

func TestNestedColumnTransposition(t *testing.T) {
	schema := rowbinary.Schema{
		{Name: "events", Type: parseType(t, "Nested(name String, count UInt32)")},
	}

	row := []chvalue.Value{
		{Kind: chvalue.KindArray, Items: []chvalue.Value{
			{Kind: chvalue.KindTuple, Items: []chvalue.Value{
				{Kind: chvalue.KindString, Str: []byte("click")},
				{Kind: chvalue.KindUInt32, U32: 3},
			}},
			{Kind: chvalue.KindTuple, Items: []chvalue.Value{
				{Kind: chvalue.KindString, Str: []byte("view")},
				{Kind: chvalue.KindUInt32, U32: 7},
			}},
		}},
	}

	buf := &bytes.Buffer{}
	w := rowbinary.NewWriter(buf, rowbinary.Plain, schema)
	if err := w.WriteRow(row); err != nil {
		t.Fatalf("WriteRow failed: %v", err)
	}

	r := rowbinary.NewReader(buf, rowbinary.Plain, schema)
	got, err := r.ReadRow()
	if err != nil {
		t.Fatalf("ReadRow failed: %v", err)
	}
	if len(got[0].Items) != 2 {
		t.Fatalf("expected 2 nested rows, got %d", len(got[0].Items))
	}
	first := got[0].Items[0]
	if string(first.Items[0].Str) != "click" || first.Items[1].U32 != 3 {
		t.Errorf("nested row 0 mismatch: %+v", first)
	}
}

func TestNestedHeaderExpandsToDottedColumns(t *testing.T) {
	schema := rowbinary.Schema{
		{Name: "id", Type: parseType(t, "UInt8")},
		{Name: "events", Type: parseType(t, "Nested(name String, count UInt32)")},
	}
	row := []chvalue.Value{
		{Kind: chvalue.KindUInt8, U8: 1},
		{Kind: chvalue.KindArray, Items: []chvalue.Value{
			{Kind: chvalue.KindTuple, Items: []chvalue.Value{
				{Kind: chvalue.KindString, Str: []byte("click")},
				{Kind: chvalue.KindUInt32, U32: 3},
			}},
		}},
	}

	buf := &bytes.Buffer{}
	w := rowbinary.NewWriter(buf, rowbinary.WithNamesAndTypes, schema)
	if err := w.WriteRow(row); err != nil {
		t.Fatalf("WriteRow failed: %v", err)
	}

	r := rowbinary.NewReader(buf, rowbinary.WithNamesAndTypes, nil)
	resolved, err := r.Schema()
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	if len(resolved) != 2 || resolved[1].Name != "events" || resolved[1].Type.Kind != chtype.KindNested {
		t.Fatalf("expected collapsed Nested column, got %+v", resolved)
	}

	got, err := r.ReadRow()
	if err != nil {
		t.Fatalf("ReadRow failed: %v", err)
	}
	if len(got[1].Items) != 1 || string(got[1].Items[0].Items[0].Str) != "click" {
		t.Fatalf("nested row mismatch: %+v", got[1])
	}
}

func TestMergeParallel(t *testing.T) {
	schema := rowbinary.Schema{{Name: "n", Type: parseType(t, "UInt32")}}
	chunks := [][]chvalue.Value{
		{{Kind: chvalue.KindUInt32, U32: 1}},
		{{Kind: chvalue.KindUInt32, U32: 2}},
		{{Kind: chvalue.KindUInt32, U32: 3}},
	}

	producers := make([]func(w *rowbinary.Writer) error, len(chunks))
	for i, chunk := range chunks {
		chunk := chunk
		producers[i] = func(w *rowbinary.Writer) error {
			return w.WriteRows(chunk)
		}
	}

	out, err := rowbinary.MergeParallel(context.Background(), schema, producers...)
	if err != nil {
		t.Fatalf("MergeParallel failed: %v", err)
	}

	r := rowbinary.NewReader(out, rowbinary.WithNamesAndTypes, nil)
	var values []uint32
	for {
		row, err := r.ReadRow()
		if err != nil {
			t.Fatalf("ReadRow failed: %v", err)
		}
		if row == nil {
			break
		}
		values = append(values, row[0].U32)
	}
	if len(values) != 3 {
		t.Fatalf("got %d rows, want 3", len(values))
	}
}
