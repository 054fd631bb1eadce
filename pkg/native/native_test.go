package native_test

import (
	"bytes"
	"testing"

	"github.com/clickhouse-wire/chwire/internal/wireio"
	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
	"github.com/clickhouse-wire/chwire/pkg/native"
)

func parseType(t *testing.T, s string) *chtype.TypeDesc {
	ty, err := chtype.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", s, err)
	}
	return ty
}

func TestBlockRoundTrip(t *testing.T) {
	block := native.Block{
		Columns: []native.Column{
			{
				Name: "id",
				Type: parseType(t, "UInt32"),
				Values: []chvalue.Value{
					{Kind: chvalue.KindUInt32, U32: 1},
					{Kind: chvalue.KindUInt32, U32: 2},
				},
			},
			{
				Name: "name",
				Type: parseType(t, "String"),
				Values: []chvalue.Value{
					{Kind: chvalue.KindString, Str: []byte("alpha")},
					{Kind: chvalue.KindString, Str: []byte("beta")},
				},
			},
			{
				Name: "score",
				Type: parseType(t, "Nullable(Float64)"),
				Values: []chvalue.Value{
					chvalue.NullableOf(chvalue.Value{Kind: chvalue.KindFloat64, F64: 1.5}),
					chvalue.Null(),
				},
			},
			{
				Name: "tags",
				Type: parseType(t, "Array(String)"),
				Values: []chvalue.Value{
					{Kind: chvalue.KindArray, Items: []chvalue.Value{
						{Kind: chvalue.KindString, Str: []byte("a")},
						{Kind: chvalue.KindString, Str: []byte("b")},
					}},
					{Kind: chvalue.KindArray, Items: nil},
				},
			},
		},
	}

	buf := &bytes.Buffer{}
	w := wireio.NewWriter(buf)
	if err := native.EncodeBlock(w, block); err != nil {
		t.Fatalf("EncodeBlock failed: %v", err)
	}

	r := wireio.NewReader(buf)
	got, err := native.DecodeBlock(r)
	if err != nil {
		t.Fatalf("DecodeBlock failed: %v", err)
	}

	if got.NumRows() != 2 || len(got.Columns) != 4 {
		t.Fatalf("got %d rows, %d columns; want 2, 4", got.NumRows(), len(got.Columns))
	}
	if string(got.Columns[1].Values[0].Str) != "alpha" {
		t.Errorf("name[0] = %q, want %q", got.Columns[1].Values[0].Str, "alpha")
	}
	if got.Columns[2].Values[1].Kind != chvalue.KindNull {
		t.Errorf("score[1] should be null, got %+v", got.Columns[2].Values[1])
	}
	if len(got.Columns[3].Values[0].Items) != 2 {
		t.Errorf("tags[0] should have 2 items, got %d", len(got.Columns[3].Values[0].Items))
	}
}

func TestLowCardinalityWidthUpgrade(t *testing.T) {
	colType := parseType(t, "LowCardinality(String)")

	values := []chvalue.Value{
		{Kind: chvalue.KindString, Str: []byte("us")},
		{Kind: chvalue.KindString, Str: []byte("uk")},
		{Kind: chvalue.KindString, Str: []byte("us")},
		{Kind: chvalue.KindString, Str: []byte("us")},
	}

	buf := &bytes.Buffer{}
	w := wireio.NewWriter(buf)
	if err := native.EncodeLowCardinalityColumn(w, colType, values); err != nil {
		t.Fatalf("EncodeLowCardinalityColumn failed: %v", err)
	}

	r := wireio.NewReader(buf)
	got, err := native.DecodeLowCardinalityColumn(r, colType, len(values))
	if err != nil {
		t.Fatalf("DecodeLowCardinalityColumn failed: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d values, want 4", len(got))
	}
	for i, want := range []string{"us", "uk", "us", "us"} {
		if string(got[i].Str) != want {
			t.Errorf("value[%d] = %q, want %q", i, got[i].Str, want)
		}
	}
}

func TestLowCardinalityNullableDefaultSlot(t *testing.T) {
	colType := parseType(t, "LowCardinality(Nullable(String))")
	values := []chvalue.Value{
		chvalue.Null(),
		chvalue.NullableOf(chvalue.Value{Kind: chvalue.KindString, Str: []byte("x")}),
		chvalue.Null(),
	}

	buf := &bytes.Buffer{}
	w := wireio.NewWriter(buf)
	if err := native.EncodeLowCardinalityColumn(w, colType, values); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	r := wireio.NewReader(buf)
	got, err := native.DecodeLowCardinalityColumn(r, colType, len(values))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got[0].Kind != chvalue.KindNull || got[2].Kind != chvalue.KindNull {
		t.Errorf("expected null slots to round-trip as null, got %+v / %+v", got[0], got[2])
	}
	if got[1].Inner == nil || string(got[1].Inner.Str) != "x" {
		t.Errorf("expected present value 'x', got %+v", got[1])
	}
}

func TestNestedColumnExpansion(t *testing.T) {
	block := native.Block{
		Columns: []native.Column{
			{
				Name: "events",
				Type: parseType(t, "Nested(name String, count UInt8)"),
				Values: []chvalue.Value{
					{Kind: chvalue.KindArray, Items: []chvalue.Value{
						{Kind: chvalue.KindTuple, Items: []chvalue.Value{
							{Kind: chvalue.KindString, Str: []byte("click")},
							{Kind: chvalue.KindUInt8, U8: 3},
						}},
						{Kind: chvalue.KindTuple, Items: []chvalue.Value{
							{Kind: chvalue.KindString, Str: []byte("view")},
							{Kind: chvalue.KindUInt8, U8: 7},
						}},
					}},
				},
			},
		},
	}

	buf := &bytes.Buffer{}
	w := wireio.NewWriter(buf)
	if err := native.EncodeBlock(w, block); err != nil {
		t.Fatalf("EncodeBlock failed: %v", err)
	}

	r := wireio.NewReader(buf)
	got, err := native.DecodeBlock(r)
	if err != nil {
		t.Fatalf("DecodeBlock failed: %v", err)
	}
	if len(got.Columns) != 1 || got.Columns[0].Type.Kind != chtype.KindNested {
		t.Fatalf("expected a collapsed Nested column, got %+v", got.Columns)
	}
	nested := got.Columns[0].Values[0]
	if len(nested.Items) != 2 || string(nested.Items[0].Items[0].Str) != "click" {
		t.Fatalf("nested row mismatch: %+v", nested)
	}
}

func TestEncodeCompressedBlockRoundTrip(t *testing.T) {
	block := native.Block{
		Columns: []native.Column{
			{
				Name: "n",
				Type: parseType(t, "UInt64"),
				Values: []chvalue.Value{
					{Kind: chvalue.KindUInt64, U64: 1},
					{Kind: chvalue.KindUInt64, U64: 2},
					{Kind: chvalue.KindUInt64, U64: 3},
				},
			},
		},
	}

	for _, codec := range []wireio.Codec{wireio.CodecNone, wireio.CodecLZ4, wireio.CodecZSTD} {
		buf := &bytes.Buffer{}
		if err := native.EncodeCompressedBlock(buf, codec, block); err != nil {
			t.Fatalf("codec 0x%02x: EncodeCompressedBlock failed: %v", codec, err)
		}
		got, err := native.DecodeCompressedBlock(buf)
		if err != nil {
			t.Fatalf("codec 0x%02x: DecodeCompressedBlock failed: %v", codec, err)
		}
		if got.NumRows() != 3 || got.Columns[0].Values[2].U64 != 3 {
			t.Fatalf("codec 0x%02x: round trip mismatch: %+v", codec, got)
		}
	}
}

func TestBuilderRowCountMismatch(t *testing.T) {
	a := native.NewColumnBuilder("a", parseType(t, "UInt8"))
	b := native.NewColumnBuilder("b", parseType(t, "UInt8"))
	if err := a.Extend([]chvalue.Value{{Kind: chvalue.KindUInt8, U8: 1}, {Kind: chvalue.KindUInt8, U8: 2}}); err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if err := b.Push(chvalue.Value{Kind: chvalue.KindUInt8, U8: 1}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	_, err := native.NewBuilder().AddColumn(a).AddColumn(b).Build()
	if _, ok := err.(*native.RowCountMismatch); !ok {
		t.Fatalf("expected *native.RowCountMismatch, got %v", err)
	}
}

func TestBuilderDuplicateColumnName(t *testing.T) {
	a := native.NewColumnBuilder("x", parseType(t, "UInt8"))
	b := native.NewColumnBuilder("x", parseType(t, "UInt8"))
	_ = a.Push(chvalue.Value{Kind: chvalue.KindUInt8, U8: 1})
	_ = b.Push(chvalue.Value{Kind: chvalue.KindUInt8, U8: 2})

	_, err := native.NewBuilder().AddColumn(a).AddColumn(b).Build()
	if _, ok := err.(*native.DuplicateColumn); !ok {
		t.Fatalf("expected *native.DuplicateColumn, got %v", err)
	}
}

func TestStreamWriterFlushesOnRowBudget(t *testing.T) {
	schema := native.Schema{{Name: "n", Type: parseType(t, "UInt32")}}
	buf := &bytes.Buffer{}
	w := native.NewStreamWriter(buf, schema, 2, wireio.CodecNone)

	for i := uint32(1); i <= 5; i++ {
		if err := w.AppendRow(map[string]chvalue.Value{"n": {Kind: chvalue.KindUInt32, U32: i}}); err != nil {
			t.Fatalf("AppendRow(%d) failed: %v", i, err)
		}
	}
	if _, err := w.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	var blockSizes []int
	var total int
	var values []uint32
	for buf.Len() > 0 {
		block, err := native.DecodeCompressedBlock(buf)
		if err != nil {
			t.Fatalf("DecodeCompressedBlock failed: %v", err)
		}
		blockSizes = append(blockSizes, block.NumRows())
		total += block.NumRows()
		for _, v := range block.Columns[0].Values {
			values = append(values, v.U32)
		}
	}
	if total != 5 {
		t.Fatalf("got %d total rows across blocks, want 5 (block sizes: %v)", total, blockSizes)
	}
	if len(values) != 5 || values[4] != 5 {
		t.Fatalf("got values %v, want [1 2 3 4 5]", values)
	}
}

func TestStreamWriterMissingAndUnknownColumn(t *testing.T) {
	schema := native.Schema{{Name: "n", Type: parseType(t, "UInt8")}}
	w := native.NewStreamWriter(&bytes.Buffer{}, schema, 10, wireio.CodecNone)

	if err := w.AppendRow(map[string]chvalue.Value{}); err == nil {
		t.Fatal("expected MissingColumn error")
	} else if _, ok := err.(*native.MissingColumn); !ok {
		t.Fatalf("expected *native.MissingColumn, got %v", err)
	}

	if err := w.AppendRow(map[string]chvalue.Value{"n": {Kind: chvalue.KindUInt8, U8: 1}, "extra": {Kind: chvalue.KindUInt8, U8: 1}}); err == nil {
		t.Fatal("expected UnknownColumn error")
	} else if _, ok := err.(*native.UnknownColumn); !ok {
		t.Fatalf("expected *native.UnknownColumn, got %v", err)
	}
}

func TestAppendJSON(t *testing.T) {
	schema := native.Schema{
		{Name: "id", Type: parseType(t, "UInt32")},
		{Name: "name", Type: parseType(t, "String")},
		{Name: "price", Type: parseType(t, "Decimal(9, 2)")},
		{Name: "tags", Type: parseType(t, "Array(String)")},
	}
	buf := &bytes.Buffer{}
	w := native.NewStreamWriter(buf, schema, 10, wireio.CodecNone)

	row := map[string]any{
		"id":    float64(1),
		"name":  "widget",
		"price": "12.34",
		"tags":  []any{"a", "b"},
	}
	if err := w.AppendJSON(row); err != nil {
		t.Fatalf("AppendJSON failed: %v", err)
	}
	if _, err := w.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	block, err := native.DecodeCompressedBlock(buf)
	if err != nil {
		t.Fatalf("DecodeCompressedBlock failed: %v", err)
	}
	if block.NumRows() != 1 {
		t.Fatalf("got %d rows, want 1", block.NumRows())
	}
	if block.Columns[2].Values[0].I32 != 1234 {
		t.Errorf("price magnitude = %d, want 1234", block.Columns[2].Values[0].I32)
	}
}
