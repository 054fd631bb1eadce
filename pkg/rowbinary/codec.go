// Package rowbinary encodes and decodes the ClickHouse RowBinary family:
// plain RowBinary, RowBinaryWithNames, and RowBinaryWithNamesAndTypes.
package rowbinary

import (
	"fmt"
	"net"

	"github.com/clickhouse-wire/chwire/internal/wireio"
	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
)

// EncodeValue writes v to w according to t. Composite types recurse
// through the same dispatcher value_rw.rs calls write_value: a Nested
// field written this way is NOT transposed into parallel columns. Row
// writers that encode a top-level Nested column must instead call
// EncodeNestedTransposed directly, the way writer.rs routes Nested rows
// through write_nested_value rather than through the generic dispatcher.
func EncodeValue(w *wireio.Writer, t *chtype.TypeDesc, v chvalue.Value) error {
	switch t.Kind {
	case chtype.KindUInt8:
		return w.WriteUint8(v.U8)
	case chtype.KindBool:
		if v.Bool {
			return w.WriteUint8(1)
		}
		return w.WriteUint8(0)
	case chtype.KindUInt16:
		return w.WriteUint16(v.U16)
	case chtype.KindUInt32:
		return w.WriteUint32(v.U32)
	case chtype.KindUInt64:
		return w.WriteUint64(v.U64)
	case chtype.KindUInt128:
		return writeWide(w, v.Wide, 16)
	case chtype.KindUInt256:
		return writeWide(w, v.Wide, 32)
	case chtype.KindInt8:
		return w.WriteInt8(v.I8)
	case chtype.KindInt16:
		return w.WriteInt16(v.I16)
	case chtype.KindInt32:
		return w.WriteInt32(v.I32)
	case chtype.KindInt64:
		return w.WriteInt64(v.I64)
	case chtype.KindInt128:
		return writeWide(w, v.Wide, 16)
	case chtype.KindInt256:
		return writeWide(w, v.Wide, 32)
	case chtype.KindFloat32:
		return w.WriteFloat32(v.F32)
	case chtype.KindFloat64:
		return w.WriteFloat64(v.F64)
	case chtype.KindString:
		return w.WriteBytes(v.Str)
	case chtype.KindFixedString:
		if len(v.Str) != t.FixedLength {
			return &wireio.EncodingError{Reason: fmt.Sprintf("FixedString length mismatch: type wants %d, value has %d", t.FixedLength, len(v.Str))}
		}
		_, err := w.Write(v.Str)
		return err
	case chtype.KindDate:
		return w.WriteUint16(v.U16)
	case chtype.KindDate32:
		return w.WriteInt32(v.I32)
	case chtype.KindDateTime:
		return w.WriteUint32(v.U32)
	case chtype.KindDateTime64:
		return w.WriteInt64(v.I64)
	case chtype.KindUUID:
		return writeUUID(w, v)
	case chtype.KindIPv4:
		return writeIPv4(w, v.IPv4)
	case chtype.KindIPv6:
		return writeIPv6(w, v.IPv6)
	case chtype.KindDecimal:
		return writeDecimal(w, t, v)
	case chtype.KindEnum8:
		code, err := enumCode(t, v)
		if err != nil {
			return err
		}
		return w.WriteInt8(int8(code))
	case chtype.KindEnum16:
		code, err := enumCode(t, v)
		if err != nil {
			return err
		}
		return w.WriteInt16(code)
	case chtype.KindNullable:
		if v.Kind == chvalue.KindNull || v.Inner == nil {
			return w.WriteUint8(1)
		}
		if err := w.WriteUint8(0); err != nil {
			return err
		}
		return EncodeValue(w, t.Elem, *v.Inner)
	case chtype.KindLowCardinality:
		return EncodeValue(w, t.Elem, v)
	case chtype.KindArray:
		if err := w.WriteUvarint(uint64(len(v.Items))); err != nil {
			return err
		}
		for _, item := range v.Items {
			if err := EncodeValue(w, t.Elem, item); err != nil {
				return err
			}
		}
		return nil
	case chtype.KindMap:
		if err := w.WriteUvarint(uint64(len(v.Pairs))); err != nil {
			return err
		}
		for _, entry := range v.Pairs {
			if err := EncodeValue(w, t.Key, entry.Key); err != nil {
				return err
			}
			if err := EncodeValue(w, t.Value, entry.Value); err != nil {
				return err
			}
		}
		return nil
	case chtype.KindTuple:
		return encodeTupleFields(w, t.Fields, v.Items)
	case chtype.KindNested:
		// Unlike writer.rs's row-level dispatch, the generic path here
		// mirrors value_rw.rs's write_value and treats Nested exactly like
		// Array(Tuple(...)) with no column transposition.
		if err := w.WriteUvarint(uint64(len(v.Items))); err != nil {
			return err
		}
		for _, row := range v.Items {
			if err := encodeTupleFields(w, t.Fields, row.Items); err != nil {
				return err
			}
		}
		return nil
	case chtype.KindVariant:
		return encodeVariant(w, t, v)
	case chtype.KindDynamic:
		return encodeDynamic(w, v)
	default:
		return &wireio.EncodingError{Reason: fmt.Sprintf("encoding not supported for type %s", t.String())}
	}
}

// encodeDynamic writes a Dynamic value as a LEB128-prefixed ClickHouse
// type string followed by the value encoded against that type, or the
// "Nothing" type marker for DynamicNull. This is the per-value binary
// type encoding prefix spec.md §3.1 and §4.4 describe; it reuses the
// textual type grammar rather than the server's alternate packed binary
// encoding, per §6.3.
func encodeDynamic(w *wireio.Writer, v chvalue.Value) error {
	if v.Kind == chvalue.KindDynamicNull {
		return w.WriteString("Nothing")
	}
	if v.Inner == nil || v.DynamicType == nil {
		return &wireio.EncodingError{Reason: "Dynamic value missing inner type/value"}
	}
	if err := w.WriteString(v.DynamicType.String()); err != nil {
		return err
	}
	return EncodeValue(w, v.DynamicType, *v.Inner)
}

func encodeTupleFields(w *wireio.Writer, fields []chtype.TupleField, values []chvalue.Value) error {
	if len(fields) != len(values) {
		return &wireio.EncodingError{Reason: fmt.Sprintf("tuple length mismatch: type has %d fields, value has %d", len(fields), len(values))}
	}
	for i, field := range fields {
		if err := EncodeValue(w, field.Type, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// EncodeNestedTransposed writes a Nested column's row-major
// Array(Tuple(...)) value as n parallel arrays, one per field, exactly as
// writer.rs's write_nested_value does: transposition happens only when a
// Nested type sits directly at the top of a row's schema, never when it
// is reached through the generic dispatcher (e.g. nested inside a Tuple).
func EncodeNestedTransposed(w *wireio.Writer, fields []chtype.TupleField, v chvalue.Value) error {
	if len(fields) == 0 {
		return &wireio.EncodingError{Reason: "Nested expects at least one field"}
	}
	rows := v.Items
	columns := make([][]chvalue.Value, len(fields))
	for i := range columns {
		columns[i] = make([]chvalue.Value, 0, len(rows))
	}
	for _, row := range rows {
		if len(row.Items) != len(fields) {
			return &wireio.EncodingError{Reason: "Nested tuple length mismatch"}
		}
		for i, item := range row.Items {
			columns[i] = append(columns[i], item)
		}
	}
	for i, field := range fields {
		arrayType := &chtype.TypeDesc{Kind: chtype.KindArray, Elem: field.Type}
		arrayValue := chvalue.Value{Kind: chvalue.KindArray, Items: columns[i]}
		if err := EncodeValue(w, arrayType, arrayValue); err != nil {
			return err
		}
	}
	return nil
}

func enumCode(t *chtype.TypeDesc, v chvalue.Value) (int16, error) {
	for _, variant := range t.EnumVariants {
		if variant.Name == v.EnumName {
			return variant.Value, nil
		}
	}
	return 0, &wireio.EncodingError{Reason: fmt.Sprintf("unknown Enum variant %q for type %s", v.EnumName, t.String())}
}

func writeWide(w *wireio.Writer, data []byte, width int) error {
	if len(data) != width {
		return &wireio.EncodingError{Reason: fmt.Sprintf("expected %d raw bytes, got %d", width, len(data))}
	}
	_, err := w.Write(data)
	return err
}

func writeDecimal(w *wireio.Writer, t *chtype.TypeDesc, v chvalue.Value) error {
	switch t.DecimalWidth {
	case chtype.Decimal32Bits:
		return w.WriteInt32(v.I32)
	case chtype.Decimal64Bits:
		return w.WriteInt64(v.I64)
	case chtype.Decimal128Bits:
		return writeWide(w, v.Wide, 16)
	case chtype.Decimal256Bits:
		return writeWide(w, v.Wide, 32)
	default:
		return &wireio.EncodingError{Reason: fmt.Sprintf("unknown Decimal width %d", t.DecimalWidth)}
	}
}

// writeUUID writes v's UUID with each 64-bit half byte-swapped, the
// layout ClickHouse's server uses for its UUID column type (it is not the
// RFC 4122 byte order).
func writeUUID(w *wireio.Writer, v chvalue.Value) error {
	raw := v.UUID
	var swapped [16]byte
	for i := 0; i < 8; i++ {
		swapped[i] = raw[7-i]
	}
	for i := 0; i < 8; i++ {
		swapped[8+i] = raw[15-i]
	}
	_, err := w.Write(swapped[:])
	return err
}

func writeIPv4(w *wireio.Writer, ip net.IP) error {
	v4 := ip.To4()
	if v4 == nil {
		return &wireio.EncodingError{Reason: "IPv4 value is not a valid IPv4 address"}
	}
	return w.WriteUint32(uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]))
}

func writeIPv6(w *wireio.Writer, ip net.IP) error {
	v6 := ip.To16()
	if v6 == nil {
		return &wireio.EncodingError{Reason: "IPv6 value is not a valid IPv6 address"}
	}
	_, err := w.Write(v6)
	return err
}

func encodeVariant(w *wireio.Writer, t *chtype.TypeDesc, v chvalue.Value) error {
	if v.VariantIndex < 0 || v.VariantIndex >= len(t.Variants) {
		return &wireio.EncodingError{Reason: fmt.Sprintf("Variant index %d out of range", v.VariantIndex)}
	}
	if err := w.WriteUint8(uint8(v.VariantIndex)); err != nil {
		return err
	}
	if v.Inner == nil {
		return &wireio.EncodingError{Reason: "Variant value missing inner value"}
	}
	return EncodeValue(w, t.Variants[v.VariantIndex], *v.Inner)
}
