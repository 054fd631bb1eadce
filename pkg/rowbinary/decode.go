package rowbinary

import (
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/clickhouse-wire/chwire/internal/wireio"
	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
)

// DecodeValue reads one value of type t from r. It is the mirror of
// EncodeValue: a Nested field decoded here stays in Array(Tuple(...))
// row-major form and is not un-transposed, matching value_rw.rs's
// read_value_optional.
func DecodeValue(r *wireio.Reader, t *chtype.TypeDesc) (chvalue.Value, error) {
	switch t.Kind {
	case chtype.KindUInt8:
		v, err := r.ReadUint8()
		return chvalue.Value{Kind: chvalue.KindUInt8, U8: v}, err
	case chtype.KindBool:
		v, err := r.ReadUint8()
		if err != nil {
			return chvalue.Value{}, err
		}
		if v > 1 {
			return chvalue.Value{}, &wireio.DecodingError{Reason: fmt.Sprintf("invalid Bool value %d", v)}
		}
		return chvalue.Value{Kind: chvalue.KindBool, Bool: v == 1}, nil
	case chtype.KindUInt16:
		v, err := r.ReadUint16()
		return chvalue.Value{Kind: chvalue.KindUInt16, U16: v}, err
	case chtype.KindUInt32:
		v, err := r.ReadUint32()
		return chvalue.Value{Kind: chvalue.KindUInt32, U32: v}, err
	case chtype.KindUInt64:
		v, err := r.ReadUint64()
		return chvalue.Value{Kind: chvalue.KindUInt64, U64: v}, err
	case chtype.KindUInt128:
		data, err := readWide(r, 16)
		return chvalue.Value{Kind: chvalue.KindUInt128, Wide: data}, err
	case chtype.KindUInt256:
		data, err := readWide(r, 32)
		return chvalue.Value{Kind: chvalue.KindUInt256, Wide: data}, err
	case chtype.KindInt8:
		v, err := r.ReadInt8()
		return chvalue.Value{Kind: chvalue.KindInt8, I8: v}, err
	case chtype.KindInt16:
		v, err := r.ReadInt16()
		return chvalue.Value{Kind: chvalue.KindInt16, I16: v}, err
	case chtype.KindInt32:
		v, err := r.ReadInt32()
		return chvalue.Value{Kind: chvalue.KindInt32, I32: v}, err
	case chtype.KindInt64:
		v, err := r.ReadInt64()
		return chvalue.Value{Kind: chvalue.KindInt64, I64: v}, err
	case chtype.KindInt128:
		data, err := readWide(r, 16)
		return chvalue.Value{Kind: chvalue.KindInt128, Wide: data}, err
	case chtype.KindInt256:
		data, err := readWide(r, 32)
		return chvalue.Value{Kind: chvalue.KindInt256, Wide: data}, err
	case chtype.KindFloat32:
		v, err := r.ReadFloat32()
		return chvalue.Value{Kind: chvalue.KindFloat32, F32: v}, err
	case chtype.KindFloat64:
		v, err := r.ReadFloat64()
		return chvalue.Value{Kind: chvalue.KindFloat64, F64: v}, err
	case chtype.KindString:
		data, err := r.ReadBytes()
		return chvalue.Value{Kind: chvalue.KindString, Str: data}, err
	case chtype.KindFixedString:
		data, err := readWide(r, t.FixedLength)
		return chvalue.Value{Kind: chvalue.KindFixedString, Str: data}, err
	case chtype.KindDate:
		v, err := r.ReadUint16()
		return chvalue.Value{Kind: chvalue.KindDate, U16: v}, err
	case chtype.KindDate32:
		v, err := r.ReadInt32()
		return chvalue.Value{Kind: chvalue.KindDate32, I32: v}, err
	case chtype.KindDateTime:
		v, err := r.ReadUint32()
		return chvalue.Value{Kind: chvalue.KindDateTime, U32: v}, err
	case chtype.KindDateTime64:
		v, err := r.ReadInt64()
		return chvalue.Value{Kind: chvalue.KindDateTime64, I64: v}, err
	case chtype.KindUUID:
		return readUUID(r)
	case chtype.KindIPv4:
		return readIPv4(r)
	case chtype.KindIPv6:
		return readIPv6(r)
	case chtype.KindDecimal:
		return readDecimal(r, t)
	case chtype.KindEnum8:
		v, err := r.ReadInt8()
		if err != nil {
			return chvalue.Value{}, err
		}
		return decodeEnumValue(t, int16(v))
	case chtype.KindEnum16:
		v, err := r.ReadInt16()
		if err != nil {
			return chvalue.Value{}, err
		}
		return decodeEnumValue(t, v)
	case chtype.KindNullable:
		flag, err := r.ReadUint8()
		if err != nil {
			return chvalue.Value{}, err
		}
		if flag > 1 {
			return chvalue.Value{}, &wireio.DecodingError{Reason: fmt.Sprintf("invalid Nullable flag %d", flag)}
		}
		if flag == 1 {
			return chvalue.Null(), nil
		}
		inner, err := DecodeValue(r, t.Elem)
		if err != nil {
			return chvalue.Value{}, err
		}
		return chvalue.NullableOf(inner), nil
	case chtype.KindLowCardinality:
		return DecodeValue(r, t.Elem)
	case chtype.KindArray:
		n, err := r.ReadUvarint()
		if err != nil {
			return chvalue.Value{}, err
		}
		items := make([]chvalue.Value, 0, n)
		for i := uint64(0); i < n; i++ {
			item, err := DecodeValue(r, t.Elem)
			if err != nil {
				return chvalue.Value{}, err
			}
			items = append(items, item)
		}
		return chvalue.Value{Kind: chvalue.KindArray, Items: items}, nil
	case chtype.KindMap:
		n, err := r.ReadUvarint()
		if err != nil {
			return chvalue.Value{}, err
		}
		pairs := make([]chvalue.MapEntry, 0, n)
		for i := uint64(0); i < n; i++ {
			key, err := DecodeValue(r, t.Key)
			if err != nil {
				return chvalue.Value{}, err
			}
			value, err := DecodeValue(r, t.Value)
			if err != nil {
				return chvalue.Value{}, err
			}
			pairs = append(pairs, chvalue.MapEntry{Key: key, Value: value})
		}
		return chvalue.Value{Kind: chvalue.KindMap, Pairs: pairs}, nil
	case chtype.KindTuple:
		items, err := decodeTupleFields(r, t.Fields)
		if err != nil {
			return chvalue.Value{}, err
		}
		return chvalue.Value{Kind: chvalue.KindTuple, Items: items}, nil
	case chtype.KindNested:
		n, err := r.ReadUvarint()
		if err != nil {
			return chvalue.Value{}, err
		}
		rows := make([]chvalue.Value, 0, n)
		for i := uint64(0); i < n; i++ {
			items, err := decodeTupleFields(r, t.Fields)
			if err != nil {
				return chvalue.Value{}, err
			}
			rows = append(rows, chvalue.Value{Kind: chvalue.KindTuple, Items: items})
		}
		return chvalue.Value{Kind: chvalue.KindArray, Items: rows}, nil
	case chtype.KindVariant:
		return decodeVariant(r, t)
	case chtype.KindDynamic:
		return decodeDynamic(r)
	default:
		return chvalue.Value{}, &wireio.DecodingError{Reason: fmt.Sprintf("decoding not supported for type %s", t.String())}
	}
}

// decodeDynamic is the mirror of encodeDynamic: it reads the per-value
// type prefix, parses it, and decodes the value against the resulting
// TypeDesc, or returns DynamicNull for the "Nothing" marker.
func decodeDynamic(r *wireio.Reader) (chvalue.Value, error) {
	typeStr, err := r.ReadString()
	if err != nil {
		return chvalue.Value{}, err
	}
	if typeStr == "Nothing" {
		return chvalue.Value{Kind: chvalue.KindDynamicNull}, nil
	}
	innerType, err := chtype.Parse(typeStr)
	if err != nil {
		return chvalue.Value{}, &wireio.DecodingError{Reason: fmt.Sprintf("Dynamic value type %q: %v", typeStr, err)}
	}
	inner, err := DecodeValue(r, innerType)
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.Value{Kind: chvalue.KindDynamic, DynamicType: innerType, Inner: &inner}, nil
}

// DecodeNestedTransposed is the read-side mirror of
// EncodeNestedTransposed: it reads n parallel Array(Ti) columns and
// re-assembles them into the row-major Array(Tuple(...)) value shape
// every other Nested-aware code path expects.
func DecodeNestedTransposed(r *wireio.Reader, fields []chtype.TypeDesc) ([]chvalue.Value, error) {
	if len(fields) == 0 {
		return nil, &wireio.DecodingError{Reason: "Nested expects at least one field"}
	}
	columns := make([][]chvalue.Value, len(fields))
	var rowCount int
	for i, field := range fields {
		arrayType := &chtype.TypeDesc{Kind: chtype.KindArray, Elem: &field}
		v, err := DecodeValue(r, arrayType)
		if err != nil {
			return nil, err
		}
		columns[i] = v.Items
		if i == 0 {
			rowCount = len(v.Items)
		} else if len(v.Items) != rowCount {
			return nil, &wireio.DecodingError{Reason: "Nested columns have mismatched row counts"}
		}
	}
	rows := make([]chvalue.Value, rowCount)
	for r := 0; r < rowCount; r++ {
		items := make([]chvalue.Value, len(fields))
		for c := range fields {
			items[c] = columns[c][r]
		}
		rows[r] = chvalue.Value{Kind: chvalue.KindTuple, Items: items}
	}
	return rows, nil
}

func decodeTupleFields(r *wireio.Reader, fields []chtype.TupleField) ([]chvalue.Value, error) {
	items := make([]chvalue.Value, len(fields))
	for i, field := range fields {
		v, err := DecodeValue(r, field.Type)
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return items, nil
}

func decodeEnumValue(t *chtype.TypeDesc, code int16) (chvalue.Value, error) {
	for _, variant := range t.EnumVariants {
		if variant.Value == code {
			return chvalue.Value{Kind: chvalue.KindEnum, EnumName: variant.Name}, nil
		}
	}
	return chvalue.Value{}, &wireio.DecodingError{Reason: fmt.Sprintf("unknown Enum code %d for type %s", code, t.String())}
}

func readWide(r *wireio.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &wireio.IoError{Op: "reading value bytes", Err: err}
	}
	return buf, nil
}

func readUUID(r *wireio.Reader) (chvalue.Value, error) {
	raw, err := readWide(r, 16)
	if err != nil {
		return chvalue.Value{}, err
	}
	var unswapped [16]byte
	for i := 0; i < 8; i++ {
		unswapped[i] = raw[7-i]
	}
	for i := 0; i < 8; i++ {
		unswapped[8+i] = raw[15-i]
	}
	id, err := uuid.FromBytes(unswapped[:])
	if err != nil {
		return chvalue.Value{}, &wireio.DecodingError{Reason: fmt.Sprintf("decoding UUID: %v", err)}
	}
	return chvalue.Value{Kind: chvalue.KindUUID, UUID: id}, nil
}

func readIPv4(r *wireio.Reader) (chvalue.Value, error) {
	v, err := r.ReadUint32()
	if err != nil {
		return chvalue.Value{}, err
	}
	ip := net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return chvalue.Value{Kind: chvalue.KindIPv4, IPv4: ip}, nil
}

func readIPv6(r *wireio.Reader) (chvalue.Value, error) {
	raw, err := readWide(r, 16)
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.Value{Kind: chvalue.KindIPv6, IPv6: net.IP(raw)}, nil
}

func readDecimal(r *wireio.Reader, t *chtype.TypeDesc) (chvalue.Value, error) {
	switch t.DecimalWidth {
	case chtype.Decimal32Bits:
		v, err := r.ReadInt32()
		return chvalue.Value{Kind: chvalue.KindDecimal32, I32: v}, err
	case chtype.Decimal64Bits:
		v, err := r.ReadInt64()
		return chvalue.Value{Kind: chvalue.KindDecimal64, I64: v}, err
	case chtype.Decimal128Bits:
		data, err := readWide(r, 16)
		return chvalue.Value{Kind: chvalue.KindDecimal128, Wide: data}, err
	case chtype.Decimal256Bits:
		data, err := readWide(r, 32)
		return chvalue.Value{Kind: chvalue.KindDecimal256, Wide: data}, err
	default:
		return chvalue.Value{}, &wireio.DecodingError{Reason: fmt.Sprintf("unknown Decimal width %d", t.DecimalWidth)}
	}
}

func decodeVariant(r *wireio.Reader, t *chtype.TypeDesc) (chvalue.Value, error) {
	idx, err := r.ReadUint8()
	if err != nil {
		return chvalue.Value{}, err
	}
	if int(idx) >= len(t.Variants) {
		return chvalue.Value{}, &wireio.DecodingError{Reason: fmt.Sprintf("Variant index %d out of range", idx)}
	}
	inner, err := DecodeValue(r, t.Variants[idx])
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.Value{Kind: chvalue.KindVariant, VariantIndex: int(idx), Inner: &inner}, nil
}
