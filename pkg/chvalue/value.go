// Package chvalue models decoded ClickHouse column values as a tagged
// union and validates them against a chtype.TypeDesc before they are
// handed to an encoder.
package chvalue

import (
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/clickhouse-wire/chwire/pkg/chtype"
)

// Kind discriminates the Value variants.
type Kind uint8

const (
	KindUInt8 Kind = iota
	KindBool
	KindUInt16
	KindUInt32
	KindUInt64
	KindUInt128
	KindUInt256
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindInt128
	KindInt256
	KindFloat32
	KindFloat64
	KindString
	KindFixedString
	KindDate
	KindDate32
	KindDateTime
	KindDateTime64
	KindUUID
	KindIPv4
	KindIPv6
	KindDecimal32
	KindDecimal64
	KindDecimal128
	KindDecimal256
	// KindEnum carries the variant's textual name rather than its
	// wire-level integer code: callers work with "Active"/"Inactive",
	// not 0/1, and the encoder resolves the name against the column's
	// TypeDesc.EnumVariants at write time.
	KindEnum
	KindNull
	KindNullable
	KindArray
	KindMap
	KindTuple
	KindVariant
	// KindDynamic carries a concrete DynamicType alongside the wrapped
	// Inner value; KindDynamicNull is Dynamic's distinct "no type yet"
	// null, encoded on the wire as the Nothing type marker rather than a
	// Nullable-style flag byte.
	KindDynamic
	KindDynamicNull
)

// MapEntry is one key/value pair of a Map value, kept as an ordered slice
// (not a Go map) because ClickHouse's Map wire format is ordered and may
// contain types that are not Go-hashable, such as nested arrays.
type MapEntry struct {
	Key   Value
	Value Value
}

// Value is a decoded ClickHouse column value. Kind selects which field is
// meaningful; the zero Value is not valid on its own (use Null()).
type Value struct {
	Kind Kind

	U8  uint8
	U16 uint16
	U32 uint32
	U64 uint64
	// U128/U256/I128/I256 and the Decimal128/256 variants all store raw
	// little-endian bytes: Go has no native >64-bit integer type and the
	// wire format is already little-endian, so there is nothing to gain
	// from decoding into math/big before round-tripping.
	Wide []byte

	I8  int8
	I16 int16
	I32 int32
	I64 int64

	Bool bool
	Str  []byte
	F32  float32
	F64  float64

	UUID uuid.UUID
	IPv4 net.IP
	IPv6 net.IP

	EnumName string

	// DynamicType is the child TypeDesc a KindDynamic value's Inner was
	// encoded/decoded against. Unset for KindDynamicNull, which carries no
	// type at all (it is ClickHouse's Nothing marker, not a typed null).
	DynamicType *chtype.TypeDesc

	Inner *Value
	Items []Value
	Pairs []MapEntry

	VariantIndex int
}

// Null returns the Nullable(T) null value.
func Null() Value { return Value{Kind: KindNull} }

// NullableOf wraps v as a present Nullable(T) value.
func NullableOf(v Value) Value { return Value{Kind: KindNullable, Inner: &v} }

// TypeName returns a short debugging label for v's kind, not a full
// ClickHouse type string (that requires the TypeDesc the value is being
// validated or encoded against).
func (v Value) TypeName() string {
	switch v.Kind {
	case KindUInt8:
		return "UInt8"
	case KindBool:
		return "Bool"
	case KindUInt16:
		return "UInt16"
	case KindUInt32:
		return "UInt32"
	case KindUInt64:
		return "UInt64"
	case KindString:
		return "String"
	case KindFixedString:
		return "FixedString"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	case KindTuple:
		return "Tuple"
	case KindNullable:
		return "Nullable"
	case KindNull:
		return "Null"
	case KindEnum:
		return fmt.Sprintf("Enum(%s)", v.EnumName)
	case KindVariant:
		return "Variant"
	case KindDynamic:
		return "Dynamic"
	case KindDynamicNull:
		return "DynamicNull"
	default:
		return fmt.Sprintf("Kind(%d)", v.Kind)
	}
}
