// Package chtype parses ClickHouse type expressions such as
// "Nullable(LowCardinality(String))" into a structured TypeDesc, validates
// legal nesting, and formats them back to the server's canonical textual
// form.
package chtype

import (
	"fmt"
	"strings"
)

// Kind discriminates the TypeDesc variants. It is the tag of the closed
// tagged-union described by this package; dispatch on a TypeDesc always
// switches on Kind rather than relying on dynamic type assertions.
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
	KindDecimal
	KindEnum8
	KindEnum16
	KindNullable
	KindLowCardinality
	KindArray
	KindMap
	KindTuple
	KindNested
	KindVariant
	KindDynamic
)

// DecimalBits is the canonical on-wire width of a Decimal column, derived
// from its declared precision.
type DecimalBits int

const (
	Decimal32Bits  DecimalBits = 32
	Decimal64Bits  DecimalBits = 64
	Decimal128Bits DecimalBits = 128
	Decimal256Bits DecimalBits = 256
)

// EnumVariant is one ('name' = value) pair inside an Enum8/Enum16 type.
type EnumVariant struct {
	Name  string
	Value int16
}

// TupleField is one element of a Tuple or Nested type. Name is empty for
// unnamed tuple elements; Nested fields always carry a name.
type TupleField struct {
	Name string
	Type *TypeDesc
}

// TypeDesc is a parsed ClickHouse type descriptor. It is a recursive tagged
// union: Kind selects which of the remaining fields are meaningful.
type TypeDesc struct {
	Kind Kind

	// FixedString
	FixedLength int

	// DateTime / DateTime64
	Timezone string
	// DateTime64 scale (0-9)
	DateTimeScale uint8

	// Decimal
	Precision    uint8
	Scale        uint8
	DecimalWidth DecimalBits

	// Enum8 / Enum16
	EnumVariants []EnumVariant

	// Nullable / LowCardinality / Array
	Elem *TypeDesc

	// Map
	Key   *TypeDesc
	Value *TypeDesc

	// Tuple / Nested / Variant
	Fields   []TupleField
	Variants []*TypeDesc
}

var simpleNames = map[Kind]string{
	KindUInt8:   "UInt8",
	KindBool:    "Bool",
	KindUInt16:  "UInt16",
	KindUInt32:  "UInt32",
	KindUInt64:  "UInt64",
	KindUInt128: "UInt128",
	KindUInt256: "UInt256",
	KindInt8:    "Int8",
	KindInt16:   "Int16",
	KindInt32:   "Int32",
	KindInt64:   "Int64",
	KindInt128:  "Int128",
	KindInt256:  "Int256",
	KindFloat32: "Float32",
	KindFloat64: "Float64",
	KindString:  "String",
	KindDate:    "Date",
	KindDate32:  "Date32",
	KindUUID:    "UUID",
	KindIPv4:    "IPv4",
	KindIPv6:    "IPv6",
	KindDynamic: "Dynamic",
}

// String returns the canonical ClickHouse type name for t, the same text
// the server emits in a WithNamesAndTypes header (decimals always appear as
// canonical Decimal(P, S), never as a width alias).
func (t *TypeDesc) String() string {
	if name, ok := simpleNames[t.Kind]; ok {
		return name
	}

	switch t.Kind {
	case KindFixedString:
		return fmt.Sprintf("FixedString(%d)", t.FixedLength)
	case KindDateTime:
		if t.Timezone != "" {
			return fmt.Sprintf("DateTime('%s')", t.Timezone)
		}
		return "DateTime"
	case KindDateTime64:
		if t.Timezone != "" {
			return fmt.Sprintf("DateTime64(%d, '%s')", t.DateTimeScale, t.Timezone)
		}
		return fmt.Sprintf("DateTime64(%d)", t.DateTimeScale)
	case KindDecimal:
		return fmt.Sprintf("Decimal(%d, %d)", t.Precision, t.Scale)
	case KindEnum8:
		return formatEnum("Enum8", t.EnumVariants)
	case KindEnum16:
		return formatEnum("Enum16", t.EnumVariants)
	case KindNullable:
		return fmt.Sprintf("Nullable(%s)", t.Elem.String())
	case KindLowCardinality:
		return fmt.Sprintf("LowCardinality(%s)", t.Elem.String())
	case KindArray:
		return fmt.Sprintf("Array(%s)", t.Elem.String())
	case KindMap:
		return fmt.Sprintf("Map(%s, %s)", t.Key.String(), t.Value.String())
	case KindTuple:
		return fmt.Sprintf("Tuple(%s)", formatFields(t.Fields))
	case KindNested:
		return fmt.Sprintf("Nested(%s)", formatFields(t.Fields))
	case KindVariant:
		return fmt.Sprintf("Variant(%s)", formatVariants(t.Variants))
	default:
		return "Unknown"
	}
}

func formatFields(fields []TupleField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		if f.Name != "" {
			parts[i] = fmt.Sprintf("%s %s", formatIdentifier(f.Name), f.Type.String())
		} else {
			parts[i] = f.Type.String()
		}
	}
	return strings.Join(parts, ", ")
}

func formatVariants(variants []*TypeDesc) string {
	parts := make([]string, len(variants))
	for i, v := range variants {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// formatIdentifier quotes a tuple/nested field name in backticks if it
// contains anything other than ASCII letters, digits, and underscore.
func formatIdentifier(name string) string {
	plain := true
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			plain = false
			break
		}
	}
	if plain && name != "" {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

func formatEnum(keyword string, variants []EnumVariant) string {
	parts := make([]string, len(variants))
	for i, v := range variants {
		parts[i] = fmt.Sprintf("'%s' = %d", strings.ReplaceAll(v.Name, "'", "\\'"), v.Value)
	}
	return fmt.Sprintf("%s(%s)", keyword, strings.Join(parts, ", "))
}

// TypeName is an alias for String kept for callers that prefer a method
// name mirroring the server's SELECT toTypeName() output.
func (t *TypeDesc) TypeName() string {
	return t.String()
}
