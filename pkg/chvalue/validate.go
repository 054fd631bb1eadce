package chvalue

import (
	"fmt"

	"github.com/clickhouse-wire/chwire/pkg/chtype"
)

// Validate checks that v has the shape required by t: the right Kind for
// each primitive, the right element count for Tuple, a resolvable variant
// name for Enum8/Enum16, and so on, recursing into Array/Map/Tuple/
// Nullable/LowCardinality members. It does not check integer range or
// FixedString length against t, since those are byte-level concerns the
// encoder already rejects on write.
func Validate(t *chtype.TypeDesc, v Value) error {
	return validatePath(t, v, t.String())
}

func validatePath(t *chtype.TypeDesc, v Value, path string) error {
	switch t.Kind {
	case chtype.KindNullable:
		if v.Kind == KindNull {
			return nil
		}
		if v.Kind != KindNullable {
			return newValidationError(path, fmt.Sprintf("expected Nullable value, got %s", v.TypeName()))
		}
		if v.Inner == nil {
			return nil
		}
		return validatePath(t.Elem, *v.Inner, path)

	case chtype.KindLowCardinality:
		return validatePath(t.Elem, v, path)

	case chtype.KindArray:
		if v.Kind != KindArray {
			return newValidationError(path, fmt.Sprintf("expected Array value, got %s", v.TypeName()))
		}
		for i, item := range v.Items {
			if err := validatePath(t.Elem, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case chtype.KindMap:
		if v.Kind != KindMap {
			return newValidationError(path, fmt.Sprintf("expected Map value, got %s", v.TypeName()))
		}
		for i, entry := range v.Pairs {
			if err := validatePath(t.Key, entry.Key, fmt.Sprintf("%s{%d}.key", path, i)); err != nil {
				return err
			}
			if err := validatePath(t.Value, entry.Value, fmt.Sprintf("%s{%d}.value", path, i)); err != nil {
				return err
			}
		}
		return nil

	case chtype.KindTuple:
		if v.Kind != KindTuple {
			return newValidationError(path, fmt.Sprintf("expected Tuple value, got %s", v.TypeName()))
		}
		if len(v.Items) != len(t.Fields) {
			return newValidationError(path, fmt.Sprintf("Tuple arity mismatch: type has %d fields, value has %d", len(t.Fields), len(v.Items)))
		}
		for i, field := range t.Fields {
			if err := validatePath(field.Type, v.Items[i], fmt.Sprintf("%s.%d", path, i)); err != nil {
				return err
			}
		}
		return nil

	case chtype.KindNested:
		// Nested values are carried as Array(Tuple(...)) at the value
		// level; the transposition into parallel columns happens only in
		// the encoder.
		if v.Kind != KindArray {
			return newValidationError(path, fmt.Sprintf("expected Array(Tuple(...)) value for Nested, got %s", v.TypeName()))
		}
		tupleType := &chtype.TypeDesc{Kind: chtype.KindTuple, Fields: t.Fields}
		for i, row := range v.Items {
			if err := validatePath(tupleType, row, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case chtype.KindVariant:
		if v.Kind != KindVariant {
			return newValidationError(path, fmt.Sprintf("expected Variant value, got %s", v.TypeName()))
		}
		if v.VariantIndex < 0 || v.VariantIndex >= len(t.Variants) {
			return newValidationError(path, fmt.Sprintf("Variant index %d out of range [0,%d)", v.VariantIndex, len(t.Variants)))
		}
		if v.Inner == nil {
			return newValidationError(path, "Variant value missing inner value")
		}
		return validatePath(t.Variants[v.VariantIndex], *v.Inner, fmt.Sprintf("%s<%d>", path, v.VariantIndex))

	case chtype.KindDynamic:
		if v.Kind == KindDynamicNull {
			return nil
		}
		if v.Kind != KindDynamic {
			return newValidationError(path, fmt.Sprintf("expected Dynamic value, got %s", v.TypeName()))
		}
		if v.DynamicType == nil || v.Inner == nil {
			return newValidationError(path, "Dynamic value missing inner type/value")
		}
		return validatePath(v.DynamicType, *v.Inner, fmt.Sprintf("%s<%s>", path, v.DynamicType.String()))

	case chtype.KindEnum8, chtype.KindEnum16:
		if v.Kind != KindEnum {
			return newValidationError(path, fmt.Sprintf("expected Enum value, got %s", v.TypeName()))
		}
		for _, variant := range t.EnumVariants {
			if variant.Name == v.EnumName {
				return nil
			}
		}
		return newValidationError(path, fmt.Sprintf("unknown Enum variant %q", v.EnumName))

	case chtype.KindFixedString:
		if v.Kind != KindFixedString {
			return newValidationError(path, fmt.Sprintf("expected FixedString value, got %s", v.TypeName()))
		}
		if len(v.Str) != t.FixedLength {
			return newValidationError(path, fmt.Sprintf("FixedString length mismatch: type wants %d, value has %d", t.FixedLength, len(v.Str)))
		}
		return nil

	case chtype.KindUInt8, chtype.KindBool, chtype.KindUInt16, chtype.KindUInt32, chtype.KindUInt64,
		chtype.KindInt8, chtype.KindInt16, chtype.KindInt32, chtype.KindInt64,
		chtype.KindFloat32, chtype.KindFloat64, chtype.KindString,
		chtype.KindDate, chtype.KindDate32, chtype.KindDateTime, chtype.KindDateTime64,
		chtype.KindUUID, chtype.KindIPv4, chtype.KindIPv6,
		chtype.KindUInt128, chtype.KindUInt256, chtype.KindInt128, chtype.KindInt256, chtype.KindDecimal:
		if expectedKind(t) != v.Kind {
			return newValidationError(path, fmt.Sprintf("expected %s value, got %s", t.String(), v.TypeName()))
		}
		return nil

	default:
		return newValidationError(path, "unsupported type in validation")
	}
}

func expectedKind(t *chtype.TypeDesc) Kind {
	switch t.Kind {
	case chtype.KindUInt8:
		return KindUInt8
	case chtype.KindBool:
		return KindBool
	case chtype.KindUInt16:
		return KindUInt16
	case chtype.KindUInt32:
		return KindUInt32
	case chtype.KindUInt64:
		return KindUInt64
	case chtype.KindUInt128:
		return KindUInt128
	case chtype.KindUInt256:
		return KindUInt256
	case chtype.KindInt8:
		return KindInt8
	case chtype.KindInt16:
		return KindInt16
	case chtype.KindInt32:
		return KindInt32
	case chtype.KindInt64:
		return KindInt64
	case chtype.KindInt128:
		return KindInt128
	case chtype.KindInt256:
		return KindInt256
	case chtype.KindFloat32:
		return KindFloat32
	case chtype.KindFloat64:
		return KindFloat64
	case chtype.KindString:
		return KindString
	case chtype.KindDate:
		return KindDate
	case chtype.KindDate32:
		return KindDate32
	case chtype.KindDateTime:
		return KindDateTime
	case chtype.KindDateTime64:
		return KindDateTime64
	case chtype.KindUUID:
		return KindUUID
	case chtype.KindIPv4:
		return KindIPv4
	case chtype.KindIPv6:
		return KindIPv6
	case chtype.KindDecimal:
		switch t.DecimalWidth {
		case chtype.Decimal32Bits:
			return KindDecimal32
		case chtype.Decimal64Bits:
			return KindDecimal64
		case chtype.Decimal128Bits:
			return KindDecimal128
		default:
			return KindDecimal256
		}
	default:
		return KindNull
	}
}
