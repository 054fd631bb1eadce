package native

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net"

	"github.com/google/uuid"

	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
)

// AppendJSON maps a JSON object to a row and appends it, per spec.md
// §4.9's coercion rules: numbers to integers/floats (range-checked),
// strings to String/FixedString/Enum-by-name/UUID/IPv4/IPv6/decimal, and
// arrays/objects to Array/Map/Tuple recursively. Coercion failures report
// InvalidValue; a raw JSON number/string/bool/array/object that does not
// match its column's shape is a coercion failure, not a panic.
func (w *StreamWriter) AppendJSON(row map[string]any) error {
	setter := make(map[string]chvalue.Value, len(row))
	for _, col := range w.schema {
		raw, ok := row[col.Name]
		if !ok {
			return &MissingColumn{Name: col.Name}
		}
		v, err := jsonToValue(raw, col.Type, col.Name)
		if err != nil {
			return err
		}
		setter[col.Name] = v
	}
	for name := range row {
		if w.schema.IndexOf(name) == -1 {
			return &UnknownColumn{Name: name}
		}
	}
	return w.AppendRow(setter)
}

// jsonDynamicEnvelope is the supplemented Dynamic JSON shape from
// SPEC_FULL.md §6.5: {"$type": "<type string>", "value": <json>}. Absent
// a $type key, Dynamic falls back to the ordinary inference rules below.
type jsonDynamicEnvelope struct {
	Type  string `json:"$type"`
	Value any    `json:"value"`
}

func jsonToValue(raw any, t *chtype.TypeDesc, path string) (chvalue.Value, error) {
	if t.Kind == chtype.KindNullable {
		if raw == nil {
			return chvalue.Null(), nil
		}
		inner, err := jsonToValue(raw, t.Elem, path)
		if err != nil {
			return chvalue.Value{}, err
		}
		return chvalue.NullableOf(inner), nil
	}
	if raw == nil {
		return chvalue.Value{}, newInvalidValue(path, fmt.Sprintf("null is not legal for non-Nullable type %s", t.String()))
	}

	switch t.Kind {
	case chtype.KindLowCardinality:
		return jsonToValue(raw, t.Elem, path)

	case chtype.KindDynamic:
		return jsonToDynamic(raw, path)

	case chtype.KindUInt8, chtype.KindUInt16, chtype.KindUInt32, chtype.KindUInt64,
		chtype.KindInt8, chtype.KindInt16, chtype.KindInt32, chtype.KindInt64,
		chtype.KindFloat32, chtype.KindFloat64, chtype.KindBool:
		return jsonToNumeric(raw, t, path)

	case chtype.KindString:
		s, ok := raw.(string)
		if !ok {
			return chvalue.Value{}, newInvalidValue(path, "expected a JSON string")
		}
		return chvalue.Value{Kind: chvalue.KindString, Str: []byte(s)}, nil

	case chtype.KindFixedString:
		s, ok := raw.(string)
		if !ok {
			return chvalue.Value{}, newInvalidValue(path, "expected a JSON string")
		}
		if len(s) > t.FixedLength {
			return chvalue.Value{}, newInvalidValue(path, fmt.Sprintf("string longer than FixedString(%d)", t.FixedLength))
		}
		buf := make([]byte, t.FixedLength)
		copy(buf, s)
		return chvalue.Value{Kind: chvalue.KindFixedString, Str: buf}, nil

	case chtype.KindEnum8, chtype.KindEnum16:
		name, ok := raw.(string)
		if !ok {
			return chvalue.Value{}, newInvalidValue(path, "expected a JSON string naming an Enum variant")
		}
		for _, variant := range t.EnumVariants {
			if variant.Name == name {
				return chvalue.Value{Kind: chvalue.KindEnum, EnumName: name}, nil
			}
		}
		return chvalue.Value{}, newInvalidValue(path, fmt.Sprintf("unknown Enum variant %q", name))

	case chtype.KindUUID:
		s, ok := raw.(string)
		if !ok {
			return chvalue.Value{}, newInvalidValue(path, "expected a JSON string")
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return chvalue.Value{}, newInvalidValue(path, err.Error())
		}
		return chvalue.Value{Kind: chvalue.KindUUID, UUID: id}, nil

	case chtype.KindIPv4:
		s, ok := raw.(string)
		if !ok {
			return chvalue.Value{}, newInvalidValue(path, "expected a JSON string")
		}
		ip := net.ParseIP(s)
		if ip == nil || ip.To4() == nil {
			return chvalue.Value{}, newInvalidValue(path, fmt.Sprintf("%q is not a valid IPv4 address", s))
		}
		return chvalue.Value{Kind: chvalue.KindIPv4, IPv4: ip}, nil

	case chtype.KindIPv6:
		s, ok := raw.(string)
		if !ok {
			return chvalue.Value{}, newInvalidValue(path, "expected a JSON string")
		}
		ip := net.ParseIP(s)
		if ip == nil {
			return chvalue.Value{}, newInvalidValue(path, fmt.Sprintf("%q is not a valid IP address", s))
		}
		return chvalue.Value{Kind: chvalue.KindIPv6, IPv6: ip.To16()}, nil

	case chtype.KindDecimal:
		return jsonToDecimal(raw, t, path)

	case chtype.KindDate, chtype.KindDate32, chtype.KindDateTime, chtype.KindDateTime64:
		return jsonToNumeric(raw, t, path)

	case chtype.KindArray:
		items, ok := raw.([]any)
		if !ok {
			return chvalue.Value{}, newInvalidValue(path, "expected a JSON array")
		}
		values := make([]chvalue.Value, len(items))
		for i, item := range items {
			v, err := jsonToValue(item, t.Elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return chvalue.Value{}, err
			}
			values[i] = v
		}
		return chvalue.Value{Kind: chvalue.KindArray, Items: values}, nil

	case chtype.KindMap:
		obj, ok := raw.(map[string]any)
		if !ok {
			return chvalue.Value{}, newInvalidValue(path, "expected a JSON object")
		}
		pairs := make([]chvalue.MapEntry, 0, len(obj))
		for k, rv := range obj {
			key, err := jsonToValue(k, t.Key, fmt.Sprintf("%s{%s}.key", path, k))
			if err != nil {
				return chvalue.Value{}, err
			}
			value, err := jsonToValue(rv, t.Value, fmt.Sprintf("%s{%s}.value", path, k))
			if err != nil {
				return chvalue.Value{}, err
			}
			pairs = append(pairs, chvalue.MapEntry{Key: key, Value: value})
		}
		return chvalue.Value{Kind: chvalue.KindMap, Pairs: pairs}, nil

	case chtype.KindTuple:
		items, ok := raw.([]any)
		if !ok {
			return chvalue.Value{}, newInvalidValue(path, "expected a JSON array for a Tuple")
		}
		if len(items) != len(t.Fields) {
			return chvalue.Value{}, newInvalidValue(path, fmt.Sprintf("Tuple arity mismatch: type has %d fields, JSON array has %d", len(t.Fields), len(items)))
		}
		values := make([]chvalue.Value, len(items))
		for i, field := range t.Fields {
			v, err := jsonToValue(items[i], field.Type, fmt.Sprintf("%s.%d", path, i))
			if err != nil {
				return chvalue.Value{}, err
			}
			values[i] = v
		}
		return chvalue.Value{Kind: chvalue.KindTuple, Items: values}, nil

	default:
		return chvalue.Value{}, newInvalidValue(path, fmt.Sprintf("JSON ingestion not supported for type %s", t.String()))
	}
}

func jsonToNumeric(raw any, t *chtype.TypeDesc, path string) (chvalue.Value, error) {
	f, ok := raw.(float64)
	if !ok {
		return chvalue.Value{}, newInvalidValue(path, "expected a JSON number")
	}
	switch t.Kind {
	case chtype.KindBool:
		return chvalue.Value{Kind: chvalue.KindBool, Bool: f != 0}, nil
	case chtype.KindUInt8:
		if f < 0 || f > 255 {
			return chvalue.Value{}, newInvalidValue(path, "out of range for UInt8")
		}
		return chvalue.Value{Kind: chvalue.KindUInt8, U8: uint8(f)}, nil
	case chtype.KindUInt16, chtype.KindDate:
		if f < 0 || f > 65535 {
			return chvalue.Value{}, newInvalidValue(path, "out of range for UInt16")
		}
		return chvalue.Value{Kind: chvalue.KindUInt16, U16: uint16(f)}, nil
	case chtype.KindUInt32, chtype.KindDateTime:
		if f < 0 || f > 4294967295 {
			return chvalue.Value{}, newInvalidValue(path, "out of range")
		}
		return chvalue.Value{Kind: chvalue.KindUInt32, U32: uint32(f)}, nil
	case chtype.KindUInt64:
		if f < 0 {
			return chvalue.Value{}, newInvalidValue(path, "out of range for UInt64")
		}
		return chvalue.Value{Kind: chvalue.KindUInt64, U64: uint64(f)}, nil
	case chtype.KindInt8:
		if f < -128 || f > 127 {
			return chvalue.Value{}, newInvalidValue(path, "out of range for Int8")
		}
		return chvalue.Value{Kind: chvalue.KindInt8, I8: int8(f)}, nil
	case chtype.KindInt16:
		if f < -32768 || f > 32767 {
			return chvalue.Value{}, newInvalidValue(path, "out of range for Int16")
		}
		return chvalue.Value{Kind: chvalue.KindInt16, I16: int16(f)}, nil
	case chtype.KindInt32, chtype.KindDate32:
		if f < -2147483648 || f > 2147483647 {
			return chvalue.Value{}, newInvalidValue(path, "out of range")
		}
		return chvalue.Value{Kind: chvalue.KindInt32, I32: int32(f)}, nil
	case chtype.KindInt64, chtype.KindDateTime64:
		return chvalue.Value{Kind: chvalue.KindInt64, I64: int64(f)}, nil
	case chtype.KindFloat32:
		return chvalue.Value{Kind: chvalue.KindFloat32, F32: float32(f)}, nil
	case chtype.KindFloat64:
		return chvalue.Value{Kind: chvalue.KindFloat64, F64: f}, nil
	default:
		return chvalue.Value{}, newInvalidValue(path, fmt.Sprintf("unexpected numeric target type %s", t.String()))
	}
}

// jsonToDecimal accepts either a JSON number or a decimal-looking string
// ("12.340") and scales it to the column's declared scale, matching
// spec.md §4.9's "decimal-from-string" coercion.
func jsonToDecimal(raw any, t *chtype.TypeDesc, path string) (chvalue.Value, error) {
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		text = big.NewFloat(v).Text('f', int(t.Scale))
	default:
		return chvalue.Value{}, newInvalidValue(path, "expected a JSON number or decimal string")
	}

	magnitude, err := scaleDecimalString(text, int(t.Scale))
	if err != nil {
		return chvalue.Value{}, newInvalidValue(path, err.Error())
	}

	switch t.DecimalWidth {
	case chtype.Decimal32Bits:
		return chvalue.Value{Kind: chvalue.KindDecimal32, I32: int32(magnitude.Int64())}, nil
	case chtype.Decimal64Bits:
		return chvalue.Value{Kind: chvalue.KindDecimal64, I64: magnitude.Int64()}, nil
	case chtype.Decimal128Bits:
		return chvalue.Value{Kind: chvalue.KindDecimal128, Wide: bigIntToLE(magnitude, 16)}, nil
	default:
		return chvalue.Value{Kind: chvalue.KindDecimal256, Wide: bigIntToLE(magnitude, 32)}, nil
	}
}

// scaleDecimalString parses a base-10 decimal text (optionally signed,
// optionally with a fractional part) into its integer magnitude at the
// given scale: "12.3" at scale 2 becomes 1230.
func scaleDecimalString(text string, scale int) (*big.Int, error) {
	neg := false
	if len(text) > 0 && (text[0] == '+' || text[0] == '-') {
		neg = text[0] == '-'
		text = text[1:]
	}
	intPart, fracPart := text, ""
	for i, c := range text {
		if c == '.' {
			intPart, fracPart = text[:i], text[i+1:]
			break
		}
	}
	if len(fracPart) > scale {
		return nil, fmt.Errorf("decimal %q has more fractional digits than scale %d", text, scale)
	}
	for len(fracPart) < scale {
		fracPart += "0"
	}
	if intPart == "" {
		intPart = "0"
	}
	magnitude, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal literal %q", text)
	}
	if neg {
		magnitude.Neg(magnitude)
	}
	return magnitude, nil
}

// bigIntToLE renders v as a two's-complement little-endian byte string of
// exactly width bytes, the on-wire form Decimal128/256 and (U)Int128/256
// values use.
func bigIntToLE(v *big.Int, width int) []byte {
	out := make([]byte, width)
	mag := new(big.Int).Abs(v)
	be := mag.Bytes()
	for i, b := range be {
		out[width-1-i] = b
	}
	if v.Sign() < 0 {
		for i := range out {
			out[i] = ^out[i]
		}
		carry := true
		for i := 0; i < width && carry; i++ {
			out[i]++
			carry = out[i] == 0
		}
	}
	return out
}

func jsonToDynamic(raw any, path string) (chvalue.Value, error) {
	if obj, ok := raw.(map[string]any); ok {
		if typeStr, ok := obj["$type"].(string); ok {
			payload, err := json.Marshal(obj)
			if err != nil {
				return chvalue.Value{}, newInvalidValue(path, err.Error())
			}
			var envelope jsonDynamicEnvelope
			if err := json.Unmarshal(payload, &envelope); err != nil {
				return chvalue.Value{}, newInvalidValue(path, err.Error())
			}
			innerType, err := chtype.Parse(typeStr)
			if err != nil {
				return chvalue.Value{}, newInvalidValue(path, err.Error())
			}
			inner, err := jsonToValue(envelope.Value, innerType, path+".value")
			if err != nil {
				return chvalue.Value{}, err
			}
			return chvalue.Value{Kind: chvalue.KindDynamic, DynamicType: innerType, Inner: &inner}, nil
		}
	}
	innerType, inner, err := inferDynamicValue(raw, path)
	if err != nil {
		return chvalue.Value{}, err
	}
	return chvalue.Value{Kind: chvalue.KindDynamic, DynamicType: innerType, Inner: &inner}, nil
}

// inferDynamicValue picks the narrowest matching TypeDesc for a raw JSON
// value with no explicit $type envelope, per SPEC_FULL.md §6.5: floats
// that round-trip through an integer become Int64, other numbers become
// Float64, strings become String, arrays become Array(Dynamic) element
// by element... but a Dynamic element's own inference only ever needs to
// go one level deep for the flat JSON shapes append_json accepts.
func inferDynamicValue(raw any, path string) (*chtype.TypeDesc, chvalue.Value, error) {
	switch v := raw.(type) {
	case bool:
		return &chtype.TypeDesc{Kind: chtype.KindBool}, chvalue.Value{Kind: chvalue.KindBool, Bool: v}, nil
	case float64:
		if v == float64(int64(v)) {
			t := &chtype.TypeDesc{Kind: chtype.KindInt64}
			return t, chvalue.Value{Kind: chvalue.KindInt64, I64: int64(v)}, nil
		}
		t := &chtype.TypeDesc{Kind: chtype.KindFloat64}
		return t, chvalue.Value{Kind: chvalue.KindFloat64, F64: v}, nil
	case string:
		t := &chtype.TypeDesc{Kind: chtype.KindString}
		return t, chvalue.Value{Kind: chvalue.KindString, Str: []byte(v)}, nil
	default:
		return nil, chvalue.Value{}, newInvalidValue(path, "cannot infer a Dynamic type for this JSON value; use the {\"$type\":...,\"value\":...} envelope")
	}
}
