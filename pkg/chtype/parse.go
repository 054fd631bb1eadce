package chtype

import (
	"strconv"
	"strings"
)

// Parse parses a textual ClickHouse type expression such as
// "Map(String, Array(UInt32))" into a TypeDesc, rejecting both malformed
// syntax and structurally valid but illegal combinations (a Nullable
// wrapping another Nullable, a LowCardinality around a Decimal, a Map
// keyed on a Nullable type, and so on).
func Parse(input string) (*TypeDesc, error) {
	return parseTypeDesc(input)
}

func parseTypeDesc(input string) (*TypeDesc, error) {
	trimmed := strings.TrimSpace(input)

	switch trimmed {
	case "UInt8":
		return &TypeDesc{Kind: KindUInt8}, nil
	case "Bool":
		return &TypeDesc{Kind: KindBool}, nil
	case "UInt16":
		return &TypeDesc{Kind: KindUInt16}, nil
	case "UInt32":
		return &TypeDesc{Kind: KindUInt32}, nil
	case "UInt64":
		return &TypeDesc{Kind: KindUInt64}, nil
	case "UInt128":
		return &TypeDesc{Kind: KindUInt128}, nil
	case "UInt256":
		return &TypeDesc{Kind: KindUInt256}, nil
	case "Int8":
		return &TypeDesc{Kind: KindInt8}, nil
	case "Int16":
		return &TypeDesc{Kind: KindInt16}, nil
	case "Int32":
		return &TypeDesc{Kind: KindInt32}, nil
	case "Int64":
		return &TypeDesc{Kind: KindInt64}, nil
	case "Int128":
		return &TypeDesc{Kind: KindInt128}, nil
	case "Int256":
		return &TypeDesc{Kind: KindInt256}, nil
	case "Float32":
		return &TypeDesc{Kind: KindFloat32}, nil
	case "Float64":
		return &TypeDesc{Kind: KindFloat64}, nil
	case "String":
		return &TypeDesc{Kind: KindString}, nil
	case "Date":
		return &TypeDesc{Kind: KindDate}, nil
	case "Date32":
		return &TypeDesc{Kind: KindDate32}, nil
	case "DateTime":
		return &TypeDesc{Kind: KindDateTime}, nil
	case "UUID":
		return &TypeDesc{Kind: KindUUID}, nil
	case "IPv4":
		return &TypeDesc{Kind: KindIPv4}, nil
	case "IPv6":
		return &TypeDesc{Kind: KindIPv6}, nil
	case "Dynamic":
		return &TypeDesc{Kind: KindDynamic}, nil
	}

	if inner, ok := stripCall(trimmed, "Decimal"); ok {
		precision, scale, err := parseDecimalPrecisionScale(inner)
		if err != nil {
			return nil, err
		}
		width, err := decimalWidthForPrecision(precision)
		if err != nil {
			return nil, err
		}
		return &TypeDesc{Kind: KindDecimal, Precision: precision, Scale: scale, DecimalWidth: width}, nil
	}
	if inner, ok := stripCall(trimmed, "Decimal32"); ok {
		scale, err := parseDecimalScale(inner, 9)
		if err != nil {
			return nil, err
		}
		return &TypeDesc{Kind: KindDecimal, Precision: 9, Scale: scale, DecimalWidth: Decimal32Bits}, nil
	}
	if inner, ok := stripCall(trimmed, "Decimal64"); ok {
		scale, err := parseDecimalScale(inner, 18)
		if err != nil {
			return nil, err
		}
		return &TypeDesc{Kind: KindDecimal, Precision: 18, Scale: scale, DecimalWidth: Decimal64Bits}, nil
	}
	if inner, ok := stripCall(trimmed, "Decimal128"); ok {
		scale, err := parseDecimalScale(inner, 38)
		if err != nil {
			return nil, err
		}
		return &TypeDesc{Kind: KindDecimal, Precision: 38, Scale: scale, DecimalWidth: Decimal128Bits}, nil
	}
	if inner, ok := stripCall(trimmed, "Decimal256"); ok {
		scale, err := parseDecimalScale(inner, 76)
		if err != nil {
			return nil, err
		}
		return &TypeDesc{Kind: KindDecimal, Precision: 76, Scale: scale, DecimalWidth: Decimal256Bits}, nil
	}
	if inner, ok := stripCall(trimmed, "Enum8"); ok {
		variants, err := parseEnumVariants(inner, 8)
		if err != nil {
			return nil, err
		}
		return &TypeDesc{Kind: KindEnum8, EnumVariants: variants}, nil
	}
	if inner, ok := stripCall(trimmed, "Enum16"); ok {
		variants, err := parseEnumVariants(inner, 16)
		if err != nil {
			return nil, err
		}
		return &TypeDesc{Kind: KindEnum16, EnumVariants: variants}, nil
	}
	if inner, ok := stripCall(trimmed, "LowCardinality"); ok {
		desc, err := parseTypeDesc(inner)
		if err != nil {
			return nil, err
		}
		if desc.Kind == KindLowCardinality {
			return nil, newTypeError("LowCardinality", "LowCardinality(LowCardinality(T)) is unsupported")
		}
		if !canBeInsideLowCardinality(desc) {
			return nil, newTypeError("LowCardinality", "LowCardinality("+desc.String()+") is unsupported")
		}
		return &TypeDesc{Kind: KindLowCardinality, Elem: desc}, nil
	}
	if inner, ok := stripCall(trimmed, "Nullable"); ok {
		desc, err := parseTypeDesc(inner)
		if err != nil {
			return nil, err
		}
		if desc.Kind == KindNullable {
			return nil, newTypeError("Nullable", "Nullable(Nullable(T)) is unsupported")
		}
		if desc.Kind == KindTuple {
			return nil, newTypeError("Nullable", "Nullable(Tuple(...)) is unsupported")
		}
		if desc.Kind == KindArray {
			return nil, newTypeError("Nullable", "Nullable(Array(T)) is unsupported")
		}
		return &TypeDesc{Kind: KindNullable, Elem: desc}, nil
	}
	if inner, ok := stripCall(trimmed, "Array"); ok {
		desc, err := parseTypeDesc(inner)
		if err != nil {
			return nil, err
		}
		if desc.Kind == KindNested {
			return nil, newTypeError("Array", "Array(Nested(...)) is unsupported")
		}
		return &TypeDesc{Kind: KindArray, Elem: desc}, nil
	}
	if inner, ok := stripCall(trimmed, "Map"); ok {
		key, value, err := parseMapArgs(inner)
		if err != nil {
			return nil, err
		}
		if !isValidMapKey(key) {
			return nil, newTypeError("Map", "Map cannot have a key of type "+key.String())
		}
		return &TypeDesc{Kind: KindMap, Key: key, Value: value}, nil
	}
	if inner, ok := stripCall(trimmed, "Tuple"); ok {
		fields, err := parseTupleFields(inner, false)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, newParseError(0, "Tuple expects at least one type")
		}
		return &TypeDesc{Kind: KindTuple, Fields: fields}, nil
	}
	if inner, ok := stripCall(trimmed, "Nested"); ok {
		fields, err := parseTupleFields(inner, true)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, newParseError(0, "Nested expects at least one element")
		}
		return &TypeDesc{Kind: KindNested, Fields: fields}, nil
	}
	if inner, ok := stripCall(trimmed, "Variant"); ok {
		variants, err := parseVariantArgs(inner)
		if err != nil {
			return nil, err
		}
		return &TypeDesc{Kind: KindVariant, Variants: variants}, nil
	}
	if inner, ok := stripCall(trimmed, "DateTime"); ok {
		tz, err := parseTimezone(inner)
		if err != nil {
			return nil, err
		}
		return &TypeDesc{Kind: KindDateTime, Timezone: tz}, nil
	}
	if inner, ok := stripCall(trimmed, "DateTime64"); ok {
		scale, tz, err := parseDateTime64(inner)
		if err != nil {
			return nil, err
		}
		return &TypeDesc{Kind: KindDateTime64, DateTimeScale: scale, Timezone: tz}, nil
	}
	if inner, ok := stripCall(trimmed, "FixedString"); ok {
		length, err := strconv.Atoi(strings.TrimSpace(inner))
		if err != nil {
			return nil, newParseError(0, "invalid FixedString length")
		}
		if length <= 0 {
			return nil, newParseError(0, "FixedString length must be > 0")
		}
		return &TypeDesc{Kind: KindFixedString, FixedLength: length}, nil
	}

	return nil, newParseError(0, "unsupported type: "+trimmed)
}

// stripCall strips "Name(" prefix and a matching trailing ")" from s,
// reporting whether s was actually of that shape.
func stripCall(s, name string) (string, bool) {
	prefix := name + "("
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	if !strings.HasSuffix(s, ")") {
		return "", false
	}
	return s[len(prefix) : len(s)-1], true
}

func canBeInsideLowCardinality(t *TypeDesc) bool {
	switch t.Kind {
	case KindUInt8, KindBool, KindUInt16, KindUInt32, KindUInt64, KindUInt128, KindUInt256,
		KindInt8, KindInt16, KindInt32, KindInt64, KindInt128, KindInt256,
		KindFloat32, KindFloat64, KindString, KindFixedString,
		KindDate, KindDate32, KindDateTime, KindUUID, KindIPv4, KindIPv6:
		return true
	case KindNullable:
		return canBeInsideLowCardinality(t.Elem)
	default:
		return false
	}
}

func isValidMapKey(t *TypeDesc) bool {
	switch t.Kind {
	case KindNullable:
		return false
	case KindLowCardinality:
		return t.Elem.Kind != KindNullable
	default:
		return true
	}
}

func parseTimezone(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if len(trimmed) < 2 || trimmed[0] != '\'' || trimmed[len(trimmed)-1] != '\'' {
		return "", newParseError(0, "timezone must be quoted")
	}
	tz := trimmed[1 : len(trimmed)-1]
	if tz == "" {
		return "", newParseError(0, "timezone cannot be empty")
	}
	return tz, nil
}

func parseDateTime64(input string) (uint8, string, error) {
	parts := splitTopLevelCommas(input)
	if len(parts) == 0 {
		return 0, "", newParseError(0, "missing DateTime64 precision")
	}
	scale, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 8)
	if err != nil {
		return 0, "", newParseError(0, "invalid DateTime64 precision")
	}
	if len(parts) > 1 {
		tz, err := parseTimezone(parts[1])
		if err != nil {
			return 0, "", err
		}
		return uint8(scale), tz, nil
	}
	return uint8(scale), "", nil
}

func parseDecimalPrecisionScale(input string) (uint8, uint8, error) {
	parts := splitTopLevelCommas(input)
	if len(parts) != 2 {
		return 0, 0, newParseError(0, "Decimal expects precision and scale")
	}
	precision, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 8)
	if err != nil {
		return 0, 0, newParseError(0, "invalid Decimal precision")
	}
	scale, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 8)
	if err != nil {
		return 0, 0, newParseError(0, "invalid Decimal scale")
	}
	if precision == 0 {
		return 0, 0, newParseError(0, "Decimal precision must be > 0")
	}
	if scale > precision {
		return 0, 0, newParseError(0, "Decimal scale must be <= precision")
	}
	return uint8(precision), uint8(scale), nil
}

func parseDecimalScale(input string, maxScale uint8) (uint8, error) {
	scale, err := strconv.ParseUint(strings.TrimSpace(input), 10, 8)
	if err != nil {
		return 0, newParseError(0, "invalid Decimal scale")
	}
	if uint8(scale) > maxScale {
		return 0, newParseError(0, "Decimal scale exceeds max precision")
	}
	return uint8(scale), nil
}

func decimalWidthForPrecision(precision uint8) (DecimalBits, error) {
	switch {
	case precision >= 1 && precision <= 9:
		return Decimal32Bits, nil
	case precision >= 10 && precision <= 18:
		return Decimal64Bits, nil
	case precision >= 19 && precision <= 38:
		return Decimal128Bits, nil
	case precision >= 39 && precision <= 76:
		return Decimal256Bits, nil
	default:
		return 0, newParseError(0, "Decimal precision must be between 1 and 76")
	}
}

func parseEnumVariants(input string, bits int) ([]EnumVariant, error) {
	entries := splitTopLevelCommasQuoted(input)
	if len(entries) == 0 {
		return nil, newParseError(0, "Enum must have at least one value")
	}
	variants := make([]EnumVariant, 0, len(entries))
	for _, entry := range entries {
		name, value, err := parseEnumEntry(entry)
		if err != nil {
			return nil, err
		}
		if bits == 8 && (value < -128 || value > 127) {
			return nil, newParseError(0, "Enum8 value out of range")
		}
		if bits == 16 && (value < -32768 || value > 32767) {
			return nil, newParseError(0, "Enum16 value out of range")
		}
		variants = append(variants, EnumVariant{Name: name, Value: int16(value)})
	}
	return variants, nil
}

func parseEnumEntry(input string) (string, int64, error) {
	inQuote := false
	escape := false
	split := -1
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if escape {
			escape = false
			continue
		}
		switch {
		case ch == '\\' && inQuote:
			escape = true
		case ch == '\'':
			inQuote = !inQuote
		case ch == '=' && !inQuote:
			split = i
		}
		if split >= 0 {
			break
		}
	}
	if split < 0 {
		return "", 0, newParseError(0, "Enum entry must contain '='")
	}
	name, err := parseQuotedString(strings.TrimSpace(input[:split]))
	if err != nil {
		return "", 0, err
	}
	value, err := strconv.ParseInt(strings.TrimSpace(input[split+1:]), 10, 64)
	if err != nil {
		return "", 0, newParseError(0, "invalid Enum value")
	}
	return name, value, nil
}

func parseQuotedString(input string) (string, error) {
	if len(input) < 2 || input[0] != '\'' || input[len(input)-1] != '\'' {
		return "", newParseError(0, "Enum name must be single-quoted")
	}
	var b strings.Builder
	escape := false
	body := input[1 : len(input)-1]
	for _, r := range body {
		if escape {
			b.WriteRune(r)
			escape = false
			continue
		}
		if r == '\\' {
			escape = true
			continue
		}
		b.WriteRune(r)
	}
	if escape {
		return "", newParseError(0, "invalid escape in Enum name")
	}
	return b.String(), nil
}

func parseMapArgs(input string) (*TypeDesc, *TypeDesc, error) {
	parts := splitTopLevelCommasWithParens(input)
	if len(parts) != 2 {
		return nil, nil, newParseError(0, "Map expects two type arguments")
	}
	key, err := parseTypeDesc(parts[0])
	if err != nil {
		return nil, nil, err
	}
	value, err := parseTypeDesc(parts[1])
	if err != nil {
		return nil, nil, err
	}
	return key, value, nil
}

func parseVariantArgs(input string) ([]*TypeDesc, error) {
	parts := splitTopLevelCommasWithParens(input)
	if len(parts) == 0 {
		return nil, newParseError(0, "Variant expects at least one type")
	}
	variants := make([]*TypeDesc, 0, len(parts))
	for _, p := range parts {
		desc, err := parseTypeDesc(p)
		if err != nil {
			return nil, err
		}
		variants = append(variants, desc)
	}
	return variants, nil
}

func parseTupleFields(input string, requireNames bool) ([]TupleField, error) {
	items := splitTopLevelCommasWithParens(input)
	fields := make([]TupleField, 0, len(items))
	for _, item := range items {
		field, err := parseTupleField(item)
		if err != nil {
			return nil, err
		}
		if requireNames && field.Name == "" {
			return nil, newParseError(0, "Nested field must have a name")
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func parseTupleField(input string) (TupleField, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return TupleField{}, newParseError(0, "Tuple element cannot be empty")
	}
	name, rest, ok, err := splitNameAndType(trimmed)
	if err != nil {
		return TupleField{}, err
	}
	if ok {
		ident, err := parseIdentifier(name)
		if err != nil {
			return TupleField{}, err
		}
		desc, err := parseTypeDesc(rest)
		if err != nil {
			return TupleField{}, err
		}
		return TupleField{Name: ident, Type: desc}, nil
	}
	desc, err := parseTypeDesc(trimmed)
	if err != nil {
		return TupleField{}, err
	}
	return TupleField{Type: desc}, nil
}

// splitNameAndType splits a Tuple/Nested element such as "name Array(UInt8)"
// into its leading identifier and the remaining type expression, at the
// first whitespace outside quotes and parens. Returns ok=false when the
// element has no leading name (a plain, unnamed Tuple element).
func splitNameAndType(input string) (name, rest string, ok bool, err error) {
	inQuote := false
	escape := false
	depth := 0
	for i, ch := range input {
		if escape {
			escape = false
			continue
		}
		switch {
		case ch == '\\' && inQuote:
			escape = true
		case ch == '\'':
			inQuote = !inQuote
		case ch == '(' && !inQuote:
			depth++
		case ch == ')' && !inQuote:
			depth--
		case isSpace(ch) && !inQuote && depth == 0:
			left := strings.TrimSpace(input[:i])
			right := strings.TrimSpace(input[i:])
			if left == "" || right == "" {
				return "", "", false, newParseError(0, "Tuple element name/type missing")
			}
			return left, right, true, nil
		}
	}
	return "", "", false, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func parseIdentifier(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", newParseError(0, "empty identifier")
	}
	unquoted := trimmed
	if len(trimmed) >= 2 {
		if (trimmed[0] == '`' && trimmed[len(trimmed)-1] == '`') ||
			(trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"') {
			unquoted = trimmed[1 : len(trimmed)-1]
		}
	}
	if unquoted == "" {
		return "", newParseError(0, "empty identifier")
	}
	return unquoted, nil
}

// splitTopLevelCommas splits on commas that are not inside a single-quoted
// string, used for Enum variant lists where there are no nested parens.
func splitTopLevelCommas(input string) []string {
	var entries []string
	inQuote := false
	escape := false
	start := 0
	for i, ch := range input {
		if escape {
			escape = false
			continue
		}
		switch {
		case ch == '\\' && inQuote:
			escape = true
		case ch == '\'':
			inQuote = !inQuote
		case ch == ',' && !inQuote:
			entries = append(entries, strings.TrimSpace(input[start:i]))
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(input[start:]); tail != "" {
		entries = append(entries, tail)
	}
	return entries
}

// splitTopLevelCommasQuoted is an alias kept distinct from
// splitTopLevelCommas for call-site clarity at Enum parsing sites, where
// quoting rules matter most.
func splitTopLevelCommasQuoted(input string) []string {
	return splitTopLevelCommas(input)
}

// splitTopLevelCommasWithParens splits on commas outside both quotes and
// parens, used for Map/Tuple/Nested/Variant argument lists.
func splitTopLevelCommasWithParens(input string) []string {
	var entries []string
	inQuote := false
	escape := false
	depth := 0
	start := 0
	for i, ch := range input {
		if escape {
			escape = false
			continue
		}
		switch {
		case ch == '\\' && inQuote:
			escape = true
		case ch == '\'':
			inQuote = !inQuote
		case ch == '(' && !inQuote:
			depth++
		case ch == ')' && !inQuote:
			depth--
		case ch == ',' && !inQuote && depth == 0:
			entries = append(entries, strings.TrimSpace(input[start:i]))
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(input[start:]); tail != "" {
		entries = append(entries, tail)
	}
	return entries
}
