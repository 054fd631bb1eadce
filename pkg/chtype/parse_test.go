package chtype_test

import (
	"testing"

	"github.com/clickhouse-wire/chwire/pkg/chtype"
)

func TestParse_Simple(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"UInt8", "UInt8"},
		{"Bool", "Bool"},
		{"String", "String"},
		{"Float64", "Float64"},
		{"UUID", "UUID"},
		{"IPv4", "IPv4"},
		{"IPv6", "IPv6"},
		{"FixedString(16)", "FixedString(16)"},
		{"DateTime", "DateTime"},
		{"DateTime('UTC')", "DateTime('UTC')"},
		{"DateTime64(3)", "DateTime64(3)"},
		{"DateTime64(3, 'UTC')", "DateTime64(3, 'UTC')"},
		{"Decimal(9, 2)", "Decimal(9, 2)"},
		{"Decimal32(2)", "Decimal(9, 2)"},
		{"Decimal64(2)", "Decimal(18, 2)"},
		{"Decimal128(2)", "Decimal(38, 2)"},
		{"Decimal256(2)", "Decimal(76, 2)"},
		{"Array(UInt8)", "Array(UInt8)"},
		{"Nullable(String)", "Nullable(String)"},
		{"LowCardinality(String)", "LowCardinality(String)"},
		{"Map(String, UInt64)", "Map(String, UInt64)"},
		{"Tuple(UInt8, String)", "Tuple(UInt8, String)"},
		{"Tuple(a UInt8, b String)", "Tuple(a UInt8, b String)"},
		{"Nested(a UInt8, b String)", "Nested(a UInt8, b String)"},
		{"Enum8('a' = 1, 'b' = 2)", "Enum8('a' = 1, 'b' = 2)"},
		{"Enum16('a' = -1, 'b' = 2)", "Enum16('a' = -1, 'b' = 2)"},
		{"Variant(UInt8, String)", "Variant(UInt8, String)"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := chtype.Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tc.input, err)
			}
			if got.String() != tc.want {
				t.Errorf("Parse(%q).String() = %q, want %q", tc.input, got.String(), tc.want)
			}
		})
	}
}

func TestParse_RejectsUnsupportedCombinations(t *testing.T) {
	tests := []string{
		"LowCardinality(DateTime64(3))",
		"LowCardinality(Array(UInt8))",
		"LowCardinality(LowCardinality(String))",
		"LowCardinality(Decimal(9,2))",
		"LowCardinality(Decimal32(2))",
		"LowCardinality(Decimal64(2))",
		"LowCardinality(Decimal128(2))",
		"LowCardinality(Decimal256(2))",
		"LowCardinality(Enum8('a' = 1, 'b' = 2))",
		"LowCardinality(Enum16('a' = 1, 'b' = 2))",
		"LowCardinality(Tuple(UInt8, String))",
		"Nullable(Nullable(UInt8))",
		"Nullable(Tuple(UInt8, String))",
		"Nullable(Array(UInt8))",
		"Array(Nested(a UInt8))",
		"Map(Nullable(UInt8), UInt8)",
		"Map(LowCardinality(Nullable(String)), UInt8)",
	}

	for _, ty := range tests {
		t.Run(ty, func(t *testing.T) {
			if _, err := chtype.Parse(ty); err == nil {
				t.Fatalf("Parse(%q) expected error, got nil", ty)
			}
		})
	}
}

func TestParse_RejectsMalformedSyntax(t *testing.T) {
	tests := []string{
		"",
		"Array(UInt8",
		"FixedString(0)",
		"FixedString(-1)",
		"FixedString(abc)",
		"Decimal(0, 0)",
		"Decimal(5, 10)",
		"Decimal(100, 2)",
		"Tuple()",
		"Nested()",
		"Nested(UInt8)",
		"Map(String)",
		"DateTime('')",
		"NotARealType",
		"Enum8()",
	}

	for _, ty := range tests {
		t.Run(ty, func(t *testing.T) {
			if _, err := chtype.Parse(ty); err == nil {
				t.Fatalf("Parse(%q) expected error, got nil", ty)
			}
		})
	}
}

func TestParse_NestedIdentifiers(t *testing.T) {
	got, err := chtype.Parse("Tuple(`weird name` UInt8, plain String)")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(got.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(got.Fields))
	}
	if got.Fields[0].Name != "weird name" {
		t.Errorf("field[0].Name = %q, want %q", got.Fields[0].Name, "weird name")
	}
	if got.String() != "Tuple(`weird name` UInt8, plain String)" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestParse_MapOfComplexTypes(t *testing.T) {
	got, err := chtype.Parse("Map(String, Array(Tuple(UInt8, String)))")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got.Kind != chtype.KindMap {
		t.Fatalf("expected KindMap, got %v", got.Kind)
	}
	want := "Map(String, Array(Tuple(UInt8, String)))"
	if got.String() != want {
		t.Errorf("String() = %q, want %q", got.String(), want)
	}
}
