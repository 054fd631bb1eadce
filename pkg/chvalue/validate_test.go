package chvalue_test

import (
	"testing"

	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
)

func mustParse(t *testing.T, s string) *chtype.TypeDesc {
	ty, err := chtype.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", s, err)
	}
	return ty
}

func TestValidate_Accepts(t *testing.T) {
	cases := []struct {
		ty  string
		val chvalue.Value
	}{
		{"UInt8", chvalue.Value{Kind: chvalue.KindUInt8, U8: 5}},
		{"String", chvalue.Value{Kind: chvalue.KindString, Str: []byte("hi")}},
		{"Nullable(String)", chvalue.Null()},
		{"Nullable(String)", chvalue.NullableOf(chvalue.Value{Kind: chvalue.KindString, Str: []byte("x")})},
		{"Array(UInt8)", chvalue.Value{Kind: chvalue.KindArray, Items: []chvalue.Value{
			{Kind: chvalue.KindUInt8, U8: 1},
			{Kind: chvalue.KindUInt8, U8: 2},
		}}},
		{"Tuple(UInt8, String)", chvalue.Value{Kind: chvalue.KindTuple, Items: []chvalue.Value{
			{Kind: chvalue.KindUInt8, U8: 1},
			{Kind: chvalue.KindString, Str: []byte("x")},
		}}},
		{"Map(String, UInt8)", chvalue.Value{Kind: chvalue.KindMap, Pairs: []chvalue.MapEntry{
			{Key: chvalue.Value{Kind: chvalue.KindString, Str: []byte("k")}, Value: chvalue.Value{Kind: chvalue.KindUInt8, U8: 9}},
		}}},
		{"Enum8('a' = 1, 'b' = 2)", chvalue.Value{Kind: chvalue.KindEnum, EnumName: "a"}},
		{"LowCardinality(String)", chvalue.Value{Kind: chvalue.KindString, Str: []byte("x")}},
	}

	for _, tc := range cases {
		t.Run(tc.ty, func(t *testing.T) {
			ty := mustParse(t, tc.ty)
			if err := chvalue.Validate(ty, tc.val); err != nil {
				t.Errorf("Validate(%s, ...) returned error: %v", tc.ty, err)
			}
		})
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		ty   string
		val  chvalue.Value
	}{
		{"wrong kind", "UInt8", chvalue.Value{Kind: chvalue.KindString, Str: []byte("x")}},
		{"tuple arity", "Tuple(UInt8, String)", chvalue.Value{Kind: chvalue.KindTuple, Items: []chvalue.Value{
			{Kind: chvalue.KindUInt8, U8: 1},
		}}},
		{"fixed string length", "FixedString(4)", chvalue.Value{Kind: chvalue.KindFixedString, Str: []byte("ab")}},
		{"unknown enum variant", "Enum8('a' = 1)", chvalue.Value{Kind: chvalue.KindEnum, EnumName: "z"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ty := mustParse(t, tc.ty)
			if err := chvalue.Validate(ty, tc.val); err == nil {
				t.Errorf("Validate(%s, ...) expected error, got nil", tc.ty)
			}
		})
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	v, err := chvalue.UUIDFromString("01234567-89ab-cdef-0123-456789abcdef")
	if err != nil {
		t.Fatalf("UUIDFromString failed: %v", err)
	}
	if got := chvalue.UUIDToString(v); got != "01234567-89ab-cdef-0123-456789abcdef" {
		t.Errorf("UUIDToString = %q", got)
	}
}
