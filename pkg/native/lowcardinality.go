package native

import (
	"fmt"

	"github.com/clickhouse-wire/chwire/internal/wireio"
	"github.com/clickhouse-wire/chwire/pkg/chtype"
	"github.com/clickhouse-wire/chwire/pkg/chvalue"
)

// lowCardinalityVersion is the only keys-serialization version this
// library emits or accepts: SharedDictionariesWithAdditionalKeys, the
// version the server uses for every block in a Native stream (each block
// carries its own dictionary rather than referencing a global one).
const lowCardinalityVersion uint64 = 1

// lcIndexWidthMask, lcHasAdditionalKeysBit, and lcNeedGlobalDictionaryBit
// are the bit positions ClickHouse packs into the flags word ahead of a
// LowCardinality column's dictionary: low byte is the index width code,
// bit 9 says the block's own dictionary follows instead of a reference
// into a global one, bit 8 would request that global dictionary (never
// set here: Native blocks are always self-contained per spec.md §4.9).
const (
	lcIndexWidthMask          = 0xFF
	lcNeedGlobalDictionaryBit = 1 << 8
	lcHasAdditionalKeysBit    = 1 << 9
	lcNeedUpdateDictionaryBit = 1 << 10
)

const (
	lcIndexWidthU8  = 0
	lcIndexWidthU16 = 1
	lcIndexWidthU32 = 2
	lcIndexWidthU64 = 3
)

// EncodeLowCardinalityColumn writes the version marker, flags word,
// dictionary, and index array of one LowCardinality(T) column's block of
// values, per spec.md §4.6.1. The dictionary is built fresh from values
// and always reserves slot 0 for the inner type's default value (or the
// null representative, when the inner type is Nullable); it is not
// carried over from any previous block.
func EncodeLowCardinalityColumn(w *wireio.Writer, t *chtype.TypeDesc, values []chvalue.Value) error {
	innerType, nullable := lowCardinalityInner(t)

	dict := []chvalue.Value{defaultValue(innerType)}
	index := make([]uint64, len(values))
	seen := map[string]uint64{dictKey(dict[0]): 0}

	for i, v := range values {
		cell := v
		if nullable {
			if v.Kind == chvalue.KindNull || (v.Kind == chvalue.KindNullable && v.Inner == nil) {
				index[i] = 0
				continue
			}
			if v.Kind == chvalue.KindNullable && v.Inner != nil {
				cell = *v.Inner
			}
		}
		key := dictKey(cell)
		idx, ok := seen[key]
		if !ok {
			idx = uint64(len(dict))
			dict = append(dict, cell)
			seen[key] = idx
		}
		index[i] = idx
	}

	widthCode, width := lowCardinalityIndexWidth(uint64(len(dict)))
	flags := uint64(widthCode)&lcIndexWidthMask | lcHasAdditionalKeysBit

	if err := w.WriteUint64(lowCardinalityVersion); err != nil {
		return err
	}
	if err := w.WriteUint64(flags); err != nil {
		return err
	}
	if err := w.WriteUint64(uint64(len(dict))); err != nil {
		return err
	}
	if err := EncodeColumnData(w, innerType, dict); err != nil {
		return fmt.Errorf("native: LowCardinality dictionary: %w", err)
	}
	if err := w.WriteUint64(uint64(len(values))); err != nil {
		return err
	}
	for _, idx := range index {
		if err := writeIndexValue(w, width, idx); err != nil {
			return err
		}
	}
	return nil
}

// DecodeLowCardinalityColumn is the mirror of EncodeLowCardinalityColumn.
func DecodeLowCardinalityColumn(r *wireio.Reader, t *chtype.TypeDesc, numRows int) ([]chvalue.Value, error) {
	innerType, nullable := lowCardinalityInner(t)

	version, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	if version != lowCardinalityVersion {
		return nil, &wireio.DecodingError{Reason: fmt.Sprintf("unsupported LowCardinality keys-serialization version %d", version)}
	}
	flags, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	widthCode := int(flags & lcIndexWidthMask)
	width, err := indexWidthBytes(widthCode)
	if err != nil {
		return nil, err
	}
	numKeys, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	dict, err := DecodeColumnData(r, innerType, int(numKeys))
	if err != nil {
		return nil, fmt.Errorf("native: LowCardinality dictionary: %w", err)
	}
	wireRows, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	if int(wireRows) != numRows {
		return nil, &wireio.DecodingError{Reason: fmt.Sprintf("LowCardinality row count %d disagrees with block row count %d", wireRows, numRows)}
	}

	out := make([]chvalue.Value, numRows)
	for i := range out {
		idx, err := readIndexValue(r, width)
		if err != nil {
			return nil, err
		}
		if idx >= uint64(len(dict)) {
			return nil, &wireio.DecodingError{Reason: fmt.Sprintf("LowCardinality index %d out of range [0,%d)", idx, len(dict))}
		}
		cell := dict[idx]
		if nullable {
			if idx == 0 {
				out[i] = chvalue.Null()
			} else {
				out[i] = chvalue.NullableOf(cell)
			}
		} else {
			out[i] = cell
		}
	}
	return out, nil
}

// lowCardinalityInner splits t.Elem into the non-Nullable value type the
// dictionary actually stores and whether slot 0 doubles as the null
// representative.
func lowCardinalityInner(t *chtype.TypeDesc) (*chtype.TypeDesc, bool) {
	if t.Elem.Kind == chtype.KindNullable {
		return t.Elem.Elem, true
	}
	return t.Elem, false
}

// lowCardinalityIndexWidth picks the smallest index width whose range
// covers a dictionary of the given size, the auto-upgrade rule from
// spec.md §4.6.1 and §8.1.
func lowCardinalityIndexWidth(dictSize uint64) (code int, width int) {
	switch {
	case dictSize <= 1<<8:
		return lcIndexWidthU8, 1
	case dictSize <= 1<<16:
		return lcIndexWidthU16, 2
	case dictSize <= 1<<32:
		return lcIndexWidthU32, 4
	default:
		return lcIndexWidthU64, 8
	}
}

func indexWidthBytes(code int) (int, error) {
	switch code {
	case lcIndexWidthU8:
		return 1, nil
	case lcIndexWidthU16:
		return 2, nil
	case lcIndexWidthU32:
		return 4, nil
	case lcIndexWidthU64:
		return 8, nil
	default:
		return 0, &wireio.DecodingError{Reason: fmt.Sprintf("unknown LowCardinality index width code %d", code)}
	}
}

func writeIndexValue(w *wireio.Writer, width int, v uint64) error {
	switch width {
	case 1:
		return w.WriteUint8(uint8(v))
	case 2:
		return w.WriteUint16(uint16(v))
	case 4:
		return w.WriteUint32(uint32(v))
	default:
		return w.WriteUint64(v)
	}
}

func readIndexValue(r *wireio.Reader, width int) (uint64, error) {
	switch width {
	case 1:
		v, err := r.ReadUint8()
		return uint64(v), err
	case 2:
		v, err := r.ReadUint16()
		return uint64(v), err
	case 4:
		v, err := r.ReadUint32()
		return uint64(v), err
	default:
		return r.ReadUint64()
	}
}

// dictKey renders v as a comparable map key for dictionary dedup. It only
// needs to be injective over the value shapes LowCardinality's invariant
// (spec.md §3.1) allows as dictionary elements: integers, floats, String,
// FixedString, Date/Date32/DateTime, UUID, IPv4/IPv6 — none of which are
// themselves composite, so a type-tagged fmt rendering is exact.
func dictKey(v chvalue.Value) string {
	switch v.Kind {
	case chvalue.KindString, chvalue.KindFixedString:
		return fmt.Sprintf("s:%s", v.Str)
	case chvalue.KindUUID:
		return fmt.Sprintf("u:%s", v.UUID.String())
	case chvalue.KindIPv4:
		return fmt.Sprintf("4:%s", v.IPv4.String())
	case chvalue.KindIPv6:
		return fmt.Sprintf("6:%s", v.IPv6.String())
	default:
		return fmt.Sprintf("%d:%v:%v:%v:%v:%v:%v:%x", v.Kind, v.U64, v.I64, v.F64, v.U32, v.I32, v.Bool, v.Wide)
	}
}
