package wireio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/clickhouse-wire/chwire/internal/cityhash"
)

// Codec selects the compression algorithm of a Native block frame.
type Codec uint8

const (
	CodecNone Codec = 0x02
	CodecLZ4  Codec = 0x82
	CodecZSTD Codec = 0x90
)

// frameSubHeaderSize is the codec byte plus the two u32 size fields that
// precede the compressed payload and are themselves covered by the
// checksum.
const frameSubHeaderSize = 1 + 4 + 4

var zstdEncoder *zstd.Encoder
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic(fmt.Sprintf("wireio: failed to init zstd encoder: %v", err))
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("wireio: failed to init zstd decoder: %v", err))
	}
}

// EncodeFrame compresses data with codec and returns the full 25-byte
// checksum+sub-header framed block ClickHouse writes ahead of a Native
// block's columns: a 16-byte CityHash128 checksum over everything that
// follows, the 1-byte codec tag, the u32 LE compressed size (including
// this 9-byte sub-header), and the u32 LE uncompressed size.
func EncodeFrame(codec Codec, data []byte) ([]byte, error) {
	var compressed []byte
	switch codec {
	case CodecNone:
		compressed = data
	case CodecLZ4:
		buf := bytes.NewBuffer(nil)
		zw := lz4.NewWriter(buf)
		if _, err := zw.Write(data); err != nil {
			return nil, newEncodingError(fmt.Sprintf("lz4 compress: %v", err))
		}
		if err := zw.Close(); err != nil {
			return nil, newEncodingError(fmt.Sprintf("lz4 compress: %v", err))
		}
		compressed = buf.Bytes()
	case CodecZSTD:
		compressed = zstdEncoder.EncodeAll(data, nil)
	default:
		return nil, newEncodingError(fmt.Sprintf("unknown codec 0x%02x", codec))
	}

	subHeader := make([]byte, frameSubHeaderSize)
	subHeader[0] = byte(codec)
	binary.LittleEndian.PutUint32(subHeader[1:5], uint32(len(compressed)+frameSubHeaderSize))
	binary.LittleEndian.PutUint32(subHeader[5:9], uint32(len(data)))

	checked := append(subHeader, compressed...)
	sum := cityhash.Sum128(checked)

	out := make([]byte, 16+len(checked))
	checksum := sum.Bytes()
	copy(out[:16], checksum[:])
	copy(out[16:], checked)
	return out, nil
}

// DecodeFrame reads one checksum+sub-header framed block from r, verifies
// its checksum, and returns the decompressed payload.
func DecodeFrame(r io.Reader) ([]byte, error) {
	var checksumBytes [16]byte
	if _, err := io.ReadFull(r, checksumBytes[:]); err != nil {
		return nil, err
	}

	var subHeader [frameSubHeaderSize]byte
	if _, err := io.ReadFull(r, subHeader[:]); err != nil {
		return nil, newIoError("reading frame sub-header", err)
	}
	codec := Codec(subHeader[0])
	compressedSize := binary.LittleEndian.Uint32(subHeader[1:5])
	uncompressedSize := binary.LittleEndian.Uint32(subHeader[5:9])

	if compressedSize < frameSubHeaderSize {
		return nil, newDecodingError(fmt.Sprintf("frame compressed size %d smaller than sub-header", compressedSize))
	}
	payload := make([]byte, compressedSize-frameSubHeaderSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, newIoError("reading frame payload", err)
	}

	checked := make([]byte, 0, len(subHeader)+len(payload))
	checked = append(checked, subHeader[:]...)
	checked = append(checked, payload...)
	want := cityhash.FromBytes(checksumBytes[:])
	got := cityhash.Sum128(checked)
	if want != got {
		return nil, newDecodingError("frame checksum mismatch")
	}

	switch codec {
	case CodecNone:
		if uint32(len(payload)) != uncompressedSize {
			return nil, newDecodingError(fmt.Sprintf("uncompressed frame size mismatch: header says %d, payload is %d", uncompressedSize, len(payload)))
		}
		return payload, nil
	case CodecLZ4:
		out := make([]byte, uncompressedSize)
		zr := lz4.NewReader(bytes.NewReader(payload))
		if _, err := io.ReadFull(zr, out); err != nil {
			return nil, newDecodingError(fmt.Sprintf("lz4 decompress: %v", err))
		}
		return out, nil
	case CodecZSTD:
		out, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, newDecodingError(fmt.Sprintf("zstd decompress: %v", err))
		}
		return out, nil
	default:
		return nil, newDecodingError(fmt.Sprintf("unknown codec 0x%02x", codec))
	}
}
