package wireio_test

import (
	"bytes"
	"testing"
	"testing/quick"

	"github.com/clickhouse-wire/chwire/internal/wireio"
)

func TestPrimitivesRoundTrip(t *testing.T) {
	f := func(u8 uint8, u16 uint16, u32 uint32, u64 uint64, s string) bool {
		buf := bytes.NewBuffer(nil)
		w := wireio.NewWriter(buf)
		if err := w.WriteUint8(u8); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteUint16(u16); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteUint32(u32); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteUint64(u64); err != nil {
			t.Fatal(err)
		}
		if err := w.WriteString(s); err != nil {
			t.Fatal(err)
		}

		r := wireio.NewReader(buf)
		gu8, err := r.ReadUint8()
		if err != nil || gu8 != u8 {
			return false
		}
		gu16, err := r.ReadUint16()
		if err != nil || gu16 != u16 {
			return false
		}
		gu32, err := r.ReadUint32()
		if err != nil || gu32 != u32 {
			return false
		}
		gu64, err := r.ReadUint64()
		if err != nil || gu64 != u64 {
			return false
		}
		gs, err := r.ReadString()
		if err != nil || gs != s {
			return false
		}
		return true
	}

	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	codecs := []wireio.Codec{wireio.CodecNone, wireio.CodecLZ4, wireio.CodecZSTD}
	payloads := [][]byte{
		nil,
		[]byte("x"),
		bytes.Repeat([]byte("clickhouse native block payload "), 200),
	}

	for _, codec := range codecs {
		for _, payload := range payloads {
			encoded, err := wireio.EncodeFrame(codec, payload)
			if err != nil {
				t.Fatalf("EncodeFrame(codec=0x%02x) failed: %v", codec, err)
			}
			decoded, err := wireio.DecodeFrame(bytes.NewReader(encoded))
			if err != nil {
				t.Fatalf("DecodeFrame(codec=0x%02x) failed: %v", codec, err)
			}
			if !bytes.Equal(decoded, payload) {
				t.Fatalf("codec=0x%02x: round trip mismatch: got %d bytes, want %d bytes", codec, len(decoded), len(payload))
			}
		}
	}
}

func TestFrameRejectsCorruptChecksum(t *testing.T) {
	encoded, err := wireio.EncodeFrame(wireio.CodecLZ4, []byte("some data to protect"))
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	encoded[0] ^= 0xFF

	if _, err := wireio.DecodeFrame(bytes.NewReader(encoded)); err == nil {
		t.Fatal("expected checksum mismatch error, got nil")
	}
}
