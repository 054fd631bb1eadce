package cityhash_test

import (
	"bytes"
	"testing"

	"github.com/clickhouse-wire/chwire/internal/cityhash"
)

func TestSum128Deterministic(t *testing.T) {
	lengths := []int{0, 1, 7, 8, 15, 16, 17, 31, 32, 63, 64, 127, 128, 129, 255, 256, 1000, 4096}
	for _, n := range lengths {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i * 37 % 251)
		}

		a := cityhash.Sum128(data)
		b := cityhash.Sum128(bytes.Clone(data))
		if a != b {
			t.Fatalf("len=%d: hash not deterministic: %v != %v", n, a, b)
		}
	}
}

func TestSum128BytesRoundTrip(t *testing.T) {
	h := cityhash.Sum128([]byte("clickhouse native block checksum"))
	round := cityhash.FromBytes(h.Bytes())
	if round != h {
		t.Fatalf("round trip mismatch: %v != %v", round, h)
	}
}

func TestSum128DiffersOnBitFlip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, 0123456789, repeated for length")
	base := cityhash.Sum128(data)

	flipped := bytes.Clone(data)
	flipped[len(flipped)/2] ^= 0x01
	other := cityhash.Sum128(flipped)

	if base == other {
		t.Fatalf("expected different hashes after single bit flip")
	}
}
