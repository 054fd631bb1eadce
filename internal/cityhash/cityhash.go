// Package cityhash implements the CityHash128 (v1.0.2) hash used by
// ClickHouse to checksum compressed Native block frames.
//
// No repository in the reference pack carries a CityHash implementation, so
// this is a from-scratch Go port of the public CityHash v1.0.2 algorithm
// (the variant ClickHouse embeds as clickhouse_cityhash102) rather than an
// adaptation of existing pack code. See DESIGN.md.
package cityhash

import "encoding/binary"

const (
	k0 uint64 = 0xc3a5c85c97cb3127
	k1 uint64 = 0xb492b66fbe98f273
	k2 uint64 = 0x9ae16a3b2f90404f
	k3 uint64 = 0xc949d7c7509e6557
)

// Hash128 is a 128-bit hash value, stored as low/high 64-bit halves the way
// ClickHouse lays out its checksum field.
type Hash128 struct {
	Low  uint64
	High uint64
}

// Bytes returns the 16-byte little-endian wire encoding: Low then High.
func (h Hash128) Bytes() [16]byte {
	var out [16]byte
	binary.LittleEndian.PutUint64(out[0:8], h.Low)
	binary.LittleEndian.PutUint64(out[8:16], h.High)
	return out
}

// FromBytes reconstructs a Hash128 from its 16-byte little-endian encoding.
func FromBytes(b []byte) Hash128 {
	return Hash128{
		Low:  binary.LittleEndian.Uint64(b[0:8]),
		High: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// Sum128 computes the unseeded CityHash128 of data.
func Sum128(data []byte) Hash128 {
	n := len(data)
	if n >= 16 {
		return cityHash128WithSeed(data[16:], Hash128{
			Low:  fetch64(data) ^ k3,
			High: fetch64(data[8:]),
		})
	}
	if n >= 8 {
		return cityHash128WithSeed(nil, Hash128{
			Low:  fetch64(data) ^ (uint64(n) * k0),
			High: fetch64(data[n-8:]) ^ k1,
		})
	}
	return cityHash128WithSeed(data, Hash128{Low: k0, High: k1})
}

func fetch64(p []byte) uint64 {
	return binary.LittleEndian.Uint64(p)
}

func fetch32(p []byte) uint32 {
	return binary.LittleEndian.Uint32(p)
}

func rotate64(val uint64, shift uint) uint64 {
	if shift == 0 {
		return val
	}
	return (val >> shift) | (val << (64 - shift))
}

func shiftMix(val uint64) uint64 {
	return val ^ (val >> 47)
}

func hash128to64(x Hash128) uint64 {
	const mul uint64 = 0x9ddfea08eb382d69
	a := (x.Low ^ x.High) * mul
	a ^= a >> 47
	b := (x.High ^ a) * mul
	b ^= b >> 47
	b *= mul
	return b
}

func hashLen16(u, v uint64) uint64 {
	return hash128to64(Hash128{Low: u, High: v})
}

func hashLen16Mul(u, v, mul uint64) uint64 {
	a := (u ^ v) * mul
	a ^= a >> 47
	b := (v ^ a) * mul
	b ^= b >> 47
	b *= mul
	return b
}

func hashLen0to16(data []byte) uint64 {
	n := len(data)
	if n >= 8 {
		mul := k2 + uint64(n)*2
		a := fetch64(data) + k2
		b := fetch64(data[n-8:])
		c := rotate64(b, 37)*mul + a
		d := (rotate64(a, 25) + b) * mul
		return hashLen16Mul(c, d, mul)
	}
	if n >= 4 {
		mul := k2 + uint64(n)*2
		a := uint64(fetch32(data))
		return hashLen16Mul(uint64(n)+(a<<3), uint64(fetch32(data[n-4:])), mul)
	}
	if n > 0 {
		a := data[0]
		b := data[n>>1]
		c := data[n-1]
		y := uint32(a) + uint32(b)<<8
		z := uint32(n) + uint32(c)<<2
		return shiftMix(uint64(y)*k2^uint64(z)*k3) * k2
	}
	return k2
}

type pair struct{ first, second uint64 }

func weakHashLen32WithSeeds(w, x, y, z, a, b uint64) pair {
	a += w
	b = rotate64(b+a+z, 21)
	c := a
	a += x
	a += y
	b += rotate64(a, 44)
	return pair{first: a + z, second: b + c}
}

func weakHashLen32WithSeedsBytes(data []byte, a, b uint64) pair {
	return weakHashLen32WithSeeds(fetch64(data), fetch64(data[8:]), fetch64(data[16:]), fetch64(data[24:]), a, b)
}

func cityMurmur(data []byte, seed Hash128) Hash128 {
	a := seed.Low
	b := seed.High
	var c, d uint64
	n := len(data)

	if n <= 16 {
		a = shiftMix(a*k1) * k1
		c = b*k1 + hashLen0to16(data)
		if n >= 8 {
			d = shiftMix(a + fetch64(data))
		} else {
			d = shiftMix(a + c)
		}
	} else {
		c = hashLen16(fetch64(data[n-8:])+k1, a)
		d = hashLen16(b+uint64(n), c+fetch64(data[n-16:]))
		a += d
		for len(data) > 16 {
			a = (a ^ (shiftMix(fetch64(data)*k1) * k1)) * k1
			c ^= a
			b = (b ^ (shiftMix(fetch64(data[8:])*k1) * k1)) * k1
			d ^= b
			data = data[16:]
			n -= 16
		}
	}
	a = hashLen16(a, c)
	b = hashLen16(d, b)
	return Hash128{Low: a ^ b, High: hashLen16(b, a)}
}

func cityHash128WithSeed(data []byte, seed Hash128) Hash128 {
	n := len(data)
	if n < 128 {
		return cityMurmur(data, seed)
	}

	var v, w pair
	x := seed.Low
	y := seed.High
	z := uint64(n) * k1
	v.first = rotate64(y^k1, 49)*k1 + fetch64(data)
	v.second = rotate64(v.first, 42)*k1 + fetch64(data[8:])
	w.first = rotate64(y+z, 35)*k1 + x
	w.second = rotate64(x+fetch64(data[88:]), 53) * k1

	rest := data
	for len(rest) >= 128 {
		x = rotate64(x+y+v.first+fetch64(rest[8:]), 37) * k1
		y = rotate64(y+v.second+fetch64(rest[48:]), 42) * k1
		x ^= w.second
		y += v.first + fetch64(rest[40:])
		z = rotate64(z+w.first, 33) * k1
		v = weakHashLen32WithSeedsBytes(rest, v.second*k1, x+w.first)
		w = weakHashLen32WithSeedsBytes(rest[32:], z+w.second, y)
		x, z = z, x
		rest = rest[64:]

		x = rotate64(x+y+v.first+fetch64(rest[8:]), 37) * k1
		y = rotate64(y+v.second+fetch64(rest[48:]), 42) * k1
		x ^= w.second
		y += v.first + fetch64(rest[40:])
		z = rotate64(z+w.first, 33) * k1
		v = weakHashLen32WithSeedsBytes(rest, v.second*k1, x+w.first)
		w = weakHashLen32WithSeedsBytes(rest[32:], z+w.second, y)
		x, z = z, x
		rest = rest[64:]
		n -= 128
	}

	x += rotate64(v.first+z, 49) * k0
	y = y*k0 + rotate64(w.second, 37)
	z = z*k0 + rotate64(w.first, 27)
	w.first *= 9
	v.first *= k0

	// The tail is hashed in up to four 32-byte chunks counted back from the
	// end of the full input, which may overlap the last full 128-byte block
	// already folded into x/y/z/v/w above.
	for tailDone := 0; tailDone < n; {
		tailDone += 32
		y = rotate64(x+y, 42)*k0 + v.second
		w.first += fetch64(data[len(data)-tailDone+16:])
		x = x*k0 + w.first
		z += w.second + fetch64(data[len(data)-tailDone:])
		w.second += v.first
		v = weakHashLen32WithSeedsBytes(data[len(data)-tailDone:], v.first+z, v.second)
		v.first *= k0
	}

	x = hashLen16(x, v.first)
	y = hashLen16(y+z, w.first)
	return Hash128{
		Low:  hashLen16(x+v.second, w.second) + y,
		High: hashLen16(x+w.second, y+v.second),
	}
}
