// Package wireio provides the low-level primitive and compression-frame
// codecs shared by pkg/rowbinary and pkg/native: little-endian fixed-width
// integers and floats, LEB128 unsigned varints, length-prefixed byte
// strings, and the LZ4/ZSTD compression envelope used by Native blocks.
package wireio

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer accumulates encoded bytes for a single RowBinary row or Native
// column and tracks how many bytes have been written so far.
type Writer struct {
	w      io.Writer
	offset uint64
}

// NewWriter wraps w for primitive writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Offset reports the number of bytes written through w so far.
func (w *Writer) Offset() uint64 {
	return w.offset
}

// Write writes p verbatim, with no framing.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.offset += uint64(n)
	return n, err
}

// WriteUvarint writes an LEB128-encoded unsigned integer, the framing
// ClickHouse uses for string lengths, array lengths, and column/row
// counts.
func (w *Writer) WriteUvarint(value uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], value)
	_, err := w.Write(buf[:n])
	return err
}

// WriteBytes writes a uvarint length prefix followed by data, the shape
// of a ClickHouse String value or a Native column name/type string.
func (w *Writer) WriteBytes(data []byte) error {
	if err := w.WriteUvarint(uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// WriteString is WriteBytes for a Go string, avoiding a throwaway []byte
// copy at call sites that already hold a string.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func (w *Writer) WriteUint8(v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func (w *Writer) WriteInt8(v int8) error {
	return w.WriteUint8(uint8(v))
}

func (w *Writer) WriteUint16(v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func (w *Writer) WriteInt16(v int16) error {
	return w.WriteUint16(uint16(v))
}

func (w *Writer) WriteUint32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func (w *Writer) WriteInt32(v int32) error {
	return w.WriteUint32(uint32(v))
}

func (w *Writer) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func (w *Writer) WriteInt64(v int64) error {
	return w.WriteUint64(uint64(v))
}

func (w *Writer) WriteFloat32(v float32) error {
	return w.WriteUint32(math.Float32bits(v))
}

func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteUint64(math.Float64bits(v))
}

// Reader decodes primitives from a ClickHouse wire stream. Unlike the
// archive format this is adapted from, ReadBytes/ReadUint* report
// io.EOF cleanly at a value boundary so streaming row readers can detect
// end-of-stream without a sentinel row count.
type Reader struct {
	r io.Reader
}

// NewReader wraps r for primitive reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (r *Reader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

// ReadByte satisfies io.ByteReader, required by binary.ReadUvarint.
func (r *Reader) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(r.r, buf[:])
	return buf[0], err
}

func (r *Reader) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(r)
}

func (r *Reader) ReadBytes() ([]byte, error) {
	length, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Reader) ReadString() (string, error) {
	data, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	var buf [1]byte
	_, err := io.ReadFull(r.r, buf[:])
	return buf[0], err
}

func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}
