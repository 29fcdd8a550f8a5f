// Package nufxio provides the little-endian primitives, CRC-16, and TimeRec
// codec that the rest of the archive engine is built on.
package nufxio

import (
	"encoding/binary"
	"io"
)

// ReadUint8 reads a single byte.
func ReadUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16LE reads a little-endian uint16.
func ReadUint16LE(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// ReadUint32LE reads a little-endian uint32.
func ReadUint32LE(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// ReadBytes reads exactly n bytes.
func ReadBytes(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteUint8 writes a single byte.
func WriteUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

// WriteUint16LE writes a little-endian uint16.
func WriteUint16LE(w io.Writer, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// WriteUint32LE writes a little-endian uint32.
func WriteUint32LE(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

// PutUint16LE encodes v into dst[0:2].
func PutUint16LE(dst []byte, v uint16) {
	_ = dst[1]
	binary.LittleEndian.PutUint16(dst, v)
}

// PutUint32LE encodes v into dst[0:4].
func PutUint32LE(dst []byte, v uint32) {
	_ = dst[3]
	binary.LittleEndian.PutUint32(dst, v)
}

// Discard advances r by n bytes. If r implements io.Seeker the advance is a
// relative seek; otherwise the bytes are read and thrown away, which is the
// only option on a streaming (pipe) source.
func Discard(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(n, io.SeekCurrent)
		return err
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}
