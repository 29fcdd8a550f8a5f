// Package codec implements the NuFX thread compression formats: Store,
// SQ (Huffman+RLE), LZW/1, LZW/2, and optional LZC/deflate/bzip2 plugins,
// all behind one Codec interface.
package codec

import (
	"io"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
)

// ThreadFormat is the on-disk thread compression selector (the "format"
// field of a NuFX thread header).
type ThreadFormat uint16

const (
	FormatUncompressed ThreadFormat = 0x0000
	FormatHuffmanSQ     ThreadFormat = 0x0001
	FormatLZW1          ThreadFormat = 0x0002
	FormatLZW2          ThreadFormat = 0x0003
	FormatUnix12        ThreadFormat = 0x0004 // LZC-12
	FormatUnix16        ThreadFormat = 0x0005 // LZC-16
	FormatDeflate       ThreadFormat = 0x0006 // optional plugin, not part of NuFX spec proper
	FormatBzip2         ThreadFormat = 0x0007 // optional plugin, decode-only
)

// Result carries the length/CRC pair every codec operation must report.
// Length is always the *uncompressed* byte count (what NuFX calls
// threadEOF), matching what Decode's caller passes back in as
// expectedLen; CompLength is the number of bytes actually written to
// dst by Encode, i.e. the on-disk compressed size (threadCompEOF).
type Result struct {
	Length     uint32 // uncompressed bytes (threadEOF)
	CompLength uint32 // compressed bytes written to dst by Encode
	CRC        uint16 // CRC-16 of the *uncompressed* stream
}

// Codec encodes and decodes one thread compression format.
type Codec interface {
	// Encode reads uncompressed bytes from src until EOF (or until limit
	// bytes have been read, if limit >= 0) and writes the compressed form
	// to dst. It returns the uncompressed byte count (Length), the
	// compressed byte count written to dst (CompLength), and the CRC-16
	// of the uncompressed stream.
	Encode(dst io.Writer, src io.Reader, limit int64) (Result, error)

	// Decode reads compressed bytes from src and writes exactly
	// expectedLen uncompressed bytes to dst (or, for formats that do not
	// store a length, until the format's own terminator). It returns the
	// number of uncompressed bytes written (Length) and their CRC-16.
	Decode(dst io.Writer, src io.Reader, expectedLen int64) (Result, error)
}

// Registry maps thread formats to their codec implementation.
type Registry struct {
	codecs map[ThreadFormat]Codec
}

// NewRegistry builds a Registry pre-populated with the mandatory formats
// (Store, SQ, LZW/1, LZW/2) plus the optional plugins that this build was
// compiled with.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[ThreadFormat]Codec)}
	r.Register(FormatUncompressed, StoreCodec{})
	r.Register(FormatHuffmanSQ, SQCodec{})
	r.Register(FormatLZW1, NewLZWCodec(Dialect1))
	r.Register(FormatLZW2, NewLZWCodec(Dialect2))
	r.Register(FormatUnix12, lzcCodec{bits: 12})
	r.Register(FormatUnix16, lzcCodec{bits: 16})
	r.Register(FormatDeflate, DeflateCodec{})
	r.Register(FormatBzip2, Bzip2Codec{})
	return r
}

// Register installs or replaces the codec for a thread format, allowing
// callers to plug in additional backends (e.g. a real bzip2 encoder).
func (r *Registry) Register(format ThreadFormat, c Codec) {
	r.codecs[format] = c
}

// Lookup returns the codec registered for format.
func (r *Registry) Lookup(format ThreadFormat) (Codec, error) {
	c, ok := r.codecs[format]
	if !ok {
		return nil, nufxerr.New(nufxerr.KindBadFormat, "no codec registered for this thread format")
	}
	return c, nil
}

// StoreCodec is the identity transform: it copies bytes through unchanged
// while accumulating a CRC-16.
type StoreCodec struct{}

func (StoreCodec) Encode(dst io.Writer, src io.Reader, limit int64) (Result, error) {
	return copyWithCRC(dst, src, limit)
}

func (StoreCodec) Decode(dst io.Writer, src io.Reader, expectedLen int64) (Result, error) {
	return copyWithCRC(dst, src, expectedLen)
}

func copyWithCRC(dst io.Writer, src io.Reader, limit int64) (Result, error) {
	var res Result
	buf := make([]byte, 32*1024)
	remaining := limit
	unbounded := limit < 0
	for unbounded || remaining > 0 {
		chunk := len(buf)
		if !unbounded && int64(chunk) > remaining {
			chunk = int(remaining)
		}
		n, err := src.Read(buf[:chunk])
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return res, nufxerr.Wrap(nufxerr.KindFileWrite, werr, "store codec")
			}
			res.CRC = crcUpdate(res.CRC, buf[:n])
			res.Length += uint32(n)
			res.CompLength += uint32(n)
			if !unbounded {
				remaining -= int64(n)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return res, nufxerr.Wrap(nufxerr.KindFileRead, err, "store codec")
		}
		if n == 0 && err == nil {
			break
		}
	}
	return res, nil
}
