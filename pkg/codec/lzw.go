package codec

import (
	"bytes"
	"io"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
)

// Dialect selects between ShrinkIt's two chunked LZW variants.
type Dialect int

const (
	// Dialect1 includes a per-chunk CRC-16 in the chunk header.
	Dialect1 Dialect = iota
	// Dialect2 omits the per-chunk CRC.
	Dialect2
)

const (
	lzwChunkSize    = 4096
	lzwClearCode    = 0x100
	lzwFirstFree    = 0x101
	lzwMaxBits      = 12
	lzwMaxCode      = 1 << lzwMaxBits
	lzwDefaultDelim = 0xDB
	lzwStoredFlag   = 0x01
)

// LZWCodec implements the chunked ShrinkIt LZW/1 and LZW/2 dialects: each
// 4096-byte chunk of the original stream is first RLE-compressed, then
// passed through a variable-width (9-12 bit) LZW stage, with a per-chunk
// fallback to verbatim storage when compression does not shrink the
// chunk. Every chunk's bitstream is independently byte-aligned (flushed),
// so chunks can be decoded one at a time directly off the archive stream
// without needing an explicit compressed-length field per chunk.
type LZWCodec struct {
	dialect Dialect
	delim   byte
}

// NewLZWCodec builds a codec for the given ShrinkIt LZW dialect using the
// conventional 0xDB RLE delimiter.
func NewLZWCodec(d Dialect) *LZWCodec {
	return &LZWCodec{dialect: d, delim: lzwDefaultDelim}
}

// chunkHeader is the 4-byte per-chunk envelope: a 16-bit CRC-or-reserved
// field, a flag byte (bit0 = stored verbatim), and the RLE delimiter used
// for this chunk.
type chunkHeader struct {
	crcOrReserved uint16
	flags         byte
	delim         byte
}

func (h chunkHeader) stored() bool { return h.flags&lzwStoredFlag != 0 }

func writeChunkHeader(w io.Writer, h chunkHeader) error {
	b := []byte{byte(h.crcOrReserved), byte(h.crcOrReserved >> 8), h.flags, h.delim}
	_, err := w.Write(b)
	return err
}

func readChunkHeader(r io.Reader) (chunkHeader, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return chunkHeader{}, err
	}
	return chunkHeader{
		crcOrReserved: uint16(b[0]) | uint16(b[1])<<8,
		flags:         b[2],
		delim:         b[3],
	}, nil
}

func (c *LZWCodec) Encode(dst io.Writer, src io.Reader, limit int64) (Result, error) {
	data, err := readAll(src, limit)
	if err != nil {
		return Result{}, err
	}
	var res Result
	res.CRC = crcUpdate(0, data)

	chunks := 1
	if len(data) > 0 {
		chunks = (len(data) + lzwChunkSize - 1) / lzwChunkSize
	}
	for i := 0; i < chunks; i++ {
		off := i * lzwChunkSize
		end := off + lzwChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]

		rle := rleEncode(chunk, c.delim)
		compressed := lzwCompress(rle)

		var hdr chunkHeader
		hdr.delim = c.delim
		var payload []byte
		if len(compressed) >= len(chunk) {
			hdr.flags |= lzwStoredFlag
			payload = chunk
		} else {
			payload = compressed
		}
		if c.dialect == Dialect1 {
			hdr.crcOrReserved = crcUpdate(0, chunk)
		}

		if err := writeChunkHeader(dst, hdr); err != nil {
			return res, nufxerr.Wrap(nufxerr.KindFileWrite, err, "lzw chunk header")
		}
		if _, err := dst.Write(payload); err != nil {
			return res, nufxerr.Wrap(nufxerr.KindFileWrite, err, "lzw chunk payload")
		}
		res.CompLength += uint32(4 + len(payload))
	}
	res.Length = uint32(len(data))
	return res, nil
}

func (c *LZWCodec) Decode(dst io.Writer, src io.Reader, expectedLen int64) (Result, error) {
	var res Result
	var all bytes.Buffer

	remaining := expectedLen
	for remaining > 0 {
		hdr, err := readChunkHeader(src)
		if err != nil {
			return res, nufxerr.Wrap(nufxerr.KindBadData, err, "lzw chunk header")
		}

		chunkOrig := lzwChunkSize
		if int64(chunkOrig) > remaining {
			chunkOrig = int(remaining)
		}

		var chunkBytes []byte
		if hdr.stored() {
			chunkBytes, err = readAll(src, int64(chunkOrig))
			if err != nil {
				return res, err
			}
		} else {
			chunkBytes, err = lzwDecodeChunk(src, chunkOrig, hdr.delim)
			if err != nil {
				return res, err
			}
		}

		if c.dialect == Dialect1 {
			gotCRC := crcUpdate(0, chunkBytes)
			if gotCRC != hdr.crcOrReserved {
				all.Write(chunkBytes)
				if _, werr := dst.Write(chunkBytes); werr != nil {
					return res, nufxerr.Wrap(nufxerr.KindFileWrite, werr, "lzw decode")
				}
				res.Length += uint32(len(chunkBytes))
				res.CRC = crcUpdate(0, all.Bytes())
				return res, nufxerr.New(nufxerr.KindBadDataCRC, "lzw chunk CRC mismatch")
			}
		}

		all.Write(chunkBytes)
		if _, werr := dst.Write(chunkBytes); werr != nil {
			return res, nufxerr.Wrap(nufxerr.KindFileWrite, werr, "lzw decode")
		}
		res.Length += uint32(len(chunkBytes))
		remaining -= int64(len(chunkBytes))
	}
	res.CRC = crcUpdate(0, all.Bytes())
	return res, nil
}

// lzwCompress runs the variable-width 9-12 bit LZW stage over data,
// starting from a fresh 256-entry dictionary and emitting a leading clear
// code, resetting the dictionary again whenever it fills before the chunk
// ends.
func lzwCompress(data []byte) []byte {
	var out bytes.Buffer
	bw := newBitWriter(&out)

	var dict map[string]int
	resetDict := func() {
		dict = make(map[string]int, lzwMaxCode)
		for i := 0; i < 256; i++ {
			dict[string([]byte{byte(i)})] = i
		}
	}
	resetDict()
	nextCode := lzwFirstFree
	codeWidth := uint(9)

	emit := func(code int) { _ = bw.WriteBits(uint32(code), codeWidth) }
	emit(lzwClearCode)

	if len(data) == 0 {
		_ = bw.Flush()
		return out.Bytes()
	}

	w := string(data[0:1])
	for i := 1; i < len(data); i++ {
		c := data[i : i+1]
		wc := w + string(c)
		if _, ok := dict[wc]; ok {
			w = wc
			continue
		}
		emit(dict[w])
		if nextCode < lzwMaxCode {
			dict[wc] = nextCode
			nextCode++
			if nextCode > (1<<codeWidth) && codeWidth < lzwMaxBits {
				codeWidth++
			}
		} else {
			emit(lzwClearCode)
			resetDict()
			nextCode = lzwFirstFree
			codeWidth = 9
		}
		w = string(c)
	}
	emit(dict[w])
	_ = bw.Flush()
	return out.Bytes()
}

// lzwDecodeChunk reads one chunk's worth of LZW-compressed, RLE-compressed
// bytes directly off r, stopping as soon as needed original bytes have
// been recovered through the RLE decode stage. Because the encoder
// byte-aligns at the end of every chunk, stopping early (mid final byte)
// still leaves r positioned correctly for the next chunk header: any
// unread bits of the last-read byte are padding the encoder emitted on
// purpose.
func lzwDecodeChunk(r io.Reader, needed int, delim byte) ([]byte, error) {
	br := newBitReader(r)
	rleOut := &bytes.Buffer{}
	decoded := &bytes.Buffer{}
	rd := newRLEDecoder(decoded, delim)

	var dict [][]byte
	resetDict := func() {
		// Index lzwClearCode (256) is reserved and never looked up here
		// (the clear code is handled separately below), but it must still
		// occupy a slot so the first new string lands at 257, matching
		// the encoder's nextCode := lzwFirstFree.
		dict = make([][]byte, lzwFirstFree, lzwMaxCode)
		for i := 0; i < 256; i++ {
			dict[i] = []byte{byte(i)}
		}
	}
	resetDict()
	codeWidth := uint(9)
	var prev []byte

	drain := func() error {
		for rleOut.Len() > 0 && decoded.Len() < needed {
			b, _ := rleOut.ReadByte()
			if err := rd.PutByte(b); err != nil {
				return err
			}
		}
		return nil
	}

	for decoded.Len() < needed {
		code, err := br.ReadBits(codeWidth)
		if err != nil {
			return nil, nufxerr.Wrap(nufxerr.KindBadData, err, "lzw bitstream")
		}
		if int(code) == lzwClearCode {
			resetDict()
			codeWidth = 9
			prev = nil
			continue
		}

		var entry []byte
		if int(code) < len(dict) {
			entry = dict[code]
		} else if int(code) == len(dict) && prev != nil {
			entry = append(append([]byte{}, prev...), prev[0])
		} else {
			return nil, nufxerr.New(nufxerr.KindBadData, "lzw invalid code")
		}

		rleOut.Write(entry)

		if prev != nil && len(dict) < lzwMaxCode {
			newEntry := append(append([]byte{}, prev...), entry[0])
			dict = append(dict, newEntry)
			if len(dict)+1 > (1<<codeWidth) && codeWidth < lzwMaxBits {
				codeWidth++
			}
		}
		prev = entry

		if err := drain(); err != nil {
			return nil, err
		}
	}

	if decoded.Len() > needed {
		return decoded.Bytes()[:needed], nil
	}
	return decoded.Bytes(), nil
}
