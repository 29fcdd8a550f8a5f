package codec

import (
	"bytes"
	"io"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
)

// SQCodec implements ShrinkIt's "SQueeze" format: a static Huffman tree
// over a 257-symbol alphabet (256 byte values plus a stop symbol), driving
// a bitstream that is itself the RLE-compressed form of the original data.
type SQCodec struct{}

const (
	sqMagic        = 0xFF76
	sqStopSymbol   = 256
	sqRLEDelimiter = 0x90
)

// sqNode is one entry of the serialized Huffman tree: Left/Right are either
// a node index (>=0) or a literal value (<0, decoded as -(v)-1, where 256
// means the stop symbol).
type sqNode struct {
	Left  int16
	Right int16
}

// Encode compresses src using static per-symbol frequencies computed over
// the whole input, emitting the SQ header (magic, checksum, filename,
// tree) followed by the bitstream.
func (SQCodec) Encode(dst io.Writer, src io.Reader, limit int64) (Result, error) {
	raw, err := readAll(src, limit)
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.CRC = crcUpdate(0, raw)

	rle := rleEncode(raw, sqRLEDelimiter)

	freq := make([]int, 257)
	for _, b := range rle {
		freq[b]++
	}
	freq[sqStopSymbol] = 1

	nodes, rootIdx, codes := buildHuffmanTree(freq)

	checksum := uint16(0)
	for _, b := range rle {
		checksum += uint16(b)
	}

	var buf bytes.Buffer
	writeU16LE(&buf, sqMagic)
	writeU16LE(&buf, checksum)
	buf.WriteByte(0) // empty NUL-terminated filename

	writeU16LE(&buf, uint16(len(nodes)))
	for _, n := range nodes {
		writeI16LE(&buf, n.Left)
		writeI16LE(&buf, n.Right)
	}

	bw := newBitWriter(&buf)
	for _, b := range rle {
		if err := bw.WriteCode(codes[int(b)]); err != nil {
			return Result{}, err
		}
	}
	if err := bw.WriteCode(codes[sqStopSymbol]); err != nil {
		return Result{}, err
	}
	if err := bw.Flush(); err != nil {
		return Result{}, err
	}

	_ = rootIdx
	n, err := dst.Write(buf.Bytes())
	if err != nil {
		return Result{}, nufxerr.Wrap(nufxerr.KindFileWrite, err, "sq encode")
	}
	res.Length = uint32(len(raw))
	res.CompLength = uint32(n)
	return res, nil
}

// Decode parses the SQ header and tree, then walks the bitstream to
// recover the RLE-compressed byte stream and finally the original bytes.
// expectedLen is advisory only: SQ has no stored uncompressed length, so
// decoding runs until the stop symbol regardless of expectedLen.
func (SQCodec) Decode(dst io.Writer, src io.Reader, expectedLen int64) (Result, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(src, hdr[:]); err != nil {
		return Result{}, nufxerr.Wrap(nufxerr.KindBadData, err, "sq magic")
	}
	magic := uint16(hdr[0]) | uint16(hdr[1])<<8
	if magic != sqMagic {
		return Result{}, nufxerr.New(nufxerr.KindBadData, "sq magic mismatch")
	}
	var cksumBytes [2]byte
	if _, err := io.ReadFull(src, cksumBytes[:]); err != nil {
		return Result{}, nufxerr.Wrap(nufxerr.KindBadData, err, "sq checksum")
	}
	storedChecksum := uint16(cksumBytes[0]) | uint16(cksumBytes[1])<<8

	if err := skipNulTerminated(src); err != nil {
		return Result{}, nufxerr.Wrap(nufxerr.KindBadData, err, "sq filename")
	}

	var countBytes [2]byte
	if _, err := io.ReadFull(src, countBytes[:]); err != nil {
		return Result{}, nufxerr.Wrap(nufxerr.KindBadData, err, "sq node count")
	}
	nodeCount := int(uint16(countBytes[0]) | uint16(countBytes[1])<<8)
	if nodeCount < 0 || nodeCount > 257 {
		return Result{}, nufxerr.New(nufxerr.KindBadData, "sq node count out of range")
	}

	nodes := make([]sqNode, nodeCount)
	for i := 0; i < nodeCount; i++ {
		var pair [4]byte
		if _, err := io.ReadFull(src, pair[:]); err != nil {
			return Result{}, nufxerr.Wrap(nufxerr.KindBadData, err, "sq tree")
		}
		nodes[i].Left = int16(uint16(pair[0]) | uint16(pair[1])<<8)
		nodes[i].Right = int16(uint16(pair[2]) | uint16(pair[3])<<8)
	}

	br := newBitReader(src)
	rleOut := &bytes.Buffer{}
	for {
		sym, err := decodeSymbol(br, nodes)
		if err != nil {
			return Result{}, err
		}
		if sym == sqStopSymbol {
			break
		}
		rleOut.WriteByte(byte(sym))
	}

	rleDecoded := &bytes.Buffer{}
	rd := newRLEDecoder(rleDecoded, sqRLEDelimiter)
	for _, b := range rleOut.Bytes() {
		if err := rd.PutByte(b); err != nil {
			return Result{}, err
		}
	}

	out := rleDecoded.Bytes()
	computedChecksum := uint16(0)
	for _, b := range rleOut.Bytes() {
		computedChecksum += uint16(b)
	}
	var res Result
	res.CRC = crcUpdate(0, out)
	res.Length = uint32(len(out))

	if _, err := dst.Write(out); err != nil {
		return res, nufxerr.Wrap(nufxerr.KindFileWrite, err, "sq decode")
	}

	if computedChecksum != storedChecksum {
		return res, nufxerr.New(nufxerr.KindBadDataCRC, "sq checksum mismatch")
	}
	return res, nil
}

// decodeSymbol walks the tree from the root (node 0) one bit at a time
// until it lands on a literal.
func decodeSymbol(br *bitReader, nodes []sqNode) (int, error) {
	if len(nodes) == 0 {
		return 0, nufxerr.New(nufxerr.KindBadData, "sq tree is empty")
	}
	idx := int16(0)
	for {
		bit, err := br.ReadBit()
		if err != nil {
			return 0, nufxerr.Wrap(nufxerr.KindBadData, err, "sq bitstream exhausted")
		}
		var next int16
		if bit == 0 {
			next = nodes[idx].Left
		} else {
			next = nodes[idx].Right
		}
		if next >= 0 {
			idx = next
			if int(idx) >= len(nodes) {
				return 0, nufxerr.New(nufxerr.KindBadData, "sq tree index out of range")
			}
			continue
		}
		return int(-next - 1), nil
	}
}

func skipNulTerminated(r io.Reader) error {
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		if b[0] == 0 {
			return nil
		}
	}
}

func readAll(r io.Reader, limit int64) ([]byte, error) {
	if limit < 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, nufxerr.Wrap(nufxerr.KindFileRead, err, "read all")
		}
		return data, nil
	}
	data := make([]byte, limit)
	n, err := io.ReadFull(r, data)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, nufxerr.Wrap(nufxerr.KindFileRead, err, "read all")
	}
	return data[:n], nil
}

func writeU16LE(buf *bytes.Buffer, v uint16) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
}

func writeI16LE(buf *bytes.Buffer, v int16) {
	writeU16LE(buf, uint16(v))
}
