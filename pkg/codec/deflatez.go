package codec

import (
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
)

// DeflateCodec is an optional, non-ShrinkIt-standard thread format: a
// deflate stream, provided because the corpus this module was built
// against (klauspost/compress) ships a fast, allocation-light flate
// implementation and archives that opt into it are otherwise
// indistinguishable in shape from the other codecs.
type DeflateCodec struct{}

func (DeflateCodec) Encode(dst io.Writer, src io.Reader, limit int64) (Result, error) {
	raw, err := readAll(src, limit)
	if err != nil {
		return Result{}, err
	}
	var res Result
	res.CRC = crcUpdate(0, raw)

	cw := &countingWriter{w: dst}
	fw, err := flate.NewWriter(cw, flate.DefaultCompression)
	if err != nil {
		return res, nufxerr.Wrap(nufxerr.KindInternal, err, "deflate writer")
	}
	if _, err := fw.Write(raw); err != nil {
		return res, nufxerr.Wrap(nufxerr.KindFileWrite, err, "deflate encode")
	}
	if err := fw.Close(); err != nil {
		return res, nufxerr.Wrap(nufxerr.KindFileWrite, err, "deflate flush")
	}
	res.Length = uint32(len(raw))
	res.CompLength = uint32(cw.n)
	return res, nil
}

func (DeflateCodec) Decode(dst io.Writer, src io.Reader, expectedLen int64) (Result, error) {
	fr := flate.NewReader(src)
	defer fr.Close()
	return copyWithCRC(dst, fr, expectedLen)
}

// countingWriter tracks how many bytes pass through Write, used to report
// the compressed length a flate.Writer produces.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
