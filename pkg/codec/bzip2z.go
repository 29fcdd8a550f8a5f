package codec

import (
	"compress/bzip2"
	"io"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
)

// Bzip2Codec decodes the optional bzip2 thread format using the standard
// library's reader. No bzip2 *encoder* exists anywhere in this module's
// dependency corpus (klauspost/compress does not ship one, and nothing
// else in the example pack provides a pure-Go bzip2 writer), so Encode
// reports UnsupportedFeature rather than fabricating a dependency; this
// mirrors nufxlib's own optional/compile-time-gated bzip2 support.
type Bzip2Codec struct{}

func (Bzip2Codec) Encode(dst io.Writer, src io.Reader, limit int64) (Result, error) {
	return Result{}, nufxerr.New(nufxerr.KindUnsupportedFeature, "bzip2 compression is not supported in this build")
}

func (Bzip2Codec) Decode(dst io.Writer, src io.Reader, expectedLen int64) (Result, error) {
	br := bzip2.NewReader(src)
	return copyWithCRC(dst, br, expectedLen)
}
