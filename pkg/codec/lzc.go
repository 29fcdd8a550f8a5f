package codec

import (
	"io"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
)

// lzcCodec represents the two Unix-compress ("LZC") thread formats that
// ShrinkIt historically reserved (12-bit and 16-bit). No Go package in
// the reference corpus implements classic .Z-style adaptive LZC with the
// ShrinkIt block-mode framing, and none of this corpus's dependencies
// cover it either, so these formats are registered purely so Lookup
// succeeds and Encode/Decode report the same UnsupportedFeature outcome
// the original nufxlib reports for compile-time-disabled codecs.
type lzcCodec struct {
	bits int
}

func (c lzcCodec) Encode(dst io.Writer, src io.Reader, limit int64) (Result, error) {
	return Result{}, nufxerr.New(nufxerr.KindUnsupportedFeature, "LZC compression is not supported in this build")
}

func (c lzcCodec) Decode(dst io.Writer, src io.Reader, expectedLen int64) (Result, error) {
	return Result{}, nufxerr.New(nufxerr.KindUnsupportedFeature, "LZC decompression is not supported in this build")
}
