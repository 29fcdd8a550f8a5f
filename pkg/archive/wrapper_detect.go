package archive

import (
	"bytes"
	"io"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
	"github.com/bgrewell/nufx-kit/pkg/wrapper"
)

const prefixSniffLen = 256 * 1024

// detectAndSkipWrapper peeks at the cursor's upcoming bytes to classify
// any wrapper, then advances c past it. On a streaming cursor the peeked
// bytes are buffered and re-fed transparently so nothing is lost to the
// sniff.
func detectAndSkipWrapper(c cursor) (WrapperInfo, bool, error) {
	switch v := c.(type) {
	case *randCursor:
		return detectOnRandCursor(v)
	case *streamCursor:
		return detectOnStreamCursor(v)
	default:
		return WrapperInfo{}, false, nufxerr.New(nufxerr.KindInternal, "unknown cursor type")
	}
}

func detectOnRandCursor(rc *randCursor) (WrapperInfo, bool, error) {
	start := rc.Pos()
	buf := make([]byte, prefixSniffLen)
	n, err := io.ReadFull(rc.r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return WrapperInfo{}, true, nufxerr.Wrap(nufxerr.KindFileRead, err, "wrapper sniff")
	}
	buf = buf[:n]

	if wrapper.IsPlainBinary2(buf) {
		rc.SeekTo(start)
		return WrapperInfo{}, true, nufxerr.New(nufxerr.KindIsBinary2, "archive is a Binary II container")
	}

	kind, skip := wrapper.Detect(buf)
	if err := rc.SeekTo(start + int64(skip)); err != nil {
		return WrapperInfo{}, true, nufxerr.Wrap(nufxerr.KindFileSeek, err, "wrapper skip")
	}
	info := WrapperInfo{Kind: mapWrapperKind(kind)}
	if skip > 0 {
		info.RawPrefix = append([]byte(nil), buf[:skip]...)
	}
	return info, true, nil
}

func detectOnStreamCursor(sc *streamCursor) (WrapperInfo, bool, error) {
	// A stream cannot be rewound, so only the simplest case - a Binary II
	// header immediately followed by NuFile (BXY), or no wrapper at all -
	// can be handled without buffering the whole SEA stub in memory. SEA
	// detection on a pipe would require buffering up to maxSEAScan bytes,
	// so a SEA or BSE stream is rejected with KindUnsupportedFeature.
	var hdr [wrapperPeekLen]byte
	n, err := io.ReadFull(sc.r, hdr[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return WrapperInfo{}, false, nufxerr.Wrap(nufxerr.KindFileRead, err, "wrapper sniff")
	}
	peek := hdr[:n]

	if wrapper.IsPlainBinary2(peek) {
		return WrapperInfo{}, false, nufxerr.New(nufxerr.KindIsBinary2, "archive is a Binary II container")
	}
	kind, skip := wrapper.Detect(peek)
	sc.pos += int64(skip) // the rest of the peek is re-read through sc.Read below
	if kind == wrapper.SEA || kind == wrapper.BSE {
		return WrapperInfo{}, false, nufxerr.New(nufxerr.KindUnsupportedFeature, "SEA wrapper detection requires a seekable archive")
	}
	// Re-queue whatever bytes past the wrapper (or the whole peek, if no
	// wrapper) as the new front of the stream.
	sc.r = io.MultiReader(bytes.NewReader(append([]byte(nil), peek[skip:]...)), sc.r)
	return WrapperInfo{Kind: mapWrapperKind(kind)}, false, nil
}

const wrapperPeekLen = wrapper.BinaryIIBlockSize + 6 // BNY header + NuFile magic length

func mapWrapperKind(k wrapper.Kind) WrapperKind {
	switch k {
	case wrapper.BXY:
		return WrapperBXY
	case wrapper.SEA:
		return WrapperSEA
	case wrapper.BSE:
		return WrapperBSE
	default:
		return WrapperNone
	}
}
