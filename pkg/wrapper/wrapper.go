// Package wrapper detects the benign prefixes (Binary II, self-extractor)
// that may precede a NuFX master header, per spec.md §4.H.
package wrapper

import "bytes"

// Kind enumerates the wrapper shapes a NuFX archive may be found inside.
type Kind int

const (
	None Kind = iota
	BXY       // 128-byte Binary II header immediately before NuFile
	SEA       // self-extractor stub, NuFile found further in
	BSE       // SEA stub wrapping a BXY-wrapped archive
)

// BinaryIIBlockSize is the fixed size of one Binary II block/header.
const BinaryIIBlockSize = 128

// NuFileMagic is the literal byte sequence a NuFX master header begins
// with (spec.md §6).
var NuFileMagic = []byte{0x4E, 0xF5, 0x46, 0xE9, 0x6C, 0xE5}

// maxSEAScan bounds how far into the file Detect will search for an
// embedded NuFile magic when the prefix does not start with one
// directly; self-extractor stubs are executables of varying size but
// are never unreasonably large.
const maxSEAScan = 256 * 1024

// isBinary2Header reports whether buf (at least 128 bytes) satisfies the
// Binary II signature: 0x0A 0x47 0x4C at offsets 0,1,2 and 0x02 at
// offset 18 (spec.md §4.H).
func isBinary2Header(buf []byte) bool {
	if len(buf) < 19 {
		return false
	}
	return buf[0] == 0x0A && buf[1] == 0x47 && buf[2] == 0x4C && buf[18] == 0x02
}

// Detect inspects prefix (which should contain at least the first
// maxSEAScan bytes of the file, or the whole file if shorter) and
// reports which wrapper, if any, precedes the NuFile magic, along with
// how many leading bytes must be skipped to reach it.
func Detect(prefix []byte) (Kind, int) {
	if isBinary2Header(prefix) {
		nuOffset := BinaryIIBlockSize
		if len(prefix) >= nuOffset+len(NuFileMagic) &&
			bytes.Equal(prefix[nuOffset:nuOffset+len(NuFileMagic)], NuFileMagic) {
			return BXY, nuOffset
		}
		// A BNY header not immediately followed by NuFile is a plain
		// Binary II archive, not a wrapped NuFX one; the caller should
		// hand off to the Binary II decoder instead (IsBinary2).
		return None, 0
	}

	if bytes.Equal(safeSlice(prefix, 0, len(NuFileMagic)), NuFileMagic) {
		return None, 0
	}

	limit := len(prefix)
	if limit > maxSEAScan {
		limit = maxSEAScan
	}
	idx := bytes.Index(prefix[:limit], NuFileMagic)
	if idx <= 0 {
		return None, 0
	}

	// BSE: a BNY header sits immediately before the NuFile magic, with a
	// SEA stub preceding that.
	if idx >= BinaryIIBlockSize && isBinary2Header(prefix[idx-BinaryIIBlockSize:idx]) {
		return BSE, idx
	}
	return SEA, idx
}

func safeSlice(b []byte, lo, hi int) []byte {
	if hi > len(b) {
		hi = len(b)
	}
	if lo > hi {
		return nil
	}
	return b[lo:hi]
}

// IsPlainBinary2 reports whether prefix begins with a Binary II header
// that is NOT immediately followed by a NuFX master header — i.e. the
// archive itself is a BNY container, and the caller should decode it via
// pkg/binary2 rather than parsing it as NuFX (spec.md §4.H's IsBinary2
// signal).
func IsPlainBinary2(prefix []byte) bool {
	if !isBinary2Header(prefix) {
		return false
	}
	k, _ := Detect(prefix)
	return k != BXY
}
