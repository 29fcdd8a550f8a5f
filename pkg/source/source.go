// Package source implements the DataSource abstraction: a tagged variant
// over {file-by-path, file-handle-with-offset, in-memory buffer} that the
// writer pulls thread bytes from during flush.
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
)

// Kind identifies which of the three closed shapes a Source holds.
type Kind int

const (
	KindFile Kind = iota
	KindHandle
	KindBuffer
)

// Format declares the compression the source's bytes are already in, when
// the caller is supplying precompressed data (e.g. copying a thread
// verbatim from one archive to another).
type Format uint16

const (
	FormatUncompressed Format = iota
	FormatAlreadyCompressed
)

// Source is a single-use byte provider. Per the data model invariant, each
// Source is read at most once during flush; after Close it may not be read
// again.
type Source struct {
	kind Kind

	// KindFile
	path string

	// KindHandle
	handle io.ReaderAt
	offset int64

	// KindBuffer
	buffer []byte

	// shared
	length       int64 // compressed-or-stored length, depending on Format
	otherLength  int64 // uncompressed length, when known up front
	format       Format
	rawCRC       *uint16 // caller-supplied CRC override for precompressed bytes
	ownsHandle   bool    // true if Close should close the underlying handle
	consumed     bool
	pos          int64
	openedFile   *os.File
	sectionReadr io.Reader
}

// NewFileSource creates a Source that reads the entire contents of the file
// at path. The file is opened lazily on the first Read and released by
// Close; Read or Rewind after Close fails loudly.
func NewFileSource(path string) *Source {
	return &Source{kind: KindFile, path: path, ownsHandle: true, length: -1}
}

// NewHandleSource creates a Source over a borrowed io.ReaderAt, reading
// length bytes starting at offset. The handle is never closed by the
// Source.
func NewHandleSource(handle io.ReaderAt, offset, length int64) *Source {
	return &Source{kind: KindHandle, handle: handle, offset: offset, length: length}
}

// NewBufferSource creates a Source over an in-memory buffer. The buffer is
// borrowed, not copied.
func NewBufferSource(buf []byte) *Source {
	return &Source{kind: KindBuffer, buffer: buf, length: int64(len(buf))}
}

// WithFormat records the compression format already applied to the
// source's bytes, used when re-wrapping precompressed thread data.
func (s *Source) WithFormat(f Format) *Source {
	s.format = f
	return s
}

// WithRawCRC supplies the CRC of precompressed bytes, overriding the CRC
// the writer would otherwise compute by hashing the stream itself.
func (s *Source) WithRawCRC(crc uint16) *Source {
	s.rawCRC = &crc
	return s
}

// WithOtherLength records the uncompressed length when the caller already
// knows it (e.g. copying an existing compressed thread verbatim).
func (s *Source) WithOtherLength(n int64) *Source {
	s.otherLength = n
	return s
}

func (s *Source) Kind() Kind        { return s.kind }
func (s *Source) Format() Format    { return s.format }
func (s *Source) RawCRC() (uint16, bool) {
	if s.rawCRC == nil {
		return 0, false
	}
	return *s.rawCRC, true
}
func (s *Source) OtherLength() int64 { return s.otherLength }

// Length returns the declared length of the source's bytes, or -1 if
// unknown up front (file sources report the true size once opened).
func (s *Source) Length() (int64, error) {
	if s.kind == KindFile && s.length < 0 {
		info, err := os.Stat(s.path)
		if err != nil {
			return 0, nufxerr.Wrap(nufxerr.KindFileStat, err, s.path)
		}
		s.length = info.Size()
	}
	return s.length, nil
}

func (s *Source) ensureOpen() (io.Reader, error) {
	switch s.kind {
	case KindFile:
		if s.consumed {
			return nil, nufxerr.New(nufxerr.KindUnexpectedNil, fmt.Sprintf("source %q was consumed and closed; cannot read", s.path))
		}
		if s.openedFile == nil {
			f, err := os.Open(s.path)
			if err != nil {
				return nil, nufxerr.Wrap(nufxerr.KindFileOpen, err, s.path)
			}
			s.openedFile = f
		}
		return s.openedFile, nil
	case KindHandle:
		if s.sectionReadr == nil {
			s.sectionReadr = io.NewSectionReader(s.handle, s.offset, s.length)
		}
		return s.sectionReadr, nil
	case KindBuffer:
		return nil, nil // handled directly in Read
	}
	return nil, nufxerr.New(nufxerr.KindInternal, "unknown source kind")
}

// Read consumes the next chunk of bytes, filling buf. It behaves like
// io.Reader.Read: a short read is not an error, and io.EOF signals
// exhaustion. Reading a file source after Close returns a
// KindUnexpectedNil error.
func (s *Source) Read(buf []byte) (int, error) {
	if s.kind == KindBuffer {
		if s.pos >= int64(len(s.buffer)) {
			return 0, io.EOF
		}
		n := copy(buf, s.buffer[s.pos:])
		s.pos += int64(n)
		return n, nil
	}
	r, err := s.ensureOpen()
	if err != nil {
		return 0, err
	}
	n, err := r.Read(buf)
	s.pos += int64(n)
	return n, err
}

// Rewind resets the source to its beginning. It is required only on
// non-streaming sources; a consume-and-close file source that has already
// been closed fails loudly rather than silently reading zero bytes.
func (s *Source) Rewind() error {
	switch s.kind {
	case KindBuffer:
		s.pos = 0
		return nil
	case KindHandle:
		s.sectionReadr = io.NewSectionReader(s.handle, s.offset, s.length)
		s.pos = 0
		return nil
	case KindFile:
		if s.consumed {
			return nufxerr.New(nufxerr.KindInvalidArg, fmt.Sprintf("source %q was consumed and closed; cannot rewind", s.path))
		}
		if s.openedFile != nil {
			_, err := s.openedFile.Seek(0, io.SeekStart)
			s.pos = 0
			return err
		}
		return nil
	}
	return nufxerr.New(nufxerr.KindInternal, "unknown source kind")
}

// Close releases any underlying file handle. Buffer and borrowed-handle
// sources are no-ops.
func (s *Source) Close() error {
	if s.kind == KindFile && s.openedFile != nil {
		err := s.openedFile.Close()
		s.openedFile = nil
		s.consumed = true
		return err
	}
	return nil
}
