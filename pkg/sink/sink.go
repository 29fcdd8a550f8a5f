// Package sink implements the DataSink abstraction used when extracting
// thread contents: a tagged variant over {file-by-path, file-handle,
// in-memory buffer} that optionally rewrites line endings as bytes flow
// through it.
package sink

import (
	"os"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
)

// Kind identifies which of the three closed shapes a Sink holds.
type Kind int

const (
	KindFile Kind = iota
	KindHandle
	KindBuffer
)

// EOLMode selects how line endings are rewritten as bytes are written.
type EOLMode int

const (
	EOLOff EOLMode = iota
	EOLOn
	EOLAuto
)

// EOLStyle is the target line ending used when EOLMode is not EOLOff.
type EOLStyle int

const (
	EOLStyleCR EOLStyle = iota
	EOLStyleLF
	EOLStyleCRLF
)

func (s EOLStyle) bytes() []byte {
	switch s {
	case EOLStyleCR:
		return []byte{'\r'}
	case EOLStyleCRLF:
		return []byte{'\r', '\n'}
	default:
		return []byte{'\n'}
	}
}

// Sink is a single-use, append-only byte consumer.
type Sink struct {
	kind Kind

	path       string
	handle     *os.File
	buffer     []byte
	bufferCap  int
	bufferUsed int

	mode       EOLMode
	style      EOLStyle
	doExpand   bool
	outCount   int64

	// EOL conversion state
	lastWasCR    bool
	sniffed      bool
	sniffBinary  bool
	sniffBuf     []byte
	autoDecided  bool
}

// NewFileSink creates a Sink that writes to a new file at path.
func NewFileSink(path string) *Sink {
	return &Sink{kind: KindFile, path: path}
}

// NewHandleSink creates a Sink that writes to an already-open file handle.
func NewHandleSink(f *os.File) *Sink {
	return &Sink{kind: KindHandle, handle: f}
}

// NewBufferSink creates a Sink backed by a preallocated in-memory buffer of
// capacity cap. Writes beyond capacity fail with KindBufferOverrun.
func NewBufferSink(capacity int) *Sink {
	return &Sink{kind: KindBuffer, buffer: make([]byte, 0, capacity), bufferCap: capacity}
}

// WithEOL configures EOL conversion mode and target style.
func (s *Sink) WithEOL(mode EOLMode, style EOLStyle) *Sink {
	s.mode = mode
	s.style = style
	return s
}

// WithExpand toggles whether a buffer sink is allowed to grow beyond its
// initial capacity (do-expand flag in the spec's data model).
func (s *Sink) WithExpand(expand bool) *Sink {
	s.doExpand = expand
	return s
}

func (s *Sink) ensureOpen() error {
	if s.kind == KindFile && s.handle == nil {
		f, err := os.Create(s.path)
		if err != nil {
			return nufxerr.Wrap(nufxerr.KindFileOpen, err, s.path)
		}
		s.handle = f
	}
	return nil
}

// Write appends data to the sink, applying EOL conversion per the
// configured mode. It mirrors io.Writer's contract.
func (s *Sink) Write(data []byte) (int, error) {
	converted, err := s.convert(data)
	if err != nil {
		return 0, err
	}
	written, err := s.rawWrite(converted)
	if err != nil {
		return written, err
	}
	s.outCount += int64(len(data))
	return len(data), nil
}

func (s *Sink) rawWrite(data []byte) (int, error) {
	switch s.kind {
	case KindBuffer:
		if s.bufferUsed+len(data) > s.bufferCap && !s.doExpand {
			return 0, nufxerr.New(nufxerr.KindBufferOverrun, "write exceeds sink capacity")
		}
		s.buffer = append(s.buffer, data...)
		s.bufferUsed += len(data)
		return len(data), nil
	case KindFile, KindHandle:
		if err := s.ensureOpen(); err != nil {
			return 0, err
		}
		n, err := s.handle.Write(data)
		if err != nil {
			return n, nufxerr.Wrap(nufxerr.KindFileWrite, err, s.path)
		}
		return n, nil
	}
	return 0, nufxerr.New(nufxerr.KindInternal, "unknown sink kind")
}

// convert applies the configured EOL policy to data, returning the bytes
// that should actually be written.
func (s *Sink) convert(data []byte) ([]byte, error) {
	switch s.mode {
	case EOLOff:
		return data, nil
	case EOLAuto:
		if !s.autoDecided {
			s.sniffBuf = append(s.sniffBuf, data...)
			if len(s.sniffBuf) < 512 {
				return nil, nil // buffered, nothing written yet
			}
			s.autoDecided = true
			if looksBinary(s.sniffBuf) {
				s.mode = EOLOff
				flushed := s.sniffBuf
				s.sniffBuf = nil
				return flushed, nil
			}
			s.mode = EOLOn
			flushed := s.sniffBuf
			s.sniffBuf = nil
			return s.convertText(flushed), nil
		}
		return s.convertText(data), nil
	case EOLOn:
		return s.convertText(data), nil
	}
	return data, nil
}

func looksBinary(sample []byte) bool {
	for _, b := range sample {
		if b == '\r' || b == '\n' || b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7E {
			return true
		}
	}
	return false
}

// convertText rewrites CR, LF, and CRLF sequences to the configured style,
// tracking whether the previous byte was a CR across Write calls so a
// CRLF pair split across two writes is still collapsed to one line ending.
func (s *Sink) convertText(data []byte) []byte {
	out := make([]byte, 0, len(data))
	style := s.style.bytes()
	i := 0
	for i < len(data) {
		b := data[i]
		switch b {
		case '\r':
			out = append(out, style...)
			if i+1 < len(data) && data[i+1] == '\n' {
				i++ // swallow the LF half of a CRLF
			} else {
				s.lastWasCR = true
			}
		case '\n':
			if s.lastWasCR {
				// already emitted for the CR half
				s.lastWasCR = false
			} else {
				out = append(out, style...)
			}
		default:
			s.lastWasCR = false
			out = append(out, b)
		}
		i++
	}
	return out
}

// Flush writes out any buffered sniff prefix that EOLAuto has not yet
// decided on; callers must call this once at end-of-thread.
func (s *Sink) Flush() error {
	if s.mode == EOLAuto && !s.autoDecided && len(s.sniffBuf) > 0 {
		s.autoDecided = true
		data := s.sniffBuf
		s.sniffBuf = nil
		if looksBinary(data) {
			s.mode = EOLOff
		} else {
			s.mode = EOLOn
			data = s.convertText(data)
		}
		_, err := s.rawWrite(data)
		return err
	}
	return nil
}

// OutCount returns the number of logical (pre-conversion) bytes written so
// far.
func (s *Sink) OutCount() int64 { return s.outCount }

// Bytes returns the contents of a buffer sink.
func (s *Sink) Bytes() []byte { return s.buffer }

// Close releases any owned file handle.
func (s *Sink) Close() error {
	if s.kind == KindFile && s.handle != nil {
		return s.handle.Close()
	}
	return nil
}
