package archive

import (
	"io"

	"github.com/bgrewell/nufx-kit/pkg/nufxio"
)

// cursor is the narrower byte-source abstraction spec.md §9 calls for:
// random-access archives provide Seek, streaming (pipe) archives only
// provide Discard. Parsers and codecs that only need to advance past
// bytes they don't care about should take a cursor, not an io.Reader,
// so the same code path serves both modes; only flush and lookups
// require the wider randCursor.
type cursor interface {
	io.Reader
	// Discard advances the cursor by n bytes without requiring the
	// caller to retain them.
	Discard(n int64) error
	// Pos reports the cursor's current offset from the start of the
	// underlying stream, if known.
	Pos() int64
}

// streamCursor wraps a plain io.Reader (a pipe, or any non-seekable
// source); Discard reads-and-throws-away.
type streamCursor struct {
	r   io.Reader
	pos int64
}

func newStreamCursor(r io.Reader) *streamCursor {
	return &streamCursor{r: r}
}

func (c *streamCursor) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.pos += int64(n)
	return n, err
}

func (c *streamCursor) Discard(n int64) error {
	if err := nufxio.Discard(c.r, n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

func (c *streamCursor) Pos() int64 { return c.pos }

// randCursor wraps an io.ReadSeeker (a real file); Discard and random
// lookups both use Seek directly.
type randCursor struct {
	r io.ReadSeeker
}

func newRandCursor(r io.ReadSeeker) *randCursor {
	return &randCursor{r: r}
}

func (c *randCursor) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *randCursor) Discard(n int64) error {
	_, err := c.r.Seek(n, io.SeekCurrent)
	return err
}

func (c *randCursor) Pos() int64 {
	pos, _ := c.r.Seek(0, io.SeekCurrent)
	return pos
}

// SeekTo repositions a random-access cursor to an absolute offset; it has
// no equivalent on streamCursor, which is why only code paths that truly
// need random access (flush, by-index lookups) hold a *randCursor instead
// of the narrower cursor interface.
func (c *randCursor) SeekTo(off int64) error {
	_, err := c.r.Seek(off, io.SeekStart)
	return err
}
