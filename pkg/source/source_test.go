package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferSourceReadAndRewind(t *testing.T) {
	s := NewBufferSource([]byte("abcdef"))
	buf := make([]byte, 3)
	n, err := s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "abc", string(buf))

	require.NoError(t, s.Rewind())
	n, err = s.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))
}

func TestBufferSourceEOF(t *testing.T) {
	s := NewBufferSource([]byte("hi"))
	buf := make([]byte, 2)
	_, err := s.Read(buf)
	require.NoError(t, err)
	_, err = s.Read(buf)
	require.Equal(t, io.EOF, err)
}

func TestFileSourceReadsWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("file data"), 0o644))

	s := NewFileSource(path)
	data, err := io.ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, "file data", string(data))

	length, err := s.Length()
	require.NoError(t, err)
	require.Equal(t, int64(len("file data")), length)

	require.NoError(t, s.Close())
	require.Error(t, s.Rewind(), "a consumed file source must not silently rewind")
}

func TestHandleSourceReadsSlice(t *testing.T) {
	backing := bytes.NewReader([]byte("0123456789"))
	s := NewHandleSource(backing, 3, 4)
	data, err := io.ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, "3456", string(data))

	require.NoError(t, s.Rewind())
	data, err = io.ReadAll(s)
	require.NoError(t, err)
	require.Equal(t, "3456", string(data))
}

func TestSourceFormatAndCRCOverride(t *testing.T) {
	s := NewBufferSource([]byte("x")).WithFormat(FormatAlreadyCompressed).WithRawCRC(0x1234).WithOtherLength(99)
	require.Equal(t, FormatAlreadyCompressed, s.Format())
	crc, ok := s.RawCRC()
	require.True(t, ok)
	require.Equal(t, uint16(0x1234), crc)
	require.Equal(t, int64(99), s.OtherLength())
}
