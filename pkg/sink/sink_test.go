package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferSinkWriteAndOverflow(t *testing.T) {
	s := NewBufferSink(5)
	n, err := s.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("hello"), s.Bytes())

	_, err = s.Write([]byte("x"))
	require.Error(t, err)
}

func TestBufferSinkExpandAllowsOverflow(t *testing.T) {
	s := NewBufferSink(2).WithExpand(true)
	_, err := s.Write([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(s.Bytes()))
}

func TestFileSinkWritesAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	s := NewFileSink(path)
	_, err := s.Write([]byte("file contents"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "file contents", string(data))
}

func TestEOLConversionOn(t *testing.T) {
	s := NewBufferSink(64).WithEOL(EOLOn, EOLStyleLF)
	_, err := s.Write([]byte("a\r\nb\rc\n"))
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", string(s.Bytes()))
}

func TestEOLConversionCRLFAcrossWrites(t *testing.T) {
	s := NewBufferSink(64).WithEOL(EOLOn, EOLStyleCRLF)
	_, err := s.Write([]byte("line1\r"))
	require.NoError(t, err)
	_, err = s.Write([]byte("\nline2"))
	require.NoError(t, err)
	require.Equal(t, "line1\r\nline2", string(s.Bytes()))
}

func TestEOLAutoSniffsBinary(t *testing.T) {
	s := NewBufferSink(600).WithEOL(EOLAuto, EOLStyleLF)
	binary := make([]byte, 512)
	binary[10] = 0x00
	_, err := s.Write(binary)
	require.NoError(t, err)
	require.NoError(t, s.Flush())
	require.Equal(t, binary, s.Bytes())
}

func TestOutCountTracksLogicalBytes(t *testing.T) {
	s := NewBufferSink(64)
	_, err := s.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.Equal(t, int64(6), s.OutCount())
}
