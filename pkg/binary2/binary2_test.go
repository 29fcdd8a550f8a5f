package binary2

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bgrewell/nufx-kit/pkg/codec"
	"github.com/bgrewell/nufx-kit/pkg/sink"
)

// buildHeaderBlock constructs a minimal, valid 128-byte Binary II header for
// a non-directory entry named name whose content is eofLen bytes long.
func buildHeaderBlock(name string, eofLen int) [BlockSize]byte {
	var raw [BlockSize]byte
	raw[0], raw[1], raw[2] = 0x0A, 0x47, 0x4C
	raw[18] = 0x02
	raw[4] = 0x06 // arbitrary non-directory file type (not 15)

	raw[23] = byte(len(name))
	copy(raw[24:], name)

	raw[20] = byte(eofLen)
	raw[21] = byte(eofLen >> 8)
	raw[22] = byte(eofLen >> 16)
	raw[116] = byte(eofLen >> 24)

	raw[127] = 0 // filesToFollow
	return raw
}

// TestE7Binary2SQExtraction builds a BNY archive with one entry whose
// content is an SQueezed payload for "Hello"; it verifies the checksum in
// test mode and confirms extraction yields the original bytes.
func TestE7Binary2SQExtraction(t *testing.T) {
	plain := []byte("Hello")

	var sqPayload bytes.Buffer
	sq := codec.SQCodec{}
	_, err := sq.Encode(&sqPayload, bytes.NewReader(plain), int64(len(plain)))
	require.NoError(t, err)
	require.True(t, IsSqueezed(sqPayload.Bytes()), "SQ payload must start with 0x76 0xFF")

	header := buildHeaderBlock("HELLO.QQ", sqPayload.Len())

	nblocks := (sqPayload.Len() + BlockSize - 1) / BlockSize
	padded := make([]byte, nblocks*BlockSize)
	copy(padded, sqPayload.Bytes())

	var stream bytes.Buffer
	stream.Write(header[:])
	stream.Write(padded)

	dec := NewDecoder(&stream, nil)
	entry, data, err := dec.Next()
	require.NoError(t, err)
	require.False(t, entry.IsDirectory())
	require.Equal(t, sqPayload.Len(), len(data))

	// test mode: verify the embedded checksum without writing anywhere.
	_, err = sq.Decode(io.Discard, bytes.NewReader(data), -1)
	require.NoError(t, err)

	require.Equal(t, "HELLO", EffectiveFileName(entry, data))

	out := sink.NewBufferSink(len(plain))
	require.NoError(t, Extract(entry, data, out))
	require.Equal(t, plain, out.Bytes())

	_, _, err = dec.Next()
	require.Equal(t, io.EOF, err)
}

func TestDecoderDirectoryEntry(t *testing.T) {
	var raw [BlockSize]byte
	raw[0], raw[1], raw[2] = 0x0A, 0x47, 0x4C
	raw[18] = 0x02
	raw[4] = 15 // DIR file type
	raw[23] = byte(len("SUBDIR"))
	copy(raw[24:], "SUBDIR")

	dec := NewDecoder(bytes.NewReader(raw[:]), nil)
	entry, data, err := dec.Next()
	require.NoError(t, err)
	require.True(t, entry.IsDirectory())
	require.Nil(t, data)
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	var raw [BlockSize]byte
	dec := NewDecoder(bytes.NewReader(raw[:]), nil)
	_, _, err := dec.Next()
	require.Error(t, err)
}
