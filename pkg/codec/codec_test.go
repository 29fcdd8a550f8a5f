package codec

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestE2SQRoundTrip feeds a 4 KiB buffer of alternating "ab" through the SQ
// encoder and decoder and checks the decoded bytes and stored checksum.
func TestE2SQRoundTrip(t *testing.T) {
	src := make([]byte, 4096)
	for i := range src {
		if i%2 == 0 {
			src[i] = 'a'
		} else {
			src[i] = 'b'
		}
	}

	var compressed bytes.Buffer
	sq := SQCodec{}
	encRes, err := sq.Encode(&compressed, bytes.NewReader(src), int64(len(src)))
	require.NoError(t, err)
	require.Equal(t, uint32(len(src)), encRes.Length)
	require.Equal(t, uint32(compressed.Len()), encRes.CompLength)

	var decoded bytes.Buffer
	decRes, err := sq.Decode(&decoded, bytes.NewReader(compressed.Bytes()), int64(len(src)))
	require.NoError(t, err)
	require.Equal(t, src, decoded.Bytes())
	require.Equal(t, encRes.CRC, decRes.CRC)
}

// TestE3LZW2ChunkFallback compresses 4096 bytes of random data with LZW/2;
// since the data doesn't compress, the chunk must be stored verbatim and
// still decode back identically.
func TestE3LZW2ChunkFallback(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	src := make([]byte, 4096)
	rng.Read(src)

	var compressed bytes.Buffer
	codec := NewLZWCodec(Dialect2)
	_, err := codec.Encode(&compressed, bytes.NewReader(src), int64(len(src)))
	require.NoError(t, err)

	hdr, err := readChunkHeader(bytes.NewReader(compressed.Bytes()))
	require.NoError(t, err)
	require.True(t, hdr.stored(), "random data must fall back to verbatim storage")

	var decoded bytes.Buffer
	_, err = codec.Decode(&decoded, bytes.NewReader(compressed.Bytes()), int64(len(src)))
	require.NoError(t, err)
	require.Equal(t, src, decoded.Bytes())
}

func TestLZW1MultiChunkRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), 300) // > one chunk
	var compressed bytes.Buffer
	codec := NewLZWCodec(Dialect1)
	_, err := codec.Encode(&compressed, bytes.NewReader(src), int64(len(src)))
	require.NoError(t, err)

	var decoded bytes.Buffer
	_, err = codec.Decode(&decoded, bytes.NewReader(compressed.Bytes()), int64(len(src)))
	require.NoError(t, err)
	require.Equal(t, src, decoded.Bytes())
}

func TestStoreCodecRoundTrip(t *testing.T) {
	src := []byte("Hello, NuFX")
	var buf bytes.Buffer
	store := StoreCodec{}
	res, err := store.Encode(&buf, bytes.NewReader(src), int64(len(src)))
	require.NoError(t, err)
	require.Equal(t, uint32(len(src)), res.Length)

	var out bytes.Buffer
	decRes, err := store.Decode(&out, bytes.NewReader(buf.Bytes()), int64(len(src)))
	require.NoError(t, err)
	require.Equal(t, src, out.Bytes())
	require.Equal(t, res.CRC, decRes.CRC)
}

func TestRegistryLookupUnsupported(t *testing.T) {
	reg := NewRegistry()
	c, err := reg.Lookup(FormatUnix12)
	require.NoError(t, err)
	_, err = c.Encode(&bytes.Buffer{}, bytes.NewReader(nil), 0)
	require.Error(t, err)
}

func TestBzip2EncodeUnsupported(t *testing.T) {
	var c Bzip2Codec
	_, err := c.Encode(&bytes.Buffer{}, bytes.NewReader([]byte("x")), 1)
	require.Error(t, err)
}
