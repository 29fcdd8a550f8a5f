package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeflateCodecRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("compress me please "), 200)
	var compressed bytes.Buffer
	var dc DeflateCodec
	res, err := dc.Encode(&compressed, bytes.NewReader(src), int64(len(src)))
	require.NoError(t, err)
	require.Equal(t, uint32(len(src)), res.Length)
	require.Less(t, int(res.CompLength), len(src), "repetitive input should shrink")

	var decoded bytes.Buffer
	decRes, err := dc.Decode(&decoded, bytes.NewReader(compressed.Bytes()), int64(len(src)))
	require.NoError(t, err)
	require.Equal(t, src, decoded.Bytes())
	require.Equal(t, res.CRC, decRes.CRC)
}

func TestCRCUpdateMatchesFullCRC(t *testing.T) {
	data := []byte("The quick brown fox")
	whole := crcUpdate(0, data)
	split := crcUpdate(crcUpdate(0, data[:5]), data[5:])
	require.Equal(t, whole, split)
}
