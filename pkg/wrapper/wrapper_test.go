package wrapper

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func binary2Header() []byte {
	buf := make([]byte, BinaryIIBlockSize)
	buf[0] = 0x0A
	buf[1] = 0x47
	buf[2] = 0x4C
	buf[18] = 0x02
	return buf
}

func TestDetectUnwrappedArchive(t *testing.T) {
	prefix := append([]byte{}, NuFileMagic...)
	prefix = append(prefix, 0x01, 0x02, 0x03)
	kind, offset := Detect(prefix)
	require.Equal(t, None, kind)
	require.Equal(t, 0, offset)
}

func TestDetectBXY(t *testing.T) {
	prefix := append(binary2Header(), NuFileMagic...)
	kind, offset := Detect(prefix)
	require.Equal(t, BXY, kind)
	require.Equal(t, BinaryIIBlockSize, offset)
}

func TestDetectPlainBinary2(t *testing.T) {
	prefix := append(binary2Header(), []byte("not a nufx master header")...)
	kind, offset := Detect(prefix)
	require.Equal(t, None, kind)
	require.Equal(t, 0, offset)
	require.True(t, IsPlainBinary2(prefix))
}

func TestDetectSEA(t *testing.T) {
	stub := bytes.Repeat([]byte{0xEA}, 512) // fake executable stub, no BNY header
	prefix := append(stub, NuFileMagic...)
	kind, offset := Detect(prefix)
	require.Equal(t, SEA, kind)
	require.Equal(t, len(stub), offset)
}

func TestDetectBSE(t *testing.T) {
	stub := bytes.Repeat([]byte{0xEA}, 256)
	prefix := append(stub, binary2Header()...)
	prefix = append(prefix, NuFileMagic...)
	kind, offset := Detect(prefix)
	require.Equal(t, BSE, kind)
	require.Equal(t, len(stub)+BinaryIIBlockSize, offset)
}

func TestDetectNone(t *testing.T) {
	prefix := bytes.Repeat([]byte{0x00}, 64)
	kind, offset := Detect(prefix)
	require.Equal(t, None, kind)
	require.Equal(t, 0, offset)
	require.False(t, IsPlainBinary2(prefix))
}
