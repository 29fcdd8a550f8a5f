package hostname

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bgrewell/nufx-kit/pkg/record"
)

func TestPreservationStringRoundTrip(t *testing.T) {
	name := AddPreservationString("HELLO.TXT", 0x04, 0x0000, record.KindDataFork, false)
	require.Equal(t, "HELLO.TXT#040000", name)

	stripped, ft, at, kind, ok := ExtractPreservationString(name)
	require.True(t, ok)
	require.Equal(t, "HELLO.TXT", stripped)
	require.Equal(t, uint32(0x04), ft)
	require.Equal(t, uint32(0x0000), at)
	require.Equal(t, record.KindDataFork, kind)
}

func TestPreservationStringResourceForkMarker(t *testing.T) {
	name := AddPreservationString("ICON", 0x01, 0x0000, record.KindRsrcFork, false)
	require.Equal(t, "ICON#010000r", name)

	_, _, _, kind, ok := ExtractPreservationString(name)
	require.True(t, ok)
	require.Equal(t, record.KindRsrcFork, kind)
}

func TestPreservationStringHFSForm(t *testing.T) {
	// fileType 0x54455854 ("TEXT") overflows a ProDOS byte, forcing the
	// 16-hex-digit HFS encoding.
	name := AddPreservationString("doc", 0x54455854, 0x4D4F5349, record.KindDataFork, false)
	stripped, ft, at, _, ok := ExtractPreservationString(name)
	require.True(t, ok)
	require.Equal(t, "doc", stripped)
	require.Equal(t, uint32(0x54455854), ft)
	require.Equal(t, uint32(0x4D4F5349), at)
}

func TestExtractPreservationStringNoToken(t *testing.T) {
	stripped, _, _, _, ok := ExtractPreservationString("plain.txt")
	require.False(t, ok)
	require.Equal(t, "plain.txt", stripped)
}

func TestInterpretExtensionRecognized(t *testing.T) {
	ft, at, ok := InterpretExtension("archive.shk")
	require.True(t, ok)
	require.Equal(t, uint32(0xe0), ft)
	require.Equal(t, uint32(0x8002), at)
}

func TestInterpretExtensionProDOSTable(t *testing.T) {
	ft, _, ok := InterpretExtension("image.bin")
	require.True(t, ok)
	require.Equal(t, uint32(0x06), ft)
}

func TestInterpretExtensionUnknown(t *testing.T) {
	_, _, ok := InterpretExtension("noextension")
	require.False(t, ok)
}

func TestFindExtensionAndFilenameOnly(t *testing.T) {
	require.Equal(t, ".TXT", FindExtension("sub/dir/FILE.TXT"))
	require.Equal(t, "FILE.TXT", FilenameOnly("sub/dir/FILE.TXT"))
	require.Equal(t, "", FindExtension("noext"))
	require.Equal(t, "", FindExtension("trailing."))
}

func TestEncodeAndDenormalize(t *testing.T) {
	encoded := EncodeForeign("#weird")
	require.Equal(t, "%23weird", encoded)

	decoded, err := DenormalizePath(encoded)
	require.NoError(t, err)
	require.Equal(t, "#weird", decoded)
}

func TestDenormalizeDoublePercent(t *testing.T) {
	decoded, err := DenormalizePath("100%%done")
	require.NoError(t, err)
	require.Equal(t, "100%done", decoded)
}

func TestSuffixForThread(t *testing.T) {
	require.Equal(t, "_rsrc_", SuffixForThread(record.KindRsrcFork))
	require.Equal(t, "", SuffixForThread(record.KindDataFork))
}
