package nufx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bgrewell/nufx-kit/pkg/record"
	"github.com/bgrewell/nufx-kit/pkg/sink"
	"github.com/bgrewell/nufx-kit/pkg/source"
)

// writeMinimalBinary2File writes a single-entry, 128-byte Binary II file
// (no data blocks, filesToFollow=0) named name, used to exercise OpenAny's
// BNY routing without a NuFX master header anywhere in the file.
func writeMinimalBinary2File(t *testing.T, path, name string) {
	t.Helper()
	var raw [128]byte
	raw[0], raw[1], raw[2] = 0x0A, 0x47, 0x4C
	raw[18] = 0x02
	raw[4] = 0x06 // arbitrary non-directory file type
	raw[23] = byte(len(name))
	copy(raw[24:], name)
	raw[127] = 0 // filesToFollow
	require.NoError(t, os.WriteFile(path, raw[:], 0o644))
}

func TestCreateOpenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.shk")

	a, err := Create(path)
	require.NoError(t, err)
	rec := a.NewRecord("GREETING")
	err = a.AddThread(rec, record.ThreadID{Class: record.ClassData, Kind: record.KindDataFork},
		0, source.NewBufferSource([]byte("hi there")))
	require.NoError(t, err)
	_, err = a.Flush()
	require.NoError(t, err)
	require.NoError(t, a.Close())

	opened, err := Open(path)
	require.NoError(t, err)
	defer opened.Close()

	recs := opened.Records()
	require.Len(t, recs, 1)
	require.Equal(t, "GREETING", recs[0].EffectiveName())

	out := sink.NewBufferSink(64)
	require.NoError(t, opened.ExtractThread(recs[0], &recs[0].Threads[0], out))
	require.Equal(t, "hi there", string(out.Bytes()))
}

func TestOpenAnyRoutesBinary2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.bny")
	writeMinimalBinary2File(t, path, "NOTE")

	a, b2, err := OpenAny(path)
	require.NoError(t, err)
	require.Nil(t, a)
	require.NotNil(t, b2)
	require.Len(t, b2.Entries, 1)
	require.Equal(t, "NOTE", b2.Entries[0].Header.FileName)
}

func TestOpenAnyRoutesPlainArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.shk")
	a, err := Create(path)
	require.NoError(t, err)
	a.NewRecord("X")
	_, err = a.Flush()
	require.NoError(t, err)
	require.NoError(t, a.Close())

	got, b2, err := OpenAny(path)
	require.NoError(t, err)
	require.Nil(t, b2)
	require.NotNil(t, got)
	require.NoError(t, got.Close())
}
