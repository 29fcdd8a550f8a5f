package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bgrewell/nufx-kit/pkg/codec"
	"github.com/bgrewell/nufx-kit/pkg/nufxio"
	"github.com/bgrewell/nufx-kit/pkg/record"
	"github.com/bgrewell/nufx-kit/pkg/sink"
	"github.com/bgrewell/nufx-kit/pkg/source"
)

func addHelloRecord(t *testing.T, a *Archive) *record.Record {
	t.Helper()
	rec := a.NewRecord("HELLO")
	src := source.NewBufferSource([]byte("Hello, NuFX"))
	err := a.AddThread(rec, record.ThreadID{Class: record.ClassData, Kind: record.KindDataFork}, uint16(codec.FormatUncompressed), src)
	require.NoError(t, err)
	return rec
}

// TestE1TrivialAddExtract adds a single 11-byte data fork, flushes, reopens
// the archive, and confirms the extracted bytes and CRC round-trip exactly.
func TestE1TrivialAddExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e1.shk")
	cfg := DefaultConfig()

	a, err := Create(path, cfg)
	require.NoError(t, err)
	addHelloRecord(t, a)

	status, err := a.Flush()
	require.NoError(t, err)
	require.Equal(t, FlushSucceeded, status)
	require.NoError(t, a.Close())

	a2, err := OpenRead(path, DefaultConfig())
	require.NoError(t, err)
	defer a2.Close()

	recs := a2.Records()
	require.Len(t, recs, 1)
	require.Equal(t, "HELLO", recs[0].EffectiveName())
	require.Len(t, recs[0].Threads, 1)

	out := sink.NewBufferSink(64)
	require.NoError(t, a2.ExtractThread(recs[0], &recs[0].Threads[0], out))
	require.Equal(t, "Hello, NuFX", string(out.Bytes()))
	require.Equal(t, nufxio.CRC16([]byte("Hello, NuFX")), recs[0].Threads[0].CRC)
	require.Equal(t, uint16(0x3203), recs[0].Threads[0].CRC)
}

// TestE4FlushAbort stages a second thread against an existing archive, then
// aborts; the on-disk file and its modification time must be untouched.
func TestE4FlushAbort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e4.shk")
	cfg := DefaultConfig()

	a, err := Create(path, cfg)
	require.NoError(t, err)
	addHelloRecord(t, a)
	_, err = a.Flush()
	require.NoError(t, err)
	require.NoError(t, a.Close())

	before, err := os.Stat(path)
	require.NoError(t, err)

	a2, err := OpenForUpdate(path, DefaultConfig())
	require.NoError(t, err)
	rec, ok := a2.RecordByName("HELLO")
	require.True(t, ok)

	err = a2.AddThread(rec, record.ThreadID{Class: record.ClassData, Kind: record.KindRsrcFork}, uint16(codec.FormatUncompressed), source.NewBufferSource([]byte("extra")))
	require.NoError(t, err)
	require.True(t, rec.Dirty())

	require.NoError(t, a2.Abort())
	require.False(t, rec.Dirty())
	require.NoError(t, a2.Close())

	after, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, before.ModTime(), after.ModTime())
	require.Equal(t, before.Size(), after.Size())
}

// TestE5BadMasterCRC corrupts one byte of the master header and checks that
// a plain open surfaces KindBadMHCRC, while an error handler returning
// OutcomeIgnore lets the open proceed.
func TestE5BadMasterCRC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e5.shk")
	a, err := Create(path, DefaultConfig())
	require.NoError(t, err)
	addHelloRecord(t, a)
	_, err = a.Flush()
	require.NoError(t, err)
	require.NoError(t, a.Close())

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	// Flip a byte within the master header's Created timestamp (past
	// magic+CRC+TotalRecords) so the stored CRC no longer matches without
	// disturbing TotalRecords, which the parse loop depends on.
	_, err = f.WriteAt([]byte{0xFF}, 12)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = OpenRead(path, DefaultConfig())
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.Callbacks.ErrorHandler = func(ErrorProposal) Outcome { return OutcomeIgnore }
	a2, err := OpenRead(path, cfg)
	require.NoError(t, err)
	require.NoError(t, a2.Close())
}

// TestE6BXYTransparency prepends a valid Binary II header (filesToFollow=0)
// in front of a plain NuFX archive and checks that opening it enumerates
// the same record as the unwrapped archive.
func TestE6BXYTransparency(t *testing.T) {
	plainPath := filepath.Join(t.TempDir(), "plain.shk")
	a, err := Create(plainPath, DefaultConfig())
	require.NoError(t, err)
	addHelloRecord(t, a)
	_, err = a.Flush()
	require.NoError(t, err)
	require.NoError(t, a.Close())

	plainBytes, err := os.ReadFile(plainPath)
	require.NoError(t, err)

	var bnyHeader [128]byte
	bnyHeader[0], bnyHeader[1], bnyHeader[2] = 0x0A, 0x47, 0x4C
	bnyHeader[18] = 0x02
	bnyHeader[127] = 0 // filesToFollow

	wrappedPath := filepath.Join(t.TempDir(), "wrapped.bxy")
	wrapped := append(append([]byte{}, bnyHeader[:]...), plainBytes...)
	require.NoError(t, os.WriteFile(wrappedPath, wrapped, 0o644))

	aw, err := OpenRead(wrappedPath, DefaultConfig())
	require.NoError(t, err)
	defer aw.Close()

	require.Equal(t, WrapperBXY, aw.Wrapper.Kind)
	recs := aw.Records()
	require.Len(t, recs, 1)
	require.Equal(t, "HELLO", recs[0].EffectiveName())

	out := sink.NewBufferSink(64)
	require.NoError(t, aw.ExtractThread(recs[0], &recs[0].Threads[0], out))
	require.Equal(t, "Hello, NuFX", string(out.Bytes()))
}
