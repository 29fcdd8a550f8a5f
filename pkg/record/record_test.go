package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasDataClassKind(t *testing.T) {
	rec := &Record{Threads: []Thread{
		{ID: ThreadID{Class: ClassData, Kind: KindDataFork}},
	}}
	require.True(t, rec.HasDataClassKind(KindDataFork))
	require.False(t, rec.HasDataClassKind(KindRsrcFork))
}

func TestIsPresizedAndPresizeReserve(t *testing.T) {
	filename := Thread{ID: ThreadID{Class: ClassFilename, Kind: KindFilename}}
	require.True(t, filename.IsPresized())
	require.Equal(t, uint32(DefaultFilenameReserve), filename.PresizeReserve())

	comment := Thread{ID: ThreadID{Class: ClassMessage, Kind: KindComment}}
	require.True(t, comment.IsPresized())
	require.Equal(t, uint32(DefaultCommentReserve), comment.PresizeReserve())

	data := Thread{ID: ThreadID{Class: ClassData, Kind: KindDataFork}}
	require.False(t, data.IsPresized())
	require.Equal(t, uint32(0), data.PresizeReserve())
}

func TestHasPresizedKind(t *testing.T) {
	rec := &Record{Threads: []Thread{
		{ID: ThreadID{Class: ClassFilename, Kind: KindFilename}},
	}}
	require.True(t, rec.HasPresizedKind(ThreadID{Class: ClassFilename, Kind: KindFilename}))
	require.False(t, rec.HasPresizedKind(ThreadID{Class: ClassMessage, Kind: KindComment}))
}

func TestEffectiveNameFallsBackToInline(t *testing.T) {
	rec := &Record{InlineFilename: "FILE.TXT"}
	require.Equal(t, "FILE.TXT", rec.EffectiveName())
}

func TestFilenameThreadLookup(t *testing.T) {
	rec := &Record{Threads: []Thread{
		{ID: ThreadID{Class: ClassFilename, Kind: KindFilename}},
		{ID: ThreadID{Class: ClassData, Kind: KindDataFork}},
	}}
	th, ok := rec.FilenameThread()
	require.True(t, ok)
	require.Equal(t, ClassFilename, th.ID.Class)
}

func TestThreadByIdxBounds(t *testing.T) {
	rec := &Record{Threads: []Thread{{}, {}}}
	_, ok := rec.ThreadByIdx(1)
	require.True(t, ok)
	_, ok = rec.ThreadByIdx(2)
	require.False(t, ok)
	_, ok = rec.ThreadByIdx(-1)
	require.False(t, ok)
}

func TestThreadByIDWildcardMatchesAny(t *testing.T) {
	rec := &Record{Threads: []Thread{
		{ID: ThreadID{Class: ClassData, Kind: KindDataFork}},
	}}
	th, ok := rec.ThreadByID(Wildcard)
	require.True(t, ok)
	require.Equal(t, ClassData, th.ID.Class)

	empty := &Record{}
	_, ok = empty.ThreadByID(Wildcard)
	require.False(t, ok)
}

func TestDirtyAndMarkHeaderDirty(t *testing.T) {
	rec := &Record{}
	require.False(t, rec.Dirty())
	rec.MarkHeaderDirty()
	require.True(t, rec.Dirty())
}

func TestPathSeparatorDefault(t *testing.T) {
	rec := &Record{}
	require.Equal(t, byte('/'), rec.PathSeparator())

	rec.FileSysInfo = uint16(':')
	require.Equal(t, byte(':'), rec.PathSeparator())
	require.Equal(t, []string{"A", "B"}, rec.SplitPath("A:B"))
}
