package nufxio

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCRC16KnownValue(t *testing.T) {
	require.Equal(t, uint16(0x3203), CRC16([]byte("Hello, NuFX")))
}

func TestCRC16UpdateIsIncremental(t *testing.T) {
	whole := CRC16([]byte("Hello, NuFX"))
	partial := CRCUpdate(CRCUpdate(0, []byte("Hello, ")), []byte("NuFX"))
	require.Equal(t, whole, partial)
}

func TestTimeRecRoundTrip(t *testing.T) {
	want := time.Date(1995, time.May, 14, 12, 0, 0, 0, time.UTC)
	tr := TimeRecFromTime(want)
	require.Equal(t, want, tr.Time())

	marshaled := tr.Marshal()
	back := UnmarshalTimeRec(marshaled[:])
	require.Equal(t, tr, back)
}

func TestTimeRecZeroIsNoDate(t *testing.T) {
	var tr TimeRec
	require.True(t, tr.IsZero())
	require.True(t, tr.Time().IsZero())
}

func TestTimeRecRejectsImpossibleDate(t *testing.T) {
	tr := TimeRec{Day: 30, Month: 1} // Feb 31st, 0-based fields
	require.True(t, tr.Time().IsZero())
}

func TestLittleEndianRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint16LE(&buf, 0xABCD))
	require.NoError(t, WriteUint32LE(&buf, 0xDEADBEEF))

	v16, err := ReadUint16LE(&buf)
	require.NoError(t, err)
	require.Equal(t, uint16(0xABCD), v16)

	v32, err := ReadUint32LE(&buf)
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v32)
}
