// Package binary2 decodes Binary II (BNY) archives: the 128-byte-block
// transfer format ShrinkIt's predecessors used, which may itself carry a
// SQueezed payload (spec.md §4.H/§6, grounded on
// original_source/nulib2/Binary2.c's BNYDecodeHeader/BNYIterate).
package binary2

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/bgrewell/nufx-kit/pkg/codec"
	"github.com/bgrewell/nufx-kit/pkg/logging"
	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
	"github.com/bgrewell/nufx-kit/pkg/sink"
)

// BlockSize is the fixed unit Binary II streams data in.
const BlockSize = 128

// Entry is one Binary II directory entry, decoded from a 128-byte header
// block per the File Type Note for $e0/8000 offsets BNYDecodeHeader uses.
type Entry struct {
	Access         uint16
	FileType       uint16
	AuxType        uint32
	StorageType    byte
	FileSize       uint32 // 512-byte blocks
	Modified       time.Time
	Created        time.Time
	EOF            uint32
	RealEOF        uint32 // 0 for directories, which carry no content
	FileName       string
	NativeName     string
	DiskSpace      uint32
	OSType         byte
	NativeFileType uint16
	PhantomFlag    byte
	DataFlags      byte
	Version        byte
	FilesToFollow  byte
}

const (
	flagCompressed = 1 << 7
	flagEncrypted  = 1 << 6
	flagSparse     = 1
)

// IsDirectory reports whether this entry represents a directory rather
// than file data. Nulib2 compares against file type 15 (DIR) rather than
// storage type 0x0D, and this mirrors that choice for compatibility.
func (e *Entry) IsDirectory() bool { return e.FileType == 15 }

// IsReadOnly reports the locked-file access conventions BNY archives use.
func (e *Entry) IsReadOnly() bool { return e.Access == 0x21 || e.Access == 0x01 }

// decodeHeader parses one 128-byte block into an Entry.
func decodeHeader(raw [BlockSize]byte) (Entry, error) {
	if raw[0] != 0x0A || raw[1] != 0x47 || raw[2] != 0x4C || raw[18] != 0x02 {
		return Entry{}, nufxerr.New(nufxerr.KindBadData, "not a Binary II header block")
	}

	var e Entry
	e.Access = uint16(raw[3]) | uint16(raw[111])<<8
	e.FileType = uint16(raw[4]) | uint16(raw[112])<<8
	e.AuxType = uint32(raw[5]) | uint32(raw[6])<<8 | uint32(raw[109])<<16 | uint32(raw[110])<<24
	e.StorageType = raw[7]
	e.FileSize = uint32(raw[8]) | uint32(raw[9])<<8

	modDate := uint16(raw[10]) | uint16(raw[11])<<8
	modTime := uint16(raw[12]) | uint16(raw[13])<<8
	e.Modified = prodosToTime(modDate, modTime)
	createDate := uint16(raw[14]) | uint16(raw[15])<<8
	createTime := uint16(raw[16]) | uint16(raw[17])<<8
	e.Created = prodosToTime(createDate, createTime)

	e.EOF = uint32(raw[20]) | uint32(raw[21])<<8 | uint32(raw[22])<<16 | uint32(raw[116])<<24

	nameLen := int(raw[23])
	if nameLen > 64 {
		return Entry{}, nufxerr.New(nufxerr.KindBadData, "invalid binary2 filename length")
	}
	e.FileName = string(raw[24 : 24+nameLen])

	if nameLen <= 15 && raw[39] != 0 {
		nativeLen := int(raw[39])
		if nativeLen > 48 {
			return Entry{}, nufxerr.New(nufxerr.KindBadData, "invalid binary2 native filename length")
		}
		e.NativeName = string(raw[40 : 40+nativeLen])
	}

	e.DiskSpace = uint32(raw[117]) | uint32(raw[118])<<8 | uint32(raw[119])<<16 | uint32(raw[120])<<24
	e.OSType = raw[121]
	e.NativeFileType = uint16(raw[122]) | uint16(raw[123])<<8
	e.PhantomFlag = raw[124]
	e.DataFlags = raw[125]
	e.Version = raw[126]
	e.FilesToFollow = raw[127]

	if e.IsDirectory() {
		e.RealEOF = 0
	} else {
		e.RealEOF = e.EOF
	}
	return e, nil
}

// prodosToTime converts ProDOS's packed date/time pair into a time.Time,
// per BNYConvertDateTime's bit layout (year stored as an offset from 1900,
// with a Y2K rollover at 40 the way ProDOS 8 conventionally interprets it).
func prodosToTime(date, t uint16) time.Time {
	if date == 0 {
		return time.Time{}
	}
	day := int(date & 0x1f)
	month := int((date >> 5) & 0x0f)
	year := int((date >> 9) & 0x7f)
	if year < 40 {
		year += 100
	}
	minute := int(t & 0x3f)
	hour := int((t >> 8) & 0x1f)
	return time.Date(1900+year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
}

// IsSqueezed reports whether data begins with the SQueeze magic NuLib2
// sniffs for before trusting a BNY payload's first two bytes.
func IsSqueezed(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x76 && data[1] == 0xFF
}

// Decoder iterates the entries of a Binary II stream. It never seeks, so
// it works equally well on a regular file or a pipe (spec.md §4.H).
type Decoder struct {
	r       io.Reader
	logger  *logging.Logger
	started bool
	toFollow int
}

// NewDecoder wraps r. logger may be nil, in which case filesToFollow
// mismatches (spec.md §9's Open Question: warn, don't abort) are silently
// dropped.
func NewDecoder(r io.Reader, logger *logging.Logger) *Decoder {
	return &Decoder{r: r, logger: logger, toFollow: 1}
}

// Next decodes the next entry and returns its full data payload (for a
// directory, a nil slice). It returns io.EOF once the archive's declared
// filesToFollow chain is exhausted.
func (d *Decoder) Next() (*Entry, []byte, error) {
	if d.started && d.toFollow == 0 {
		return nil, nil, io.EOF
	}

	var block [BlockSize]byte
	if _, err := io.ReadFull(d.r, block[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, nil, io.EOF
		}
		return nil, nil, nufxerr.Wrap(nufxerr.KindFileRead, err, "binary2 header block")
	}

	entry, err := decodeHeader(block)
	if err != nil {
		return nil, nil, err
	}

	if d.started {
		expected := d.toFollow - 1
		if int(entry.FilesToFollow) != expected && d.logger != nil {
			d.logger.WithName("binary2").WithValues("entry", entry.FileName).
				Info("filesToFollow mismatch, continuing anyway",
					"got", entry.FilesToFollow, "expected", expected)
		}
	}
	d.started = true
	d.toFollow = int(entry.FilesToFollow)

	if entry.RealEOF == 0 {
		return &entry, nil, nil
	}

	nblocks := (entry.RealEOF + BlockSize - 1) / BlockSize
	data := make([]byte, nblocks*BlockSize)
	if _, err := io.ReadFull(d.r, data); err != nil {
		return nil, nil, nufxerr.Wrap(nufxerr.KindFileRead, err, "binary2 data blocks")
	}
	return &entry, data[:entry.RealEOF], nil
}

// EffectiveFileName strips a ".QQ"/".qq" extension from a squeezed
// entry's stored name, matching BNYExtract's filename normalization
// (the SQ header's own embedded filename is intentionally ignored).
func EffectiveFileName(entry *Entry, data []byte) string {
	name := entry.FileName
	if IsSqueezed(data) && len(name) > 3 {
		ext := name[len(name)-3:]
		if strings.EqualFold(ext, ".qq") {
			return name[:len(name)-3]
		}
	}
	return name
}

// Extract writes one entry's content to dst, transparently expanding a
// SQueezed payload through the shared SQ codec (the BNY-embedded format is
// byte-identical to the NuFX SQ thread format, filename field included).
func Extract(entry *Entry, data []byte, dst *sink.Sink) error {
	if entry.IsDirectory() || len(data) == 0 {
		return nil
	}
	if IsSqueezed(data) {
		sq := codec.SQCodec{}
		_, err := sq.Decode(dst, bytes.NewReader(data), -1)
		return err
	}
	_, err := dst.Write(data)
	return err
}
