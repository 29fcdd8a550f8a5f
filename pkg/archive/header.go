package archive

import (
	"bytes"
	"io"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
	"github.com/bgrewell/nufx-kit/pkg/nufxio"
	"github.com/bgrewell/nufx-kit/pkg/record"
)

// Master header magic: "NuFile" with the high bit set on bytes 1, 3 and 5
// ('u', 'i', 'e') (spec.md §6).
var masterMagic = [6]byte{0x4E, 0xF5, 0x46, 0xE9, 0x6C, 0xE5}

// Record header magic: "NuFX" with the high bit set on bytes 1 and 3
// ('u' and 'X') (spec.md §6).
var recordMagic = [4]byte{0x4E, 0xF5, 0x46, 0xD8}

const (
	maxMasterVersion = 2
	maxRecordVersion = 3
	ourRecordVersion = 3

	masterHeaderFixedLen = 48 // through the 6 trailing reserved bytes
	threadHeaderLen      = 16
)

// MasterHeader is the NuFX archive-level header (spec.md §3/§6).
type MasterHeader struct {
	CRC          uint16
	TotalRecords uint32
	Created      nufxio.TimeRec
	Modified     nufxio.TimeRec
	Version      uint16
	MasterEOF    uint32
}

// marshal encodes the master header with crc set to the placeholder value
// supplied (normally 0, or the true CRC once known).
func (h MasterHeader) marshal(crc uint16) []byte {
	var buf bytes.Buffer
	buf.Write(masterMagic[:])
	nufxio.WriteUint16LE(&buf, crc)
	nufxio.WriteUint32LE(&buf, h.TotalRecords)
	ct := h.Created.Marshal()
	buf.Write(ct[:])
	mt := h.Modified.Marshal()
	buf.Write(mt[:])
	nufxio.WriteUint16LE(&buf, h.Version)
	buf.Write(make([]byte, 8)) // reserved
	nufxio.WriteUint32LE(&buf, h.MasterEOF)
	buf.Write(make([]byte, 6)) // reserved
	return buf.Bytes()
}

func readMasterHeader(r io.Reader) (MasterHeader, error) {
	var magic [6]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return MasterHeader{}, nufxerr.Wrap(nufxerr.KindNotNuFX, err, "master header magic")
	}
	if magic != masterMagic {
		return MasterHeader{}, nufxerr.New(nufxerr.KindNotNuFX, "master header magic mismatch")
	}
	crc, err := nufxio.ReadUint16LE(r)
	if err != nil {
		return MasterHeader{}, nufxerr.Wrap(nufxerr.KindBadRecord, err, "master CRC")
	}
	totalRecords, err := nufxio.ReadUint32LE(r)
	if err != nil {
		return MasterHeader{}, nufxerr.Wrap(nufxerr.KindBadRecord, err, "master total records")
	}
	createdB, err := nufxio.ReadBytes(r, 8)
	if err != nil {
		return MasterHeader{}, nufxerr.Wrap(nufxerr.KindBadRecord, err, "master created time")
	}
	modB, err := nufxio.ReadBytes(r, 8)
	if err != nil {
		return MasterHeader{}, nufxerr.Wrap(nufxerr.KindBadRecord, err, "master modified time")
	}
	version, err := nufxio.ReadUint16LE(r)
	if err != nil {
		return MasterHeader{}, nufxerr.Wrap(nufxerr.KindBadRecord, err, "master version")
	}
	if _, err := nufxio.ReadBytes(r, 8); err != nil { // reserved
		return MasterHeader{}, nufxerr.Wrap(nufxerr.KindBadRecord, err, "master reserved")
	}
	masterEOF, err := nufxio.ReadUint32LE(r)
	if err != nil {
		return MasterHeader{}, nufxerr.Wrap(nufxerr.KindBadRecord, err, "master EOF")
	}
	if _, err := nufxio.ReadBytes(r, 6); err != nil { // reserved
		return MasterHeader{}, nufxerr.Wrap(nufxerr.KindBadRecord, err, "master reserved")
	}
	if version > maxMasterVersion {
		return MasterHeader{}, nufxerr.New(nufxerr.KindBadMHVersion, "unsupported master header version")
	}
	h := MasterHeader{
		CRC:          crc,
		TotalRecords: totalRecords,
		Created:      nufxio.UnmarshalTimeRec(createdB),
		Modified:     nufxio.UnmarshalTimeRec(modB),
		Version:      version,
		MasterEOF:    masterEOF,
	}
	return h, nil
}

// verifyMasterCRC recomputes the master header CRC with the stored field
// zeroed and compares it to crc.
func verifyMasterCRC(h MasterHeader) bool {
	body := h.marshal(0)
	// CRC is computed over everything after the magic+CRC fields.
	got := nufxio.CRC16(body[8:])
	return got == h.CRC
}

func computeMasterCRC(h MasterHeader) uint16 {
	body := h.marshal(0)
	return nufxio.CRC16(body[8:])
}

// recordHeaderFields mirrors spec.md §6's record header layout, minus the
// variable-length option list / extra bytes / inline filename, which are
// read separately since their lengths depend on earlier fields.
type recordHeaderFields struct {
	AttribCount uint16
	Version     uint16
	TotalThreads uint32
	FileSysID   uint16
	FileSysInfo uint16
	Access      uint32
	FileType    uint32
	AuxType     uint32
	StorageType uint16
	Created     nufxio.TimeRec
	Modified    nufxio.TimeRec
	Archived    nufxio.TimeRec
}

// readRecordHeader parses one record header (plus its thread headers) at
// the reader's current position, returning the Record (without thread
// data offsets resolved); its Threads slice holds the declared threads.
func readRecordHeader(r io.Reader) (*record.Record, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindRecHdrNotFound, err, "record magic")
	}
	if magic != recordMagic {
		return nil, nufxerr.New(nufxerr.KindRecHdrNotFound, "record magic mismatch")
	}

	headerCRC, err := nufxio.ReadUint16LE(r)
	if err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "record header CRC")
	}

	var f recordHeaderFields
	if f.AttribCount, err = nufxio.ReadUint16LE(r); err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "attrib count")
	}
	if f.Version, err = nufxio.ReadUint16LE(r); err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "version")
	}
	if f.Version > maxRecordVersion {
		return nil, nufxerr.New(nufxerr.KindBadRecord, "unsupported record version")
	}
	if f.TotalThreads, err = nufxio.ReadUint32LE(r); err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "total threads")
	}
	if f.FileSysID, err = nufxio.ReadUint16LE(r); err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "filesys id")
	}
	if f.FileSysInfo, err = nufxio.ReadUint16LE(r); err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "filesys info")
	}
	if f.Access, err = nufxio.ReadUint32LE(r); err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "access")
	}
	if f.FileType, err = nufxio.ReadUint32LE(r); err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "file type")
	}
	if f.AuxType, err = nufxio.ReadUint32LE(r); err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "aux type")
	}
	if f.StorageType, err = nufxio.ReadUint16LE(r); err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "storage type")
	}
	createdB, err := nufxio.ReadBytes(r, 8)
	if err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "created time")
	}
	modB, err := nufxio.ReadBytes(r, 8)
	if err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "modified time")
	}
	archB, err := nufxio.ReadBytes(r, 8)
	if err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "archived time")
	}

	rec := &record.Record{
		AttribCount: f.AttribCount,
		Version:     f.Version,
		FileSysID:   f.FileSysID,
		FileSysInfo: f.FileSysInfo,
		Access:      record.Access(f.Access),
		FileType:    f.FileType,
		AuxType:     f.AuxType,
		StorageType: f.StorageType,
		Created:     nufxio.UnmarshalTimeRec(createdB),
		Modified:    nufxio.UnmarshalTimeRec(modB),
		Archived:    nufxio.UnmarshalTimeRec(archB),
	}

	if f.Version >= 1 {
		optLen, err := nufxio.ReadUint16LE(r)
		if err != nil {
			return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "option list length")
		}
		if optLen > 0 {
			rec.OptionList, err = nufxio.ReadBytes(r, int(optLen))
			if err != nil {
				return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "option list")
			}
		}
	}

	// Fixed fields consumed so far: magic(4)+crc(2)+attrib(2)+version(2)+
	// threads(4)+fsid(2)+fsinfo(2)+access(4)+type(4)+aux(4)+storage(2)+
	// 3*time(24) = 56, plus option list if v1+.
	consumed := 56
	if f.Version >= 1 {
		consumed += 2 + len(rec.OptionList)
	}
	padLen := int(f.AttribCount) - consumed
	if padLen > 0 {
		rec.ExtraBytes, err = nufxio.ReadBytes(r, padLen)
		if err != nil {
			return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "extra bytes")
		}
	}

	nameLen, err := nufxio.ReadUint16LE(r)
	if err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "filename length")
	}
	if nameLen > 0 {
		nameB, err := nufxio.ReadBytes(r, int(nameLen))
		if err != nil {
			return nil, nufxerr.Wrap(nufxerr.KindBadRecord, err, "inline filename")
		}
		rec.InlineFilename = string(nameB)
	}

	_ = headerCRC // read but not checked against the header bytes
	rec.Threads = make([]record.Thread, f.TotalThreads)
	for i := range rec.Threads {
		th, err := readThreadHeader(r)
		if err != nil {
			return nil, err
		}
		th.Idx = record.ThreadIdx(i)
		rec.Threads[i] = th
	}

	return rec, nil
}

func readThreadHeader(r io.Reader) (record.Thread, error) {
	var t record.Thread
	class, err := nufxio.ReadUint16LE(r)
	if err != nil {
		return t, nufxerr.Wrap(nufxerr.KindBadRecord, err, "thread class")
	}
	format, err := nufxio.ReadUint16LE(r)
	if err != nil {
		return t, nufxerr.Wrap(nufxerr.KindBadRecord, err, "thread format")
	}
	kind, err := nufxio.ReadUint16LE(r)
	if err != nil {
		return t, nufxerr.Wrap(nufxerr.KindBadRecord, err, "thread kind")
	}
	crc, err := nufxio.ReadUint16LE(r)
	if err != nil {
		return t, nufxerr.Wrap(nufxerr.KindBadRecord, err, "thread crc")
	}
	eof, err := nufxio.ReadUint32LE(r)
	if err != nil {
		return t, nufxerr.Wrap(nufxerr.KindBadRecord, err, "thread eof")
	}
	compEOF, err := nufxio.ReadUint32LE(r)
	if err != nil {
		return t, nufxerr.Wrap(nufxerr.KindBadRecord, err, "thread compEOF")
	}
	t.ID = record.ThreadID{Class: record.ThreadClass(class), Kind: record.ThreadKind(kind)}
	t.Format = format
	t.CRC = crc
	t.EOF = eof
	t.CompEOF = compEOF
	t.ActualEOF = eof
	return t, nil
}

// writeThreadHeader serializes a thread header in the 16-byte on-disk
// layout (spec.md §6).
func writeThreadHeader(w io.Writer, t record.Thread) error {
	if err := nufxio.WriteUint16LE(w, uint16(t.ID.Class)); err != nil {
		return err
	}
	if err := nufxio.WriteUint16LE(w, t.Format); err != nil {
		return err
	}
	if err := nufxio.WriteUint16LE(w, uint16(t.ID.Kind)); err != nil {
		return err
	}
	if err := nufxio.WriteUint16LE(w, t.CRC); err != nil {
		return err
	}
	if err := nufxio.WriteUint32LE(w, t.EOF); err != nil {
		return err
	}
	return nufxio.WriteUint32LE(w, t.CompEOF)
}

// marshalRecordHeader serializes everything through the thread array,
// with headerCRC as given (0 for the first pass, the real value for the
// rewrite pass); it returns the serialized bytes, using rec.AttribCount
// as stored.
func marshalRecordHeader(rec *record.Record, headerCRC uint16) []byte {
	var body bytes.Buffer // everything after magic+crc, used for CRC + for real output

	nufxio.WriteUint16LE(&body, rec.AttribCount)
	nufxio.WriteUint16LE(&body, rec.Version)
	nufxio.WriteUint32LE(&body, uint32(len(rec.Threads)))
	nufxio.WriteUint16LE(&body, rec.FileSysID)
	nufxio.WriteUint16LE(&body, rec.FileSysInfo)
	nufxio.WriteUint32LE(&body, uint32(rec.Access))
	nufxio.WriteUint32LE(&body, rec.FileType)
	nufxio.WriteUint32LE(&body, rec.AuxType)
	nufxio.WriteUint16LE(&body, rec.StorageType)
	ct := rec.Created.Marshal()
	body.Write(ct[:])
	mt := rec.Modified.Marshal()
	body.Write(mt[:])
	at := rec.Archived.Marshal()
	body.Write(at[:])
	if rec.Version >= 1 {
		nufxio.WriteUint16LE(&body, uint16(len(rec.OptionList)))
		body.Write(rec.OptionList)
	}
	body.Write(rec.ExtraBytes)
	nufxio.WriteUint16LE(&body, uint16(len(rec.InlineFilename)))
	body.WriteString(rec.InlineFilename)

	for _, t := range rec.Threads {
		writeThreadHeader(&body, t)
	}

	var out bytes.Buffer
	out.Write(recordMagic[:])
	nufxio.WriteUint16LE(&out, headerCRC)
	out.Write(body.Bytes())
	return out.Bytes()
}

func computeRecordCRC(rec *record.Record) uint16 {
	full := marshalRecordHeader(rec, 0)
	return nufxio.CRC16(full[6:]) // skip magic(4)+crc(2)
}
