package archive

import (
	"io"
	"os"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
	"github.com/bgrewell/nufx-kit/pkg/record"
)

// OpenRead opens path for read-only access, choosing random-access mode
// since a regular file supports Seek; streaming mode is reserved for
// OpenStream.
func OpenRead(path string, cfg *Config) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindFileOpen, err, path)
	}
	a := &Archive{Mode: ModeFileRead, Path: path, file: f, Config: cfg}
	if err := a.parse(newRandCursor(f)); err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// OpenStream opens a non-seekable reader (a pipe, or stdin) in streaming
// mode: parsing never seeks and skips over thread data without handing
// it to any callback, so only the headers (the TOC) are available.
func OpenStream(r io.Reader, cfg *Config) (*Archive, error) {
	a := &Archive{Mode: ModeStreamRead, Path: "-", streamRd: r, Config: cfg}
	if err := a.parse(newStreamCursor(r)); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenForUpdate opens (or creates) path for read-write access. No temp
// file is created here; Flush creates one when it writes, and no on-disk
// change to the original occurs until Flush (spec.md §4.G).
func OpenForUpdate(path string, cfg *Config) (*Archive, error) {
	var a *Archive
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	switch {
	case err == nil:
		a = &Archive{Mode: ModeReadWrite, Path: path, file: f, Config: cfg}
		if err := a.parse(newRandCursor(f)); err != nil {
			f.Close()
			return nil, err
		}
	case os.IsNotExist(err):
		a = &Archive{Mode: ModeReadWrite, Path: path, Config: cfg}
		a.Master = MasterHeader{Version: 2}
	default:
		return nil, nufxerr.Wrap(nufxerr.KindFileOpen, err, path)
	}
	a.tempPath = path + ".tmp"
	return a, nil
}

// Create makes a brand-new archive at path; like OpenForUpdate on a
// missing file, but fails if path already exists.
func Create(path string, cfg *Config) (*Archive, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nufxerr.New(nufxerr.KindFileExists, path)
	}
	a := &Archive{Mode: ModeReadWrite, Path: path, Config: cfg}
	a.Master = MasterHeader{Version: 2}
	a.tempPath = path + ".tmp"
	return a, nil
}

// parse implements the open flow of spec.md §4.F: detect wrapper, parse
// the master header, then each record header and its thread headers,
// skipping over compressed data to reach the next record.
func (a *Archive) parse(c cursor) error {
	wrapped, wasSeekable, err := detectAndSkipWrapper(c)
	if err != nil {
		return err
	}
	a.Wrapper = wrapped
	log := a.Config.Logger.WithName("archive").WithValues("path", a.Path)
	if wrapped.Kind != WrapperNone {
		log.Debug("skipped wrapper", "kind", wrapped.Kind)
	}
	_ = wasSeekable

	mh, err := readMasterHeader(c)
	if err != nil {
		return err
	}
	if !verifyMasterCRC(mh) {
		log.Debug("master header CRC mismatch")
		outcome := a.Config.Callbacks.onError(ErrorProposal{Err: nufxerr.New(nufxerr.KindBadMHCRC, "master header CRC mismatch")})
		if outcome != OutcomeIgnore && outcome != OutcomeOK {
			return nufxerr.New(nufxerr.KindBadMHCRC, "master header CRC mismatch")
		}
	}
	a.Master = mh
	log.Debug("master header parsed", "records", mh.TotalRecords)

	for i := uint32(0); i < mh.TotalRecords; i++ {
		rec, err := readRecordHeader(c)
		if err != nil {
			return err
		}
		rec.Idx = a.nextID
		a.nextID++

		var offset int64
		if rc, ok := c.(*randCursor); ok {
			offset = rc.Pos()
		} else {
			offset = c.Pos()
		}

		for ti := range rec.Threads {
			rec.Threads[ti].Owner = rec.Idx
			rec.Threads[ti].DataOffset = offset
			offset += int64(rec.Threads[ti].CompEOF)
		}

		if err := c.Discard(offset - currentPos(c)); err != nil && err != io.EOF {
			return nufxerr.Wrap(nufxerr.KindFileRead, err, "skip thread data")
		}

		a.resolveFilenameThread(rec, c)
		a.toc = append(a.toc, rec)
	}
	return nil
}

func currentPos(c cursor) int64 { return c.Pos() }

// resolveFilenameThread reads a filename-class thread's content (always
// uncompressed by convention) to populate the record's effective name
// when no inline filename was present. Streaming mode has already passed
// that data by the time the record header is fully parsed, so only
// random-access mode can seek back for it; in streaming mode a record
// without an inline filename is left without a resolved name.
func (a *Archive) resolveFilenameThread(rec *record.Record, c cursor) {
	if rec.InlineFilename != "" {
		return
	}
	if rc, ok := c.(*randCursor); ok {
		if ft, ok := rec.FilenameThread(); ok {
			saved := rc.Pos()
			if err := rc.SeekTo(ft.DataOffset); err == nil {
				buf := make([]byte, ft.CompEOF)
				if _, err := io.ReadFull(rc.r, buf); err == nil {
					rec.InlineFilename = string(buf)
				}
				rc.SeekTo(saved)
			}
		}
	}
}
