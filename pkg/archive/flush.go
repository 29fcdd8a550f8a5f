package archive

import (
	"io"
	"os"

	"github.com/google/renameio"

	"github.com/bgrewell/nufx-kit/pkg/codec"
	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
	"github.com/bgrewell/nufx-kit/pkg/record"
)

// FlushStatus is the OR-ed outcome flag set spec.md §4.G step 6 defines.
type FlushStatus int

const (
	FlushSucceeded     FlushStatus = 1 << iota
	FlushAborted
	FlushCorrupted
	FlushReadOnly
	FlushInaccessible
)

// Flush applies every staged ThreadMod and record deletion, writing a new
// archive to a temp file and atomically renaming it over the original
// (spec.md §4.G). With no pending modifications it succeeds silently.
func (a *Archive) Flush() (FlushStatus, error) {
	release, err := a.enter()
	if err != nil {
		return 0, err
	}
	defer release()

	if a.Mode != ModeReadWrite {
		return FlushReadOnly, nufxerr.New(nufxerr.KindArchiveRO, "archive is read-only")
	}

	if !a.hasPendingChanges() {
		return FlushSucceeded, nil
	}

	target, writes, err := a.buildTargetTOC()
	if err != nil {
		return FlushAborted, err
	}
	if len(target) == 0 && !a.Config.AllowEmptyArchive {
		return FlushAborted, nufxerr.New(nufxerr.KindAllDeleted, "flush would delete every record")
	}
	if len(target) == 0 {
		// Allowed empty-archive policy: delete the archive file itself.
		if a.file != nil {
			a.file.Close()
			a.file = nil
		}
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			return FlushInaccessible, nufxerr.Wrap(nufxerr.KindFlushInaccessible, err, a.Path)
		}
		a.toc = nil
		a.clearPending()
		return FlushSucceeded, nil
	}

	pf, err := renameio.TempFile("", a.Path)
	if err != nil {
		return FlushInaccessible, nufxerr.Wrap(nufxerr.KindFileOpen, err, "temp file")
	}
	defer pf.Cleanup()

	placeholder := a.Master.marshal(0)
	if _, err := pf.Write(placeholder); err != nil {
		return FlushAborted, nufxerr.Wrap(nufxerr.KindFileWrite, err, "master header placeholder")
	}

	for _, rec := range target {
		if err := a.flushRecord(pf.File, rec, writes[rec.Idx]); err != nil {
			return FlushAborted, err
		}
	}

	eof, err := pf.File.Seek(0, io.SeekCurrent)
	if err != nil {
		return FlushAborted, nufxerr.Wrap(nufxerr.KindFileSeek, err, "master EOF")
	}
	finalMH := MasterHeader{
		TotalRecords: uint32(len(target)),
		Created:      a.Master.Created,
		Modified:     a.Master.Modified,
		Version:      a.Master.Version,
		MasterEOF:    uint32(eof),
	}
	finalMH.CRC = computeMasterCRC(finalMH)
	if _, err := pf.File.Seek(0, io.SeekStart); err != nil {
		return FlushAborted, nufxerr.Wrap(nufxerr.KindFileSeek, err, "master header rewrite")
	}
	if _, err := pf.File.Write(finalMH.marshal(finalMH.CRC)); err != nil {
		return FlushAborted, nufxerr.Wrap(nufxerr.KindFileWrite, err, "master header rewrite")
	}

	if err := pf.CloseAtomicallyReplace(); err != nil {
		return FlushInaccessible, nufxerr.Wrap(nufxerr.KindFlushInaccessible, err, "atomic rename")
	}

	a.Master = finalMH
	a.toc = target
	a.clearPending()

	if a.file != nil {
		a.file.Close()
	}
	f, err := os.Open(a.Path)
	if err == nil {
		a.file = f
	}
	return FlushSucceeded, nil
}

// Abort discards any staged modifications without touching the archive
// file; the TOC reverts to its pre-modification state.
func (a *Archive) Abort() error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()
	a.clearPending()
	return nil
}

func (a *Archive) hasPendingChanges() bool {
	if len(a.deletedRecords) > 0 {
		return true
	}
	for _, r := range a.toc {
		if r.Dirty() {
			return true
		}
	}
	return false
}

func (a *Archive) clearPending() {
	a.deletedRecords = nil
	for _, r := range a.toc {
		r.Mods = nil
		r.MarkedForDeletion = false
	}
}

// buildTargetTOC applies deletions and per-record ThreadMods to an
// in-memory copy of the TOC, in original order, per spec.md §4.G step 2.
func (a *Archive) buildTargetTOC() ([]*record.Record, map[record.RecordIdx][]pendingWrite, error) {
	var target []*record.Record
	writes := make(map[record.RecordIdx][]pendingWrite)
	for _, rec := range a.toc {
		if a.deletedRecords[rec.Idx] {
			continue
		}
		next, w, err := applyMods(rec)
		if err != nil {
			return nil, nil, err
		}
		target = append(target, next)
		writes[next.Idx] = w
	}
	return target, writes, nil
}

// pendingWrite pairs a surviving thread with the staged source (and, for
// a presized update, its length cap) that flushThread must encode; it is
// nil for a thread carried over unchanged from the original archive.
type pendingWrite struct {
	source interface{}
	maxLen uint32
}

// applyMods derives the post-flush thread array for rec from its pending
// Mods, in queued order (spec.md §5: "pending modifications apply in the
// order they were queued"), along with a parallel slice of pending writes
// aligned index-for-index with the returned record's Threads. Indices are
// tracked alongside the reindexing itself so a delete earlier in the
// array never desynchronizes a later presize/add's staged source.
func applyMods(rec *record.Record) (*record.Record, []pendingWrite, error) {
	next := *rec
	threads := append([]record.Thread(nil), rec.Threads...)
	writes := make([]pendingWrite, len(threads)) // nil entries: carried over as-is
	deleted := make(map[int]bool)

	for _, m := range rec.Mods {
		switch m.Kind {
		case record.ModAdd:
			threads = append(threads, record.Thread{
				Owner:  rec.Idx,
				Idx:    record.ThreadIdx(len(threads)),
				ID:     m.NewID,
				Format: m.NewFormat,
			})
			writes = append(writes, pendingWrite{source: m.Source})
		case record.ModUpdatePresized:
			if int(m.TargetIdx) >= len(threads) {
				return nil, nil, nufxerr.New(nufxerr.KindThreadIdxNotFound, "presized target thread missing")
			}
			writes[m.TargetIdx] = pendingWrite{source: m.Source, maxLen: m.MaxLen}
		case record.ModDelete:
			if int(m.TargetIdx) >= len(threads) {
				return nil, nil, nufxerr.New(nufxerr.KindThreadIdxNotFound, "delete target thread missing")
			}
			deleted[int(m.TargetIdx)] = true
		}
	}

	var kept []record.Thread
	var keptWrites []pendingWrite
	for i, t := range threads {
		if deleted[i] {
			continue
		}
		t.Idx = record.ThreadIdx(len(kept))
		kept = append(kept, t)
		keptWrites = append(keptWrites, writes[i])
	}
	next.Threads = kept
	next.Mods = nil
	return &next, keptWrites, nil
}

// flushRecord writes one record's header, thread headers, and thread
// data to w (the temp file), then seeks back to patch the headers with
// real CRC/EOF values (spec.md §4.G step 4).
func (a *Archive) flushRecord(w *os.File, rec *record.Record, writes []pendingWrite) error {
	headerOffset, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nufxerr.Wrap(nufxerr.KindFileSeek, err, "record header offset")
	}

	header := marshalRecordHeader(rec, 0)
	if _, err := w.Write(header); err != nil {
		return nufxerr.Wrap(nufxerr.KindFileWrite, err, "record header")
	}

	threadHeaderOffsets := make([]int64, len(rec.Threads))
	headerEnd, _ := w.Seek(0, io.SeekCurrent)
	// Thread headers sit at the tail of the record header block, one
	// after another; recompute their offsets from the serialized layout.
	tailLen := int64(len(rec.Threads)) * threadHeaderLen
	base := headerEnd - tailLen
	for i := range rec.Threads {
		threadHeaderOffsets[i] = base + int64(i)*threadHeaderLen
	}

	for i := range rec.Threads {
		t := &rec.Threads[i]
		if err := a.flushThread(w, rec, t, writes[i]); err != nil {
			return err
		}
	}

	// Patch thread headers with final CRC/EOF/compEOF.
	endOfRecord, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nufxerr.Wrap(nufxerr.KindFileSeek, err, "end of record")
	}
	for i, t := range rec.Threads {
		if _, err := w.Seek(threadHeaderOffsets[i], io.SeekStart); err != nil {
			return nufxerr.Wrap(nufxerr.KindFileSeek, err, "thread header rewrite")
		}
		if err := writeThreadHeader(w, t); err != nil {
			return nufxerr.Wrap(nufxerr.KindFileWrite, err, "thread header rewrite")
		}
	}

	// Patch the record header CRC.
	crc := computeRecordCRC(rec)
	if _, err := w.Seek(headerOffset+4, io.SeekStart); err != nil { // past magic(4)
		return nufxerr.Wrap(nufxerr.KindFileSeek, err, "record header crc rewrite")
	}
	if err := writeCRC(w, crc); err != nil {
		return err
	}

	if _, err := w.Seek(endOfRecord, io.SeekStart); err != nil {
		return nufxerr.Wrap(nufxerr.KindFileSeek, err, "resume after record")
	}
	rec.HeaderOffset = headerOffset
	return nil
}

func writeCRC(w io.Writer, crc uint16) error {
	var b [2]byte
	b[0] = byte(crc)
	b[1] = byte(crc >> 8)
	_, err := w.Write(b[:])
	return err
}

// flushThread streams one thread's bytes into w: a surviving unmodified
// thread is copied as-is from the original archive file; an added or
// updated thread is pulled from its staged source through the selected
// encoder. Presized threads are padded with zeros to their reservation.
func (a *Archive) flushThread(w *os.File, rec *record.Record, t *record.Thread, pw pendingWrite) error {
	name := rec.EffectiveName()
	if a.Config.Callbacks.onProgress(ProgressUpdate{Kind: ProgressThreadStart, RecordName: name, ThreadIdx: int(t.Idx)}) == OutcomeAbort {
		return nufxerr.New(nufxerr.KindAborted, "flush aborted by caller")
	}

	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nufxerr.Wrap(nufxerr.KindFileSeek, err, "thread data offset")
	}

	var res codec.Result
	if pw.source != nil {
		res, err = a.encodeFromSource(w, t, pw.source)
		if closer, ok := pw.source.(io.Closer); ok {
			_ = closer.Close()
		}
		if err == nil && pw.maxLen > 0 && res.Length > pw.maxLen {
			return nufxerr.New(nufxerr.KindPreSizeOverflow, "update exceeds presized reservation")
		}
	} else {
		res, err = a.copyExistingThread(w, rec, t)
	}
	if err != nil {
		return err
	}

	if t.IsPresized() {
		reserve := t.PresizeReserve()
		if pw.maxLen > reserve {
			reserve = pw.maxLen
		}
		if uint32(res.Length) < reserve {
			pad := make([]byte, reserve-res.Length)
			if _, err := w.Write(pad); err != nil {
				return nufxerr.Wrap(nufxerr.KindFileWrite, err, "presized pad")
			}
		}
	}

	end, _ := w.Seek(0, io.SeekCurrent)
	t.DataOffset = start
	t.CompEOF = uint32(end - start)
	t.EOF = res.Length
	t.ActualEOF = res.Length
	t.CRC = res.CRC
	a.Config.Callbacks.onProgress(ProgressUpdate{Kind: ProgressThreadDone, RecordName: name, ThreadIdx: int(t.Idx), BytesDone: int64(res.Length), BytesTotal: int64(res.Length)})
	return nil
}

func (a *Archive) encodeFromSource(w io.Writer, t *record.Thread, src interface{}) (codec.Result, error) {
	cdc, err := a.Config.Registry.Lookup(codec.ThreadFormat(t.Format))
	if err != nil {
		return codec.Result{}, err
	}
	r, ok := src.(io.Reader)
	if !ok {
		return codec.Result{}, nufxerr.New(nufxerr.KindInvalidArg, "thread source does not implement io.Reader")
	}
	return cdc.Encode(w, r, -1)
}

func (a *Archive) copyExistingThread(w io.Writer, rec *record.Record, t *record.Thread) (codec.Result, error) {
	if a.file == nil {
		return codec.Result{}, nufxerr.New(nufxerr.KindInternal, "no backing file for unmodified thread copy")
	}
	buf := make([]byte, t.CompEOF)
	if _, err := a.file.ReadAt(buf, t.DataOffset); err != nil && err != io.EOF {
		return codec.Result{}, nufxerr.Wrap(nufxerr.KindFileRead, err, "copy existing thread")
	}
	if _, err := w.Write(buf); err != nil {
		return codec.Result{}, nufxerr.Wrap(nufxerr.KindFileWrite, err, "copy existing thread")
	}
	return codec.Result{Length: t.EOF, CRC: t.CRC}, nil
}
