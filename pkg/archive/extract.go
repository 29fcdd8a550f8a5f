package archive

import (
	"io"

	"github.com/bgrewell/nufx-kit/pkg/codec"
	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
	"github.com/bgrewell/nufx-kit/pkg/record"
	"github.com/bgrewell/nufx-kit/pkg/sink"
)

// ExtractThread decompresses one thread's data into dst, honoring
// Config.IgnoreCRC and reporting progress through Callbacks.ProgressUpdater
// (spec.md §4.J). The archive must have been opened with random access
// (OpenRead/OpenForUpdate); a streaming archive's thread bytes are
// skipped at parse time and cannot be extracted.
func (a *Archive) ExtractThread(rec *record.Record, t *record.Thread, dst *sink.Sink) error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()

	if a.file == nil {
		return nufxerr.New(nufxerr.KindUnsupportedFeature, "thread extraction requires a random-access archive")
	}

	outcome := a.Config.Callbacks.onProgress(ProgressUpdate{
		Kind:       ProgressThreadStart,
		RecordName: rec.EffectiveName(),
		ThreadIdx:  int(t.Idx),
		BytesTotal: int64(t.EOF),
	})
	if outcome == OutcomeAbort {
		return nufxerr.New(nufxerr.KindAborted, "extraction aborted by caller")
	}
	if outcome == OutcomeSkip {
		return nil
	}

	cdc, err := a.Config.Registry.Lookup(codec.ThreadFormat(t.Format))
	if err != nil {
		return err
	}

	sr := io.NewSectionReader(a.file, t.DataOffset, int64(t.CompEOF))
	pr := &progressReader{r: sr, total: int64(t.EOF), report: func(done int64) {
		a.Config.Callbacks.onProgress(ProgressUpdate{
			Kind:       ProgressThreadData,
			RecordName: rec.EffectiveName(),
			ThreadIdx:  int(t.Idx),
			BytesDone:  done,
			BytesTotal: int64(t.EOF),
		})
	}}

	dst.WithEOL(a.Config.ConvertExtractedEOL, a.Config.EOL)
	res, err := cdc.Decode(dst, pr, int64(t.EOF))
	if err != nil {
		return err
	}
	if flushErr := dst.Flush(); flushErr != nil {
		return flushErr
	}

	if !a.Config.IgnoreCRC && res.CRC != t.CRC {
		out := a.Config.Callbacks.onError(ErrorProposal{
			Err:        nufxerr.New(nufxerr.KindBadDataCRC, "thread data CRC mismatch"),
			RecordName: rec.EffectiveName(),
		})
		if out != OutcomeIgnore && out != OutcomeOK {
			return nufxerr.New(nufxerr.KindBadDataCRC, "thread data CRC mismatch")
		}
	}

	a.Config.Callbacks.onProgress(ProgressUpdate{
		Kind:       ProgressThreadDone,
		RecordName: rec.EffectiveName(),
		ThreadIdx:  int(t.Idx),
		BytesDone:  int64(res.Length),
		BytesTotal: int64(t.EOF),
	})
	return nil
}

// ExtractRecord extracts every data-class thread of rec to the sink pathFn
// returns, after the SelectionFilter callback accepts the record. It
// applies neither Config.HandleExisting nor the OutputPathnameFilter
// callback; pathFn decides where output goes. Control/message threads (comments, disk images'
// resource forks) are the caller's responsibility to route separately.
func (a *Archive) ExtractRecord(rec *record.Record, pathFn func(threadKind record.ThreadKind) (*sink.Sink, bool)) error {
	if a.Config.Callbacks.onSelect(SelectionProposal{RecordName: rec.EffectiveName()}) != OutcomeOK {
		return nil
	}
	for i := range rec.Threads {
		t := &rec.Threads[i]
		if t.ID.Class != record.ClassData {
			continue
		}
		dst, ok := pathFn(t.ID.Kind)
		if !ok {
			continue
		}
		if err := a.ExtractThread(rec, t, dst); err != nil {
			if cerr := dst.Close(); cerr != nil && err == nil {
				err = cerr
			}
			return err
		}
		if err := dst.Close(); err != nil {
			return err
		}
	}
	return nil
}

// progressReader wraps an io.Reader, invoking report with the running byte
// count after every Read so long threads surface incremental progress
// without the codec layer needing to know about callbacks.
type progressReader struct {
	r      io.Reader
	total  int64
	done   int64
	report func(done int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.done += int64(n)
		p.report(p.done)
	}
	return n, err
}
