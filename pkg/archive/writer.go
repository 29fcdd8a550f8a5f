package archive

import (
	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
	"github.com/bgrewell/nufx-kit/pkg/record"
)

// NewRecord stages a brand-new record for addition. It is appended to the
// TOC at once, so Records() lists it before Flush writes it to disk.
func (a *Archive) NewRecord(inlineName string) *record.Record {
	rec := &record.Record{
		Idx:            a.nextID,
		Version:        3,
		InlineFilename: inlineName,
		Access:         record.AccessUnlocked,
	}
	a.nextID++
	a.toc = append(a.toc, rec)
	rec.MarkHeaderDirty()
	return rec
}

// AddThread stages a ThreadMod to append a new thread to rec. It
// enforces the "at most one data-class fork of each kind" and
// "no second presized thread of the same kind" invariants from
// spec.md §3/§9 before queuing the modification.
func (a *Archive) AddThread(rec *record.Record, id record.ThreadID, format uint16, src interface{}) error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()

	if rec.MarkedForDeletion {
		return nufxerr.New(nufxerr.KindModRecChange, "record already staged for deletion")
	}
	if id.Class == record.ClassData && rec.HasDataClassKind(id.Kind) {
		return nufxerr.New(nufxerr.KindThreadAddConflict, "record already has a data-class thread of this kind")
	}
	probe := record.Thread{ID: id}
	if probe.IsPresized() && rec.HasPresizedKind(id) {
		return nufxerr.New(nufxerr.KindThreadAddConflict, "record already has a presized thread of this kind")
	}

	rec.Mods = append(rec.Mods, record.ThreadMod{
		Kind:      record.ModAdd,
		NewID:     id,
		NewFormat: format,
		Source:    src,
	})
	return nil
}

// UpdatePresizedThread stages an in-place rewrite of a presized thread
// (filename, comment, old-comment). maxLen is the reservation the new
// content must not exceed (spec.md §4.E/§4.G).
func (a *Archive) UpdatePresizedThread(rec *record.Record, idx record.ThreadIdx, src interface{}, maxLen uint32) error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()

	th, ok := rec.ThreadByIdx(idx)
	if !ok {
		return nufxerr.New(nufxerr.KindThreadIdxNotFound, "no such thread")
	}
	if !th.IsPresized() {
		return nufxerr.New(nufxerr.KindNotPreSized, "thread is not presized")
	}
	for _, m := range rec.Mods {
		if (m.Kind == record.ModDelete || m.Kind == record.ModUpdatePresized) && m.TargetIdx == idx {
			return nufxerr.New(nufxerr.KindModThreadChange, "thread already has a pending modification")
		}
	}
	rec.Mods = append(rec.Mods, record.ThreadMod{
		Kind:      record.ModUpdatePresized,
		TargetIdx: idx,
		Source:    src,
		MaxLen:    maxLen,
	})
	return nil
}

// DeleteThread stages removal of a non-presized thread.
func (a *Archive) DeleteThread(rec *record.Record, idx record.ThreadIdx) error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()

	if _, ok := rec.ThreadByIdx(idx); !ok {
		return nufxerr.New(nufxerr.KindThreadIdxNotFound, "no such thread")
	}
	for _, m := range rec.Mods {
		if m.TargetIdx == idx && (m.Kind == record.ModDelete || m.Kind == record.ModUpdatePresized) {
			return nufxerr.New(nufxerr.KindModThreadChange, "thread already has a pending modification")
		}
	}
	rec.Mods = append(rec.Mods, record.ThreadMod{Kind: record.ModDelete, TargetIdx: idx})
	return nil
}

// DeleteRecord marks rec for omission at the next flush (spec.md §4.G:
// an Archive-level marker, not a ThreadMod).
func (a *Archive) DeleteRecord(rec *record.Record) error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()
	rec.MarkedForDeletion = true
	return a.MarkDeletedLocked(rec.Idx)
}

// MarkDeletedLocked is the busy-flag-free variant of MarkDeleted, for use
// by callers that already hold the guard (DeleteRecord).
func (a *Archive) MarkDeletedLocked(idx record.RecordIdx) error {
	if a.deletedRecords == nil {
		a.deletedRecords = make(map[record.RecordIdx]bool)
	}
	a.deletedRecords[idx] = true
	return nil
}
