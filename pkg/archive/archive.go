// Package archive implements the NuFX archive engine: parsing, the
// in-memory table of contents, and the transactional writer/flush
// protocol described in spec.md §3, §4.F, and §4.G.
package archive

import (
	"io"
	"os"

	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
	"github.com/bgrewell/nufx-kit/pkg/record"
)

// Mode is the archive handle's open mode.
type Mode int

const (
	ModeStreamRead Mode = iota
	ModeFileRead
	ModeReadWrite
)

// Archive is the handle spec.md §3 describes: the master header, the
// original TOC, pending record-level deletions, configuration, and the
// busy flag. Records own their own thread arrays and pending ThreadMod
// lists (see pkg/record).
type Archive struct {
	Mode Mode
	Path string

	file     *os.File // nil for pure streaming archives (stdin)
	streamRd io.Reader

	Wrapper WrapperInfo

	Master MasterHeader
	toc    []*record.Record // original TOC, in file order
	nextID record.RecordIdx

	// tempPath is a sibling path recorded by OpenForUpdate and Create
	// (path + ".tmp"); no file is created there, and Flush does not use it.
	tempPath string

	// deletedRecords is the Archive-level delete-record marker set
	// (spec.md §4.G: "a marker applied to the Archive, not a ThreadMod").
	deletedRecords map[record.RecordIdx]bool

	Config *Config
	busy   busyGuard
}

// WrapperInfo records what wrapper (if any) preceded the NuFile header.
// Flush does not carry the wrapper into the rewritten archive: the new
// file starts at the master header whatever Config.DiscardWrapper says.
type WrapperInfo struct {
	Kind      WrapperKind
	RawPrefix []byte // the wrapper bytes themselves, preserved verbatim
}

// WrapperKind enumerates the wrapper shapes spec.md §4.H defines.
type WrapperKind int

const (
	WrapperNone WrapperKind = iota
	WrapperBXY
	WrapperSEA
	WrapperBSE
)

// Records returns the archive's table of contents in file order.
func (a *Archive) Records() []*record.Record {
	return a.toc
}

// RecordByIdx finds a record by its stable RecordIdx.
func (a *Archive) RecordByIdx(idx record.RecordIdx) (*record.Record, bool) {
	for _, r := range a.toc {
		if r.Idx == idx {
			return r, true
		}
	}
	return nil, false
}

// RecordByPosition returns the 1-based positional record.
func (a *Archive) RecordByPosition(pos int) (*record.Record, bool) {
	if pos < 1 || pos > len(a.toc) {
		return nil, false
	}
	return a.toc[pos-1], true
}

// RecordByName finds a record by its case-sensitive effective name.
func (a *Archive) RecordByName(name string) (*record.Record, bool) {
	for _, r := range a.toc {
		if r.EffectiveName() == name {
			return r, true
		}
	}
	return nil, false
}

// MarkDeleted flags a record for omission at the next flush, per the
// Archive-level delete-record marker spec.md §4.G describes.
func (a *Archive) MarkDeleted(idx record.RecordIdx) error {
	release, err := a.enter()
	if err != nil {
		return err
	}
	defer release()
	if _, ok := a.RecordByIdx(idx); !ok {
		return nufxerr.New(nufxerr.KindRecordNotFound, "no such record")
	}
	if a.deletedRecords == nil {
		a.deletedRecords = make(map[record.RecordIdx]bool)
	}
	a.deletedRecords[idx] = true
	return nil
}

// enter is the scoped busy-guard wrapper every top-level entry point
// should use (spec.md §5/§9).
func (a *Archive) enter() (func(), error) {
	return a.busy.enter()
}

// GetExtraData and SetExtraData deliberately bypass the busy flag
// (spec.md §5) so callbacks invoked mid-operation can still read/write
// caller context.
func (a *Archive) GetExtraData() interface{} { return a.Config.ExtraData }
func (a *Archive) SetExtraData(v interface{}) { a.Config.ExtraData = v }

// Close releases the archive's file handle. Per spec.md §3, a
// successful lifecycle frees all resources; callers that hit an error
// mid-operation should prefer Abort (flush.go) before Close so retry
// state is preserved correctly.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}
