package archive

import (
	"fmt"
	"io"

	"github.com/bgrewell/nufx-kit/pkg/record"
)

// EntryInfo is one line of a verbose listing, modeled on nulib2's -v
// output (original_source/nulib2/List.c): name, type/auxtype, dates,
// access, and the per-fork size/compression pairs.
type EntryInfo struct {
	Name        string
	Access      record.Access
	FileType    uint32
	AuxType     uint32
	StorageType uint16
	Modified    string // "2006-01-02 15:04:05" layout; pre-formatted so callers don't import nufxio
	Threads     []ThreadInfo
}

// ThreadInfo summarizes one thread for a listing row.
type ThreadInfo struct {
	ID         record.ThreadID
	Format     uint16
	UncompSize uint32
	CompSize   uint32
	Ratio      float64 // CompSize/UncompSize, 0 when UncompSize is 0
}

// List builds an EntryInfo for every record in file order, applying the
// SelectionFilter callback exactly as Extract does (spec.md §4.J:
// selection is a cross-cutting concern, not just an extract-time one).
func (a *Archive) List() []EntryInfo {
	var out []EntryInfo
	for _, rec := range a.toc {
		if a.Config.Callbacks.onSelect(SelectionProposal{RecordName: rec.EffectiveName()}) != OutcomeOK {
			continue
		}
		out = append(out, a.describeRecord(rec))
	}
	return out
}

func (a *Archive) describeRecord(rec *record.Record) EntryInfo {
	info := EntryInfo{
		Name:        rec.EffectiveName(),
		Access:      rec.Access,
		FileType:    rec.FileType,
		AuxType:     rec.AuxType,
		StorageType: rec.StorageType,
		Modified:    rec.Modified.Time().Format("2006-01-02 15:04:05"),
	}
	for _, t := range rec.Threads {
		ratio := 0.0
		if t.EOF > 0 {
			ratio = float64(t.CompEOF) / float64(t.EOF)
		}
		info.Threads = append(info.Threads, ThreadInfo{
			ID:         t.ID,
			Format:     t.Format,
			UncompSize: t.EOF,
			CompSize:   t.CompEOF,
			Ratio:      ratio,
		})
	}
	return info
}

// WriteVerbose renders one line per entry: name, file type/aux type,
// total uncompressed size of the data-class threads, and modification
// date. Compressed sizes and ratios are not printed.
func WriteVerbose(w io.Writer, entries []EntryInfo) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%-32s %4x/%08x  %10d  %s\n",
			e.Name, e.FileType, e.AuxType, totalUncomp(e), e.Modified); err != nil {
			return err
		}
	}
	return nil
}

func totalUncomp(e EntryInfo) int64 {
	var sum int64
	for _, t := range e.Threads {
		if t.ID.Class == record.ClassData {
			sum += int64(t.UncompSize)
		}
	}
	return sum
}
