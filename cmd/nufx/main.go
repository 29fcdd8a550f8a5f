// Command nufx is a ShrinkIt/NuFX command-line client: add, extract,
// list, test, and delete against .SHK/.SDK archives and Binary II (.BNY)
// transfer files, per spec.md §6's CLI contract.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/theckman/yacspin"
	"golang.org/x/term"

	"github.com/bgrewell/usage"

	nufxkit "github.com/bgrewell/nufx-kit"
	"github.com/bgrewell/nufx-kit/pkg/archive"
	"github.com/bgrewell/nufx-kit/pkg/codec"
	"github.com/bgrewell/nufx-kit/pkg/hostname"
	"github.com/bgrewell/nufx-kit/pkg/logging"
	"github.com/bgrewell/nufx-kit/pkg/record"
	"github.com/bgrewell/nufx-kit/pkg/sink"
	"github.com/bgrewell/nufx-kit/pkg/source"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	u := usage.NewUsage(
		usage.WithApplicationName("nufx"),
		usage.WithApplicationDescription("nufx adds, extracts, lists, tests, and deletes entries in NuFX/ShrinkIt archives, and extracts Binary II transfer files."),
	)

	actAdd := u.AddBooleanOption("a", "add", false, "Add files to the archive", "action", nil)
	actExtract := u.AddBooleanOption("x", "extract", false, "Extract files from the archive", "action", nil)
	actPipe := u.AddBooleanOption("p", "pipe", false, "Extract a single file to stdout", "action", nil)
	actListShort := u.AddBooleanOption("t", "list", false, "List archive contents (short form)", "action", nil)
	actListVerbose := u.AddBooleanOption("v", "verbose-list", false, "List archive contents (verbose form)", "action", nil)
	actTest := u.AddBooleanOption("i", "test", false, "Test archive integrity", "action", nil)
	actDelete := u.AddBooleanOption("d", "delete", false, "Delete files from the archive", "action", nil)
	help := u.AddBooleanOption("h", "help", false, "Show this help message", "", nil)

	modUpdate := u.AddBooleanOption("u", "update", false, "Add only files newer than any existing entry", "", nil)
	modFreshen := u.AddBooleanOption("f", "freshen", false, "Replace only files that already exist in the archive", "", nil)
	modRecurse := u.AddBooleanOption("r", "recurse", false, "Recurse into subdirectories when adding", "", nil)
	modJunk := u.AddBooleanOption("j", "junk-paths", false, "Discard directory components when extracting", "", nil)
	modStore := u.AddBooleanOption("0", "store", false, "Store without compression", "", nil)
	modDeflate := u.AddBooleanOption("z", "deflate", false, "Compress with deflate", "", nil)
	modBzip2 := u.AddBooleanOption("zz", "bzip2", false, "Select bzip2 compression (bzip2 encoding is not supported; the add fails)", "", nil)
	modComment := u.AddBooleanOption("c", "comment", false, "Accepted but ignored; no comment is prompted for or added", "", nil)
	modEOLText := u.AddBooleanOption("l", "eol-text", false, "Convert line endings in recognized text files", "", nil)
	modEOLAll := u.AddBooleanOption("ll", "eol-all", false, "Convert line endings in all files", "", nil)
	modOverwrite := u.AddBooleanOption("s", "overwrite", false, "Overwrite existing output files", "", nil)
	modDisk := u.AddBooleanOption("k", "as-disk", false, "Add as a disk image thread", "", nil)
	modPreserve := u.AddBooleanOption("e", "preserve-type", false, "Preserve ProDOS/HFS file type in the host filename", "", nil)
	modPreserveExt := u.AddBooleanOption("ee", "preserve-type-extended", false, "Preserve file type, adding an extension hint", "", nil)
	modBinary2 := u.AddBooleanOption("b", "binary2", false, "Binary II output on add (not supported; -a -b is rejected)", "", nil)
	verbose := u.AddBooleanOption("V", "verbose", false, "Log diagnostic detail to stderr", "", nil)

	archivePath := u.AddArgument(1, "archive", "Path to the archive ('-' is opened as a file name, not standard input)", "")

	if !u.Parse() {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		return exitUsage
	}
	if *help {
		u.PrintUsage()
		return exitOK
	}
	if archivePath == nil || *archivePath == "" {
		u.PrintError(fmt.Errorf("archive path must be provided"))
		return exitUsage
	}

	operands := trailingOperands(*archivePath)

	logger := logr.Discard()
	if *verbose {
		logger = logging.NewSimpleLogger(os.Stderr, logging.LEVEL_DEBUG, true)
	}

	opts := []nufxkit.Option{
		nufxkit.WithLogger(logger),
		nufxkit.WithIgnoreCRC(false),
	}
	switch {
	case *modEOLAll:
		opts = append(opts, nufxkit.WithConvertExtractedEOL(sink.EOLOn, sink.EOLStyleLF))
	case *modEOLText:
		opts = append(opts, nufxkit.WithConvertExtractedEOL(sink.EOLAuto, sink.EOLStyleLF))
	}
	if *modOverwrite {
		opts = append(opts, nufxkit.WithHandleExisting(archive.ExistingAlways))
	}

	switch {
	case *actAdd:
		return cmdAdd(*archivePath, operands, addFlags{
			update: *modUpdate, freshen: *modFreshen, recurse: *modRecurse,
			store: *modStore, deflate: *modDeflate, bzip2: *modBzip2,
			comment: *modComment, asDisk: *modDisk, preserve: *modPreserve,
			preserveExt: *modPreserveExt, binary2: *modBinary2,
		}, opts)
	case *actExtract:
		return cmdExtract(*archivePath, operands, *modJunk, opts)
	case *actPipe:
		return cmdPipe(*archivePath, operands, opts)
	case *actListShort:
		return cmdList(*archivePath, false, opts)
	case *actListVerbose:
		return cmdList(*archivePath, true, opts)
	case *actTest:
		return cmdTest(*archivePath, opts)
	case *actDelete:
		return cmdDelete(*archivePath, operands)
	default:
		u.PrintError(fmt.Errorf("no action specified; use one of -a -x -p -t -v -i -d"))
		return exitUsage
	}
}

// trailingOperands recovers the file/pattern arguments following the
// archive path: usage's single-slot AddArgument only models a fixed
// positional count, so the remaining operands (variable-length file
// lists for -a/-x/-d) are pulled directly from the raw argument vector.
func trailingOperands(archivePath string) []string {
	var out []string
	seenArchive := false
	for _, a := range os.Args[1:] {
		if strings.HasPrefix(a, "-") {
			continue
		}
		if !seenArchive && a == archivePath {
			seenArchive = true
			continue
		}
		if seenArchive {
			out = append(out, a)
		}
	}
	return out
}

func openSpinner(suffix string) *yacspin.Spinner {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil
	}
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " " + suffix,
		SuffixAutoColon: true,
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	}
	s, err := yacspin.New(cfg)
	if err != nil {
		return nil
	}
	_ = s.Start()
	return s
}

func stopSpinner(s *yacspin.Spinner, msg string) {
	if s == nil {
		return
	}
	s.StopMessage(msg)
	_ = s.Stop()
}

type addFlags struct {
	update, freshen, recurse  bool
	store, deflate, bzip2     bool
	comment, asDisk           bool
	preserve, preserveExt     bool
	binary2                   bool
}

func cmdAdd(archivePath string, files []string, flags addFlags, opts []nufxkit.Option) int {
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "nufx -a: no files specified")
		return exitUsage
	}
	if flags.binary2 {
		fmt.Fprintln(os.Stderr, "nufx -a -b: writing Binary II output is not supported; add to a NuFX archive instead")
		return exitUsage
	}

	if flags.recurse {
		files = expandRecurse(files)
	}

	a, err := nufxkit.OpenForUpdate(archivePath, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nufx: %v\n", err)
		return exitError
	}
	defer a.Close()

	spinner := openSpinner("adding files")
	added := 0
	for _, path := range files {
		if skip := shouldSkip(a, path, flags); skip {
			continue
		}
		if err := addOne(a, path, flags); err != nil {
			stopSpinner(spinner, "")
			fmt.Fprintf(os.Stderr, "nufx: add %s: %v\n", path, err)
			_ = a.Abort()
			return exitError
		}
		added++
	}

	if _, err := a.Flush(); err != nil {
		stopSpinner(spinner, "")
		fmt.Fprintf(os.Stderr, "nufx: flush: %v\n", err)
		return exitError
	}
	stopSpinner(spinner, fmt.Sprintf("added %d file(s)", added))
	return exitOK
}

// expandRecurse replaces any directory operand with the files found by
// walking it, for -r.
func expandRecurse(paths []string) []string {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		filepath.Walk(p, func(sub string, fi os.FileInfo, err error) error {
			if err != nil || fi.IsDir() {
				return nil
			}
			out = append(out, sub)
			return nil
		})
	}
	return out
}

// shouldSkip implements -u (update: only add if there's no existing, or an
// older, entry of the same name) and -f (freshen: only replace files that
// already have an entry).
func shouldSkip(a *archive.Archive, path string, flags addFlags) bool {
	if !flags.update && !flags.freshen {
		return false
	}
	name := filepath.ToSlash(path)
	rec, exists := a.RecordByName(name)
	if flags.freshen && !exists {
		return true
	}
	if flags.update && exists {
		info, err := os.Stat(path)
		if err != nil {
			return true
		}
		if !info.ModTime().After(rec.Modified.Time()) {
			return true
		}
	}
	return false
}

func addOne(a *archive.Archive, path string, flags addFlags) error {
	name := filepath.ToSlash(path)
	fileType, auxType, haveType := hostname.InterpretExtension(name)

	rec := a.NewRecord(name)
	if haveType {
		rec.FileType = fileType
		rec.AuxType = auxType
	}
	if flags.preserve || flags.preserveExt {
		rec.InlineFilename = hostname.AddPreservationString(name, rec.FileType, rec.AuxType, record.KindDataFork, flags.preserveExt)
	}

	kind := record.KindDataFork
	if flags.asDisk {
		kind = record.KindDiskImage
	}
	format := codec.FormatLZW2 // the archive's default compression
	switch {
	case flags.bzip2:
		format = codec.FormatBzip2
	case flags.deflate:
		format = codec.FormatDeflate
	case flags.store:
		format = codec.FormatUncompressed
	}

	src := source.NewFileSource(path)
	return a.AddThread(rec, record.ThreadID{Class: record.ClassData, Kind: kind}, uint16(format), src)
}

func cmdExtract(archivePath string, patterns []string, junkPaths bool, opts []nufxkit.Option) int {
	a, b2, err := nufxkit.OpenAny(archivePath, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nufx: %v\n", err)
		return exitError
	}
	if b2 != nil {
		return extractBinary2(b2, junkPaths)
	}
	defer a.Close()

	spinner := openSpinner("extracting")
	count := 0
	for _, rec := range a.Records() {
		if !matchesAny(rec.EffectiveName(), patterns) {
			continue
		}
		dest := rec.EffectiveName()
		if junkPaths {
			dest = filepath.Base(dest)
		}
		if err := extractRecord(a, rec, dest); err != nil {
			stopSpinner(spinner, "")
			fmt.Fprintf(os.Stderr, "nufx: extract %s: %v\n", rec.EffectiveName(), err)
			return exitError
		}
		count++
	}
	stopSpinner(spinner, fmt.Sprintf("extracted %d entr(y/ies)", count))
	return exitOK
}

func extractRecord(a *archive.Archive, rec *record.Record, dest string) error {
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return a.ExtractRecord(rec, func(kind record.ThreadKind) (*sink.Sink, bool) {
		path := dest + hostname.SuffixForThread(kind)
		return sink.NewFileSink(path), true
	})
}

func extractBinary2(b2 *nufxkit.Binary2Archive, junkPaths bool) int {
	err := b2.ExtractTo(func(name string) (*sink.Sink, bool) {
		if junkPaths {
			name = filepath.Base(name)
		}
		if dir := filepath.Dir(name); dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		return sink.NewFileSink(name), true
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "nufx: %v\n", err)
		return exitError
	}
	return exitOK
}

func cmdPipe(archivePath string, patterns []string, opts []nufxkit.Option) int {
	a, err := nufxkit.Open(archivePath, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nufx: %v\n", err)
		return exitError
	}
	defer a.Close()

	if len(patterns) != 1 {
		fmt.Fprintln(os.Stderr, "nufx -p: exactly one filename must be given")
		return exitUsage
	}
	rec, ok := a.RecordByName(patterns[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "nufx: %s: not found\n", patterns[0])
		return exitError
	}
	out := sink.NewHandleSink(os.Stdout)
	if err := a.ExtractRecord(rec, func(kind record.ThreadKind) (*sink.Sink, bool) {
		return out, kind == record.KindDataFork
	}); err != nil {
		fmt.Fprintf(os.Stderr, "nufx: %v\n", err)
		return exitError
	}
	return exitOK
}

func cmdList(archivePath string, verbose bool, opts []nufxkit.Option) int {
	a, b2, err := nufxkit.OpenAny(archivePath, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nufx: %v\n", err)
		return exitError
	}
	if b2 != nil {
		for _, e := range b2.Entries {
			fmt.Printf("%-32s %5d  %s\n", e.Header.FileName, e.Header.RealEOF, e.Header.Modified.Format("2006-01-02 15:04"))
		}
		return exitOK
	}
	defer a.Close()

	entries := a.List()
	if verbose {
		if err := archive.WriteVerbose(os.Stdout, entries); err != nil {
			fmt.Fprintf(os.Stderr, "nufx: %v\n", err)
			return exitError
		}
		return exitOK
	}
	for _, e := range entries {
		fmt.Println(e.Name)
	}
	return exitOK
}

func cmdTest(archivePath string, opts []nufxkit.Option) int {
	a, b2, err := nufxkit.OpenAny(archivePath, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nufx: %v\n", err)
		return exitError
	}
	if b2 != nil {
		fmt.Printf("%d Binary II entries present\n", len(b2.Entries))
		return exitOK
	}
	defer a.Close()

	bad := 0
	for _, rec := range a.Records() {
		buf := sink.NewBufferSink(1 << 20).WithExpand(true)
		if err := a.ExtractRecord(rec, func(record.ThreadKind) (*sink.Sink, bool) { return buf, true }); err != nil {
			color.New(color.FgRed).Fprintf(os.Stderr, "FAILED: %s: %v\n", rec.EffectiveName(), err)
			bad++
			continue
		}
		fmt.Printf("OK: %s\n", rec.EffectiveName())
	}
	if bad > 0 {
		return exitError
	}
	return exitOK
}

func cmdDelete(archivePath string, names []string) int {
	a, err := nufxkit.OpenForUpdate(archivePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nufx: %v\n", err)
		return exitError
	}
	defer a.Close()

	for _, name := range names {
		rec, ok := a.RecordByName(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "nufx: %s: not found\n", name)
			return exitError
		}
		if err := a.DeleteRecord(rec); err != nil {
			fmt.Fprintf(os.Stderr, "nufx: delete %s: %v\n", name, err)
			return exitError
		}
	}
	if _, err := a.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "nufx: flush: %v\n", err)
		return exitError
	}
	return exitOK
}

func matchesAny(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}
