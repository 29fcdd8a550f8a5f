// Package nufx is the public facade over the NuFX/ShrinkIt archive engine:
// functional-option configuration (iso.go's pattern) wrapping
// pkg/archive's Archive, plus transparent fallback to pkg/binary2 when the
// opened file turns out to be a Binary II container rather than a NuFX
// archive proper (spec.md §4.H).
package nufx

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"

	"github.com/bgrewell/nufx-kit/pkg/archive"
	"github.com/bgrewell/nufx-kit/pkg/binary2"
	"github.com/bgrewell/nufx-kit/pkg/codec"
	"github.com/bgrewell/nufx-kit/pkg/logging"
	"github.com/bgrewell/nufx-kit/pkg/nufxerr"
	"github.com/bgrewell/nufx-kit/pkg/sink"
)

// Options collects every Config field spec.md §4.J enumerates, built up by
// functional Option values the way iso.go's Options/Option pair works.
type Options struct {
	allowDuplicates     bool
	convertExtractedEOL sink.EOLMode
	dataCompression     codec.ThreadFormat
	discardWrapper      bool
	eol                 sink.EOLStyle
	handleExisting      archive.HandleExisting
	ignoreCRC           bool
	mimicSHK            bool
	modifyOrig          bool
	onlyUpdateOlder     bool
	allowEmptyArchive   bool

	logger    logr.Logger
	callbacks archive.Callbacks
	extraData interface{}
	registry  *codec.Registry
}

// Option configures an Options value.
type Option func(*Options)

func WithAllowDuplicates(v bool) Option { return func(o *Options) { o.allowDuplicates = v } }

func WithConvertExtractedEOL(mode sink.EOLMode, style sink.EOLStyle) Option {
	return func(o *Options) { o.convertExtractedEOL = mode; o.eol = style }
}

func WithDataCompression(format codec.ThreadFormat) Option {
	return func(o *Options) { o.dataCompression = format }
}

func WithDiscardWrapper(v bool) Option { return func(o *Options) { o.discardWrapper = v } }

func WithHandleExisting(h archive.HandleExisting) Option {
	return func(o *Options) { o.handleExisting = h }
}

func WithIgnoreCRC(v bool) Option { return func(o *Options) { o.ignoreCRC = v } }

// WithMimicSHK sets Config.MimicSHK. The setting is stored only: neither
// the reader nor the writer consults it.
func WithMimicSHK(v bool) Option { return func(o *Options) { o.mimicSHK = v } }

func WithModifyOrig(v bool) Option { return func(o *Options) { o.modifyOrig = v } }

func WithOnlyUpdateOlder(v bool) Option { return func(o *Options) { o.onlyUpdateOlder = v } }

func WithAllowEmptyArchive(v bool) Option { return func(o *Options) { o.allowEmptyArchive = v } }

// WithLogger installs a logr.Logger; discarded output is the default.
func WithLogger(logger logr.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

func WithSelectionFilter(f func(archive.SelectionProposal) archive.Outcome) Option {
	return func(o *Options) { o.callbacks.SelectionFilter = f }
}

func WithOutputPathnameFilter(f func(archive.PathProposal) (archive.Outcome, string)) Option {
	return func(o *Options) { o.callbacks.OutputPathnameFilter = f }
}

func WithProgressUpdater(f func(archive.ProgressUpdate) archive.Outcome) Option {
	return func(o *Options) { o.callbacks.ProgressUpdater = f }
}

func WithErrorHandler(f func(archive.ErrorProposal) archive.Outcome) Option {
	return func(o *Options) { o.callbacks.ErrorHandler = f }
}

func WithErrorMessageHandler(f func(msg string)) Option {
	return func(o *Options) { o.callbacks.ErrorMessageHandler = f }
}

func WithExtraData(v interface{}) Option { return func(o *Options) { o.extraData = v } }

// WithRegistry overrides the default codec registry, e.g. to register a
// caller-supplied codec for a vendor-private thread format.
func WithRegistry(r *codec.Registry) Option { return func(o *Options) { o.registry = r } }

func defaultOptions() Options {
	cfg := archive.DefaultConfig()
	return Options{
		dataCompression: cfg.DataCompression,
		eol:             cfg.EOL,
		handleExisting:  cfg.HandleExisting,
		logger:          logr.Discard(),
		registry:        cfg.Registry,
	}
}

func (o Options) toConfig() *archive.Config {
	return &archive.Config{
		AllowDuplicates:     o.allowDuplicates,
		ConvertExtractedEOL: o.convertExtractedEOL,
		DataCompression:     o.dataCompression,
		DiscardWrapper:      o.discardWrapper,
		EOL:                 o.eol,
		HandleExisting:      o.handleExisting,
		IgnoreCRC:           o.ignoreCRC,
		MimicSHK:            o.mimicSHK,
		ModifyOrig:          o.modifyOrig,
		OnlyUpdateOlder:     o.onlyUpdateOlder,
		AllowEmptyArchive:   o.allowEmptyArchive,
		Logger:              logging.NewLogger(o.logger),
		Callbacks:           o.callbacks,
		ExtraData:           o.extraData,
		Registry:            o.registry,
	}
}

func build(opts []Option) *archive.Config {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options.toConfig()
}

// Open opens an existing NuFX archive for read-only, random-access use. If
// path is actually a Binary II container, Open fails with a KindIsBinary2
// error; OpenAny opens either kind.
func Open(path string, opts ...Option) (*archive.Archive, error) {
	cfg := build(opts)
	a, err := archive.OpenRead(path, cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// OpenStream opens a non-seekable reader (stdin, a pipe) in streaming
// mode. Write operations are forbidden on the result, per spec.md §6's
// "archive name '-' denotes standard input" rule.
func OpenStream(r io.Reader, opts ...Option) (*archive.Archive, error) {
	return archive.OpenStream(r, build(opts))
}

// OpenForUpdate opens (or lazily creates) path for read-write access.
// Nothing touches the original file on disk until Flush succeeds.
func OpenForUpdate(path string, opts ...Option) (*archive.Archive, error) {
	return archive.OpenForUpdate(path, build(opts))
}

// Create makes a brand-new archive at path, failing if it already exists.
func Create(path string, opts ...Option) (*archive.Archive, error) {
	return archive.Create(path, build(opts))
}

// OpenAny opens path for read access and classifies it: a *archive.Archive
// for a genuine NuFX file, or a *Binary2Archive if pkg/archive reports
// KindIsBinary2 (spec.md §4.H: BXY/plain-BNY detection happens during the
// normal wrapper sniff, so this is just routing the resulting error).
func OpenAny(path string, opts ...Option) (*archive.Archive, *Binary2Archive, error) {
	cfg := build(opts)
	a, err := archive.OpenRead(path, cfg)
	if err == nil {
		return a, nil, nil
	}
	if nufxerr.Of(err) == nufxerr.KindIsBinary2 {
		b2, berr := OpenBinary2(path, cfg.Logger)
		if berr != nil {
			return nil, nil, berr
		}
		return nil, b2, nil
	}
	return nil, nil, err
}

// Binary2Archive is the read-only facade over a Binary II (BNY) container,
// handed back by OpenAny when the file isn't NuFX proper. BNY carries no
// central directory; Entries reflects the linear chain pkg/binary2.Decoder
// walked at open time.
type Binary2Archive struct {
	Entries []Binary2Entry
}

// Binary2Entry pairs a decoded Binary II header with its (still possibly
// SQueezed) content.
type Binary2Entry struct {
	Header *binary2.Entry
	Data   []byte
}

// OpenBinary2 reads every entry of a Binary II stream eagerly (BNY files
// are conventionally small transfer packages, not multi-gigabyte
// archives, so buffering the whole chain is the idiomatic approach here
// the way BNYIterate's single-pass walk is).
func OpenBinary2(path string, logger *logging.Logger) (*Binary2Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nufxerr.Wrap(nufxerr.KindFileOpen, err, path)
	}
	defer f.Close()

	dec := binary2.NewDecoder(f, logger)
	var entries []Binary2Entry
	for {
		hdr, data, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, Binary2Entry{Header: hdr, Data: data})
	}
	return &Binary2Archive{Entries: entries}, nil
}

// ExtractTo decompresses every non-directory entry's data to dst via the
// provided sink factory, which receives the entry's effective (QQ-suffix
// stripped) name and decides where output goes.
func (b *Binary2Archive) ExtractTo(dst func(name string) (*sink.Sink, bool)) error {
	for _, e := range b.Entries {
		if e.Header.IsDirectory() {
			continue
		}
		name := binary2.EffectiveFileName(e.Header, e.Data)
		s, ok := dst(name)
		if !ok {
			continue
		}
		if err := binary2.Extract(e.Header, e.Data, s); err != nil {
			s.Close()
			return fmt.Errorf("extract %s: %w", name, err)
		}
		if err := s.Flush(); err != nil {
			return err
		}
		if err := s.Close(); err != nil {
			return err
		}
	}
	return nil
}
