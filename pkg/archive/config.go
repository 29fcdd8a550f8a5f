package archive

import (
	"github.com/bgrewell/nufx-kit/pkg/codec"
	"github.com/bgrewell/nufx-kit/pkg/logging"
	"github.com/bgrewell/nufx-kit/pkg/sink"
)

// HandleExisting selects the add-time policy when a stored name already
// exists (spec.md §4.J).
type HandleExisting int

const (
	ExistingMaybe HandleExisting = iota
	ExistingNever
	ExistingAlways
	ExistingMustOverwrite
)

// Config holds every `get`/`set` configuration value spec.md §4.J
// enumerates, plus the logger and callback table. It is built by the root
// package's functional Options and handed to Open/OpenForUpdate/Create.
type Config struct {
	AllowDuplicates     bool
	ConvertExtractedEOL sink.EOLMode
	DataCompression     codec.ThreadFormat
	DiscardWrapper      bool
	EOL                 sink.EOLStyle
	HandleExisting      HandleExisting
	IgnoreCRC           bool
	MimicSHK            bool
	ModifyOrig          bool
	OnlyUpdateOlder     bool
	AllowEmptyArchive   bool

	Logger    *logging.Logger
	Callbacks Callbacks
	ExtraData interface{}

	Registry *codec.Registry
}

// DefaultConfig returns the configuration spec.md's defaults imply: strict
// CRC interpretation, no wrapper discarding, LZW/2 compression, logging
// discarded until the caller installs a logger.
func DefaultConfig() *Config {
	return &Config{
		DataCompression: codec.FormatLZW2,
		EOL:             sink.EOLStyleLF,
		HandleExisting:  ExistingMaybe,
		Logger:          logging.DefaultLogger(),
		Registry:        codec.NewRegistry(),
	}
}
