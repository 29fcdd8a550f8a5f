// Package nufxerr defines the error taxonomy shared by the archive engine,
// the codec layer, and the Binary II decoder.
package nufxerr

import "fmt"

// Kind identifies a category of failure. The values are ported 1:1 from
// nufxlib's NuError enum so archive diagnostics match the reference
// implementation's vocabulary.
type Kind int

const (
	KindNone Kind = iota

	// Programmer errors.
	KindInvalidArg
	KindBadStruct
	KindUnexpectedNil
	KindBusy
	KindInternal

	// Callback outcomes.
	KindSkipped
	KindAborted
	KindRename

	// I/O errors.
	KindFileOpen
	KindFileClose
	KindFileRead
	KindFileWrite
	KindFileSeek
	KindFileExists
	KindFileNotFound
	KindFileStat
	KindDirCreate
	KindDirOpen
	KindDirRead
	KindFileSetDate
	KindFileSetAccess

	// Format errors.
	KindNotNuFX
	KindBadMHVersion
	KindRecHdrNotFound
	KindNoRecords
	KindBadRecord
	KindBadMHCRC
	KindBadRHCRC
	KindBadThreadCRC
	KindBadDataCRC
	KindBadFormat
	KindBadData

	// Buffer errors.
	KindBufferOverrun
	KindBufferUnderrun
	KindOutMax

	// Search errors.
	KindNotFound
	KindRecordNotFound
	KindThreadIdxNotFound
	KindThreadIDNotFound
	KindRecNameNotFound
	KindRecordExists

	// Policy errors.
	KindAllDeleted
	KindArchiveRO
	KindModRecChange
	KindModThreadChange
	KindThreadAddConflict
	KindNotPreSized
	KindPreSizeOverflow
	KindInvalidFilename
	KindLeadingFssep
	KindNotNewer
	KindDuplicateNotFound
	KindDamaged
	KindIsBinary2
	KindUnknownFeature
	KindUnsupportedFeature
	KindFlushInaccessible
)

var descriptions = map[Kind]string{
	KindNone:               "no error",
	KindInvalidArg:         "invalid argument",
	KindBadStruct:          "bad struct passed to library",
	KindUnexpectedNil:      "unexpected nil pointer",
	KindBusy:               "archive is busy",
	KindInternal:           "internal error",
	KindSkipped:            "operation skipped",
	KindAborted:            "operation aborted",
	KindRename:             "caller requested rename",
	KindFileOpen:           "unable to open file",
	KindFileClose:          "unable to close file",
	KindFileRead:           "error reading file",
	KindFileWrite:          "error writing file",
	KindFileSeek:           "error seeking in file",
	KindFileExists:         "file already exists",
	KindFileNotFound:       "file not found",
	KindFileStat:           "unable to stat file",
	KindDirCreate:          "unable to create directory",
	KindDirOpen:            "unable to open directory",
	KindDirRead:            "unable to read directory",
	KindFileSetDate:        "unable to set file date",
	KindFileSetAccess:      "unable to set file access",
	KindNotNuFX:            "not a NuFX archive",
	KindBadMHVersion:       "unsupported master header version",
	KindRecHdrNotFound:     "record header not found",
	KindNoRecords:          "archive has no records",
	KindBadRecord:          "malformed record",
	KindBadMHCRC:           "bad master header CRC",
	KindBadRHCRC:           "bad record header CRC",
	KindBadThreadCRC:       "bad thread header CRC",
	KindBadDataCRC:         "bad data CRC",
	KindBadFormat:          "unsupported compression format",
	KindBadData:            "decoder rejected input data",
	KindBufferOverrun:      "buffer overrun",
	KindBufferUnderrun:     "buffer underrun",
	KindOutMax:             "output limit exceeded",
	KindNotFound:           "not found",
	KindRecordNotFound:     "record not found",
	KindThreadIdxNotFound:  "thread index not found",
	KindThreadIDNotFound:   "thread ID not found",
	KindRecNameNotFound:    "record name not found",
	KindRecordExists:       "record with that name already exists",
	KindAllDeleted:         "all records would be deleted",
	KindArchiveRO:          "archive is read-only",
	KindModRecChange:       "record already staged for deletion",
	KindModThreadChange:    "thread already has a pending modification",
	KindThreadAddConflict:  "adding thread would create a conflict",
	KindNotPreSized:        "thread is not presized",
	KindPreSizeOverflow:    "update exceeds presized reservation",
	KindInvalidFilename:    "invalid filename",
	KindLeadingFssep:       "name has a leading path separator",
	KindNotNewer:           "existing record is not older than replacement",
	KindDuplicateNotFound:  "must-overwrite set but no duplicate exists",
	KindDamaged:            "archive may be damaged",
	KindIsBinary2:          "archive is a Binary II container",
	KindUnknownFeature:     "unknown feature",
	KindUnsupportedFeature: "unsupported feature",
	KindFlushInaccessible:  "flush could not replace the archive file",
}

// Error is the concrete error type returned by this module. It always
// carries a Kind so callers can branch on category with errors.As, plus
// an optional wrapped cause and contextual message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	desc := descriptions[e.Kind]
	if e.Message != "" {
		if desc != "" {
			desc = fmt.Sprintf("%s: %s", desc, e.Message)
		} else {
			desc = e.Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", desc, e.Cause)
	}
	return desc
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is(err, nufxerr.New(KindBadMHCRC, "")) to match on Kind
// alone, ignoring Message/Cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error with the given kind that wraps cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Of reports the Kind of err: KindNone if err is nil, KindInternal if err
// is not itself an *Error.
func Of(err error) Kind {
	var e *Error
	if err == nil {
		return KindNone
	}
	if e, _ = err.(*Error); e != nil {
		return e.Kind
	}
	return KindInternal
}

// Describe returns the static description string for a Kind.
func Describe(kind Kind) string {
	if d, ok := descriptions[kind]; ok {
		return d
	}
	return "unknown error"
}
