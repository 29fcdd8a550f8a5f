package archive

// Outcome is a callback's return value: what the archive engine should do
// next at the site that invoked the callback. Each site acts on only some
// outcomes: SelectionFilter skips the record on anything but OutcomeOK;
// ErrorHandler continues on OutcomeOK or OutcomeIgnore and fails on
// anything else; ProgressUpdater at a thread's start aborts on
// OutcomeAbort (and, during extraction, skips the thread on OutcomeSkip),
// and every other outcome lets the operation continue.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeSkip
	OutcomeAbort
	OutcomeRetry
	OutcomeIgnore
	OutcomeRename
	OutcomeOverwrite
)

// SelectionProposal is offered to SelectionFilter before an add/extract
// acts on a given record.
type SelectionProposal struct {
	RecordName string
}

// PathProposal is offered to OutputPathnameFilter so the caller can remap
// or reject the host path a record will be extracted to.
type PathProposal struct {
	OriginalName string
	ProposedPath string
}

// ProgressKind distinguishes the phases ProgressUpdater is invoked for.
type ProgressKind int

const (
	ProgressThreadStart ProgressKind = iota
	ProgressThreadData
	ProgressThreadDone
)

// ProgressUpdate reports flush/extract progress; the engine reports the
// start and the end of every thread it flushes or extracts, and
// extraction also reports ProgressThreadData after each read of a
// thread's compressed bytes (spec.md §5).
type ProgressUpdate struct {
	Kind         ProgressKind
	RecordName   string
	ThreadIdx    int
	BytesDone    int64
	BytesTotal   int64
}

// ErrorProposal is offered to ErrorHandler when a non-programmer error
// occurs; the handler's Outcome decides whether the engine retries,
// ignores, skips, or propagates the error (spec.md §7).
type ErrorProposal struct {
	Err        error
	RecordName string
}

// Callbacks is the façade's callback table (spec.md §4.J). A nil field
// means "no handler installed"; the engine falls back to OutcomeOK (or
// OutcomeAbort for errors) when unset.
type Callbacks struct {
	SelectionFilter      func(SelectionProposal) Outcome
	OutputPathnameFilter func(PathProposal) (Outcome, string)
	ProgressUpdater      func(ProgressUpdate) Outcome
	ErrorHandler         func(ErrorProposal) Outcome
	ErrorMessageHandler  func(msg string)
}

// globalMessageHandler is the process-wide default error-message sink
// spec.md §9 calls for ("document the one-time install; no hidden
// re-initialization"). It is installed once via SetGlobalMessageHandler
// and used by any Archive whose Callbacks.ErrorMessageHandler is nil.
var globalMessageHandler func(msg string)

// SetGlobalMessageHandler installs the process-wide default message
// handler. Intended to be called once, typically from a CLI's main().
func SetGlobalMessageHandler(f func(msg string)) {
	globalMessageHandler = f
}

func (c Callbacks) reportMessage(msg string) {
	if c.ErrorMessageHandler != nil {
		c.ErrorMessageHandler(msg)
		return
	}
	if globalMessageHandler != nil {
		globalMessageHandler(msg)
	}
}

func (c Callbacks) onError(p ErrorProposal) Outcome {
	if c.ErrorHandler == nil {
		return OutcomeAbort
	}
	return c.ErrorHandler(p)
}

func (c Callbacks) onSelect(p SelectionProposal) Outcome {
	if c.SelectionFilter == nil {
		return OutcomeOK
	}
	return c.SelectionFilter(p)
}

func (c Callbacks) onProgress(p ProgressUpdate) Outcome {
	if c.ProgressUpdater == nil {
		return OutcomeOK
	}
	return c.ProgressUpdater(p)
}
