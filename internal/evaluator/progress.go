package evaluator

import "time"

// ProgressCallback is called during evaluation to report progress.
type ProgressCallback func(event ProgressEvent)

// ProgressEvent represents a progress update.
type ProgressEvent struct {
	Type    ProgressEventType
	Fold    int
	Folds   int
	Step    int
	Steps   int
	Message string
	Elapsed time.Duration
	Error   error
	// Summary is set on EventFoldComplete.
	Summary *FoldSummary
}

// ProgressEventType identifies the type of progress event.
type ProgressEventType int

const (
	EventRunStart ProgressEventType = iota
	EventFoldStart
	EventStep
	EventFoldComplete
	EventRunComplete
	EventError
)

func (t ProgressEventType) String() string {
	switch t {
	case EventRunStart:
		return "run-start"
	case EventFoldStart:
		return "fold-start"
	case EventStep:
		return "step"
	case EventFoldComplete:
		return "fold-complete"
	case EventRunComplete:
		return "run-complete"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

func (o Options) progress() ProgressCallback {
	if o.OnProgress == nil {
		return func(ProgressEvent) {}
	}
	return o.OnProgress
}
