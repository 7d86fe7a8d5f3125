package job

import "errors"

// Code identifies a failure class at the client boundary.
type Code string

const (
	CodeValidation         Code = "validation_error"
	CodeStorage            Code = "storage_error"
	CodeResourceBusy       Code = "resource_busy"
	CodeTranscription      Code = "transcription_error"
	CodeSummaryUnavailable Code = "summarization_unavailable"
	CodeSummaryFormat      Code = "summarization_format_error"
	CodeTranscriptTooLong  Code = "transcript_too_long"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Sentinels for the failure taxonomy. Adapters wrap these with %w and detail;
// the pipeline controller and the HTTP surface classify with errors.Is.
var (
	ErrValidation         = errors.New("invalid upload")
	ErrStorage            = errors.New("storage failure")
	ErrResourceBusy       = errors.New("accelerator busy")
	ErrTranscription      = errors.New("transcription failed")
	ErrSummaryUnavailable = errors.New("summarization service unavailable")
	ErrSummaryFormat      = errors.New("summary did not match the required structure")
	ErrTranscriptTooLong  = errors.New("transcript exceeds the model context budget")
	ErrTimeout            = errors.New("stage exceeded its time budget")

	ErrNotFound        = errors.New("job not found")
	ErrBadTransition   = errors.New("invalid job state transition")
	ErrAlreadyTerminal = errors.New("job already reached a terminal state")
)

// Classify maps an error from any pipeline stage onto its taxonomy code.
func Classify(err error) Code {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrStorage):
		return CodeStorage
	case errors.Is(err, ErrResourceBusy):
		return CodeResourceBusy
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	case errors.Is(err, ErrTranscription):
		return CodeTranscription
	case errors.Is(err, ErrSummaryUnavailable):
		return CodeSummaryUnavailable
	case errors.Is(err, ErrSummaryFormat):
		return CodeSummaryFormat
	case errors.Is(err, ErrTranscriptTooLong):
		return CodeTranscriptTooLong
	default:
		return CodeInternal
	}
}
