package job

import "time"

// State tracks a job's position in the processing pipeline.
type State string

const (
	StateQueued       State = "queued"
	StateTranscribing State = "transcribing"
	StateSummarizing  State = "summarizing"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Terminal reports whether a state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// validTransition enforces the allowed state machine edges. Stages are never
// skipped or reordered; failure is reachable from any non-terminal state.
func validTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	switch from {
	case StateQueued:
		return to == StateTranscribing
	case StateTranscribing:
		return to == StateSummarizing
	case StateSummarizing:
		return to == StateCompleted
	default:
		return false
	}
}

// Transcript is the output of the speech recognition stage.
type Transcript struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration_seconds"`
	Language        string  `json:"language,omitempty"`
}

// StructuredSummary is the fixed six-section document derived from a
// transcript. All six sections are always present; an empty section is an
// empty slice, never a missing key.
type StructuredSummary struct {
	Overview      []string `json:"overview"`
	MainPoints    []string `json:"main_points"`
	KeyInsights   []string `json:"key_insights"`
	ActionItems   []string `json:"action_items"`
	OpenQuestions []string `json:"open_questions"`
	Conclusions   []string `json:"conclusions"`
	Raw           string   `json:"raw,omitempty"`
}

// Failure carries the client-visible outcome of a failed job.
type Failure struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Timings records wall-clock stage durations in milliseconds.
type Timings struct {
	TranscriptionMS int64 `json:"transcription_ms,omitempty"`
	SummarizationMS int64 `json:"summarization_ms,omitempty"`
	TotalMS         int64 `json:"total_ms,omitempty"`
}

// Job is the unit of work tracking one audio file from upload through
// transcription and summarization.
type Job struct {
	ID         string             `json:"id"`
	Filename   string             `json:"filename"`
	SourcePath string             `json:"-"`
	State      State              `json:"state"`
	Transcript *Transcript        `json:"transcript,omitempty"`
	Summary    *StructuredSummary `json:"summary,omitempty"`
	Failure    *Failure           `json:"error,omitempty"`
	Timings    Timings            `json:"timings"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// clone produces an independent snapshot so callers never observe
// in-progress mutation.
func (j *Job) clone() Job {
	out := *j
	if j.Transcript != nil {
		t := *j.Transcript
		out.Transcript = &t
	}
	if j.Summary != nil {
		s := *j.Summary
		s.Overview = append([]string(nil), j.Summary.Overview...)
		s.MainPoints = append([]string(nil), j.Summary.MainPoints...)
		s.KeyInsights = append([]string(nil), j.Summary.KeyInsights...)
		s.ActionItems = append([]string(nil), j.Summary.ActionItems...)
		s.OpenQuestions = append([]string(nil), j.Summary.OpenQuestions...)
		s.Conclusions = append([]string(nil), j.Summary.Conclusions...)
		out.Summary = &s
	}
	if j.Failure != nil {
		f := *j.Failure
		out.Failure = &f
	}
	return out
}
