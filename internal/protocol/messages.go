package protocol

import (
	"time"

	"github.com/recaplabs/recapd/internal/job"
)

// JobEvent is the lifecycle notification broadcast on the bus whenever a
// job changes state. Transcript text is omitted to keep payloads small;
// consumers that need it fetch the job over HTTP.
type JobEvent struct {
	JobID           string    `json:"job_id"`
	Filename        string    `json:"filename"`
	State           job.State `json:"state"`
	Note            string    `json:"note,omitempty"`
	FailureCode     job.Code  `json:"failure_code,omitempty"`
	FailureMessage  string    `json:"failure_message,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// FromJob builds the wire event for a job snapshot.
func FromJob(j job.Job, note string) JobEvent {
	ev := JobEvent{
		JobID:     j.ID,
		Filename:  j.Filename,
		State:     j.State,
		Note:      note,
		Timestamp: time.Now().UTC(),
	}
	if j.Transcript != nil {
		ev.DurationSeconds = j.Transcript.DurationSeconds
	}
	if j.Failure != nil {
		ev.FailureCode = j.Failure.Code
		ev.FailureMessage = j.Failure.Message
	}
	return ev
}

const (
	SubjectJobAccepted  = "jobs.accepted"
	SubjectJobProgress  = "jobs.progress"
	SubjectJobCompleted = "jobs.completed"
	SubjectJobFailed    = "jobs.failed"
)

// SubjectFor maps a job state to its bus subject.
func SubjectFor(state job.State) string {
	switch state {
	case job.StateQueued:
		return SubjectJobAccepted
	case job.StateCompleted:
		return SubjectJobCompleted
	case job.StateFailed:
		return SubjectJobFailed
	default:
		return SubjectJobProgress
	}
}
