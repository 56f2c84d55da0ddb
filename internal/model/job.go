package model

import (
	"fmt"
	"time"
)

// Job is the aggregate root tracked by the pipeline orchestrator. A job is
// mutated exclusively by the orchestrator; callers may only read it or
// invoke approve/reject/retry/cancel.
type Job struct {
	ID             string          `json:"id"`
	Content        *ContentItem    `json:"content"`
	Style          ScriptStyle     `json:"style"`
	TargetDuration int             `json:"targetDuration"` // seconds
	Status         JobStatus       `json:"status"`
	FailedStage    Stage           `json:"failedStage,omitempty"`
	Script         *VideoScript    `json:"script,omitempty"`
	Image          *GeneratedImage `json:"image,omitempty"`
	Audio          *GeneratedAudio `json:"audio,omitempty"`
	Video          *AvatarVideo    `json:"video,omitempty"`
	// StorageURL is set when approval uploads the finished video to object
	// storage.
	StorageURL string `json:"storageUrl,omitempty"`
	// DownloadURL is a time-limited signed link attached to approve
	// responses. It expires, so it is never persisted.
	DownloadURL  string     `json:"downloadUrl,omitempty"`
	Error        *string    `json:"error,omitempty"`
	Notes        []string   `json:"notes,omitempty"`
	RejectReason string     `json:"rejectReason,omitempty"`
	AutoApprove  bool       `json:"autoApprove"`
	Progress     int        `json:"progress"`
	CurrentStep  string     `json:"currentStep,omitempty"`
	RetryCount   int        `json:"retryCount"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// AddNote appends a policy note to the job record. Notes make fallback
// decisions observable without failing the job.
func (j *Job) AddNote(format string, args ...interface{}) {
	j.Notes = append(j.Notes, fmt.Sprintf(format, args...))
}

// statusRank orders the forward-progress statuses so artifact requirements
// can be expressed as "this stage and everything after it".
var statusRank = map[JobStatus]int{
	JobStatusCreated:         0,
	JobStatusRetrying:        0,
	JobStatusScriptReady:     1,
	JobStatusAssetsReady:     2,
	JobStatusVideoReady:      3,
	JobStatusQueuedForReview: 3,
	JobStatusCompleted:       3,
	JobStatusApproved:        3,
	JobStatusRejected:        3,
}

// Validate asserts that the job's status and its populated artifact fields
// are mutually consistent. It is run after every mutation in tests.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job has no id")
	}
	if j.Status == JobStatusFailed {
		if j.Error == nil || *j.Error == "" {
			return fmt.Errorf("job %s: failed without error detail", j.ID)
		}
		return nil
	}
	rank, ok := statusRank[j.Status]
	if !ok {
		return fmt.Errorf("job %s: unknown status %q", j.ID, j.Status)
	}
	if rank >= 1 && j.Script == nil {
		return fmt.Errorf("job %s: status %s requires a script", j.ID, j.Status)
	}
	if rank >= 2 && (j.Image == nil || j.Audio == nil) {
		return fmt.Errorf("job %s: status %s requires image and audio", j.ID, j.Status)
	}
	if rank >= 3 && j.Video == nil {
		return fmt.Errorf("job %s: status %s requires a video", j.ID, j.Status)
	}
	if j.Status == JobStatusRetrying && j.FailedStage == "" {
		return fmt.Errorf("job %s: retrying without a failed stage", j.ID)
	}
	return nil
}
