package model

// Job status
type JobStatus string

const (
	JobStatusCreated         JobStatus = "created"
	JobStatusScriptReady     JobStatus = "script_ready"
	JobStatusAssetsReady     JobStatus = "assets_ready"
	JobStatusVideoReady      JobStatus = "video_ready"
	JobStatusQueuedForReview JobStatus = "queued_for_review"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusApproved        JobStatus = "approved"
	JobStatusRejected        JobStatus = "rejected"
	JobStatusRetrying        JobStatus = "retrying"
	JobStatusFailed          JobStatus = "failed"
)

var ValidJobStatuses = []JobStatus{
	JobStatusCreated, JobStatusScriptReady, JobStatusAssetsReady,
	JobStatusVideoReady, JobStatusQueuedForReview, JobStatusCompleted,
	JobStatusApproved, JobStatusRejected, JobStatusRetrying, JobStatusFailed,
}

// validTransitions is the explicit state machine for video jobs. Failed is
// reachable from every non-terminal state; retrying maps back to the state
// preceding the failed stage.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusCreated:         {JobStatusScriptReady, JobStatusFailed},
	JobStatusScriptReady:     {JobStatusAssetsReady, JobStatusFailed},
	JobStatusAssetsReady:     {JobStatusVideoReady, JobStatusFailed},
	JobStatusVideoReady:      {JobStatusQueuedForReview, JobStatusCompleted, JobStatusFailed},
	JobStatusQueuedForReview: {JobStatusApproved, JobStatusRejected},
	JobStatusCompleted:       {},
	JobStatusApproved:        {},
	JobStatusRejected:        {},
	JobStatusRetrying:        {JobStatusCreated, JobStatusScriptReady, JobStatusAssetsReady, JobStatusFailed},
	JobStatusFailed:          {JobStatusRetrying},
}

// CanTransition reports whether moving a job from one status to another is
// allowed by the state machine.
func CanTransition(from, to JobStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status admits no further orchestrator-driven
// transitions. Failed is not terminal here: an operator retry is valid.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusApproved || s == JobStatusRejected
}

// Pipeline stages
type Stage string

const (
	StageScript Stage = "script"
	StageAssets Stage = "assets"
	StageRender Stage = "render"
)

// precedingStatus maps a stage to the job status it starts from. A retry of
// a failed stage re-enters this status and re-runs only that stage.
var precedingStatus = map[Stage]JobStatus{
	StageScript: JobStatusCreated,
	StageAssets: JobStatusScriptReady,
	StageRender: JobStatusAssetsReady,
}

// PrecedingStatus returns the status a stage runs from, and whether the
// stage is known.
func PrecedingStatus(s Stage) (JobStatus, bool) {
	st, ok := precedingStatus[s]
	return st, ok
}

// Script styles
type ScriptStyle string

const (
	StyleNewsAnchor   ScriptStyle = "news_anchor"
	StyleCasual       ScriptStyle = "casual"
	StyleEducational  ScriptStyle = "educational"
	StyleEntertaining ScriptStyle = "entertaining"
	StyleProfessional ScriptStyle = "professional"
)

var ValidScriptStyles = []ScriptStyle{
	StyleNewsAnchor, StyleCasual, StyleEducational,
	StyleEntertaining, StyleProfessional,
}

// Conversation styles
type ConversationStyle string

const (
	ConversationDiscussion ConversationStyle = "discussion"
	ConversationDebate     ConversationStyle = "debate"
	ConversationInterview  ConversationStyle = "interview"
	ConversationPanel      ConversationStyle = "panel"
)

var ValidConversationStyles = []ConversationStyle{
	ConversationDiscussion, ConversationDebate,
	ConversationInterview, ConversationPanel,
}

// Conversation status
type ConversationStatus string

const (
	ConversationStatusCreated   ConversationStatus = "created"
	ConversationStatusDialogue  ConversationStatus = "generating_dialogue"
	ConversationStatusRendering ConversationStatus = "rendering_turns"
	ConversationStatusStitching ConversationStatus = "stitching"
	ConversationStatusCompleted ConversationStatus = "completed"
	ConversationStatusFailed    ConversationStatus = "failed"
)

// Per-turn status
type TurnStatus string

const (
	TurnStatusPending   TurnStatus = "pending"
	TurnStatusCompleted TurnStatus = "completed"
	TurnStatusFailed    TurnStatus = "failed"
)

// TurnPolicy decides what happens to a conversation when a single turn's
// rendering fails irrecoverably. The choice is recorded on the conversation
// record, never decided silently.
type TurnPolicy string

const (
	// TurnPolicyDrop drops the failed turn, producing a shorter but still
	// strictly ordered conversation.
	TurnPolicyDrop TurnPolicy = "drop_failed"
	// TurnPolicyStrict fails the whole conversation.
	TurnPolicyStrict TurnPolicy = "strict"
)

var ValidTurnPolicies = []TurnPolicy{TurnPolicyDrop, TurnPolicyStrict}
