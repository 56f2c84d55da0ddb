package model

import "time"

// ScrapeRequest asks the orchestrator for fresh, deduplicated content.
type ScrapeRequest struct {
	Limit      int    `json:"limit" validate:"omitempty,min=1,max=50"`
	SearchTerm string `json:"searchTerm,omitempty"`
}

// ScrapeResponse carries the deduplicated items.
type ScrapeResponse struct {
	Items []ContentItem `json:"items"`
	Count int           `json:"count"`
}

// VideoCreateRequest submits one content item for the full pipeline.
type VideoCreateRequest struct {
	Content     ContentItem `json:"content" validate:"required"`
	Style       ScriptStyle `json:"style" validate:"omitempty,oneof=news_anchor casual educational entertaining professional"`
	Duration    int         `json:"duration" validate:"omitempty,min=10,max=300"`
	AutoApprove bool        `json:"autoApprove"`
}

// VideoCreateResponse acknowledges an accepted job.
type VideoCreateResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// BatchVideoCreateRequest submits several content items in one call. Each
// item becomes an independent job.
type BatchVideoCreateRequest struct {
	Items []VideoCreateRequest `json:"items" validate:"required,min=1,max=20,dive"`
}

// BatchVideoCreateResponse acknowledges the accepted jobs. Items that could
// not be queued are reported individually instead of failing the batch.
type BatchVideoCreateResponse struct {
	Jobs   []VideoCreateResponse `json:"jobs"`
	Errors []string              `json:"errors,omitempty"`
	Count  int                   `json:"count"`
}

// RejectRequest carries the reviewer's reason for rejecting a video.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// AvatarCreateRequest creates a new avatar profile.
type AvatarCreateRequest struct {
	Name        string `json:"name" validate:"required"`
	Personality string `json:"personality" validate:"required"`
	Description string `json:"description,omitempty"`
	ImagePath   string `json:"imagePath,omitempty"`
	VoiceStyle  string `json:"voiceStyle,omitempty"`
}

// ConversationCreateRequest submits a multi-avatar conversation.
type ConversationCreateRequest struct {
	Topic        string            `json:"topic" validate:"required"`
	Context      string            `json:"context,omitempty"`
	Style        ConversationStyle `json:"style" validate:"omitempty,oneof=discussion debate interview panel"`
	AvatarIDs    []string          `json:"avatarIds" validate:"required,min=2,dive,required"`
	NumExchanges int               `json:"numExchanges" validate:"omitempty,min=1,max=30"`
	TurnPolicy   TurnPolicy        `json:"turnPolicy" validate:"omitempty,oneof=drop_failed strict"`
}

// ConversationCreateResponse acknowledges an accepted conversation.
type ConversationCreateResponse struct {
	ConversationID string             `json:"conversationId"`
	Status         ConversationStatus `json:"status"`
	CreatedAt      time.Time          `json:"createdAt"`
}
