package model

import "time"

// AvatarProfile is a reusable avatar identity. Immutable once created and
// referenced by id from conversation turns.
type AvatarProfile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Personality string    `json:"personality"`
	Description string    `json:"description,omitempty"`
	ImagePath   string    `json:"imagePath,omitempty"`
	VoiceStyle  string    `json:"voiceStyle,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DialogueTurn is one utterance by one avatar within a conversation.
// Sequence is assigned monotonically at generation time and defines
// playback order regardless of render completion order.
type DialogueTurn struct {
	Sequence   int             `json:"sequence"`
	AvatarID   string          `json:"avatarId"`
	AvatarName string          `json:"avatarName"`
	Text       string          `json:"text"`
	Audio      *GeneratedAudio `json:"audio,omitempty"`
	Video      *AvatarVideo    `json:"video,omitempty"`
	Status     TurnStatus      `json:"status"`
	Note       string          `json:"note,omitempty"`
}

// Conversation is a multi-avatar dialogue rendered into a single stitched
// video.
type Conversation struct {
	ID           string             `json:"id"`
	Topic        string             `json:"topic"`
	Context      string             `json:"context,omitempty"`
	Style        ConversationStyle  `json:"style"`
	AvatarIDs    []string           `json:"avatarIds"`
	NumExchanges int                `json:"numExchanges"`
	// TurnPolicy records the configured failure policy explicitly on the
	// record.
	TurnPolicy   TurnPolicy         `json:"turnPolicy"`
	Status       ConversationStatus `json:"status"`
	Turns        []DialogueTurn     `json:"turns,omitempty"`
	DroppedTurns []int              `json:"droppedTurns,omitempty"`
	FinalVideo   *AvatarVideo       `json:"finalVideo,omitempty"`
	Error        *string            `json:"error,omitempty"`
	Progress     int                `json:"progress"`
	CurrentStep  string             `json:"currentStep,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty"`
}
