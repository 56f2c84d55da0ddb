package model

// VideoScript is the narration script produced once per job.
// Immutable after creation.
type VideoScript struct {
	Title            string      `json:"title"`
	Script           string      `json:"script"`
	SceneDescription string      `json:"sceneDescription"` // feeds image generation
	DurationEstimate int         `json:"durationEstimate"` // seconds
	Style            ScriptStyle `json:"style"`
	Keywords         []string    `json:"keywords,omitempty"`
	CallToAction     string      `json:"callToAction,omitempty"`
}

// GeneratedImage is a background image produced by the image stage.
type GeneratedImage struct {
	Path   string `json:"path"`
	Prompt string `json:"prompt,omitempty"`
	Style  string `json:"style,omitempty"`
	// Source identifies where the image came from: "generated" or "default".
	Source string `json:"source,omitempty"`
}

// GeneratedAudio is a narration clip produced by the speech stage.
type GeneratedAudio struct {
	Path     string  `json:"path"`
	Voice    string  `json:"voice,omitempty"`
	Backend  string  `json:"backend,omitempty"`
	Duration float64 `json:"duration,omitempty"` // seconds
}

// AvatarVideo is a rendered avatar clip, either a full job video, a single
// conversation turn, or a stitched conversation.
type AvatarVideo struct {
	Path      string  `json:"path"`
	Prompt    string  `json:"prompt,omitempty"`
	Duration  float64 `json:"duration,omitempty"` // seconds
	SizeBytes int64   `json:"sizeBytes,omitempty"`
}
