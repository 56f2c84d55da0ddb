package pipeline

import (
	"context"

	"github.com/novaavatar/api/internal/model"
)

// Stage adapters wrap each external generation collaborator behind a uniform
// capability interface. Every call either returns a result or a typed
// failure; adapters are safe to invoke again after a failure, so the
// orchestrator may re-run a stage on retry.

// Scraper returns fresh content items, at most max per source.
type Scraper interface {
	Scrape(ctx context.Context, max int, searchTerm string) ([]model.ContentItem, error)
	// FetchFullArticle retrieves the article body for a content URL. A
	// failure here is non-fatal; the pipeline falls back to the description.
	FetchFullArticle(ctx context.Context, url string) (string, error)
}

// ScriptRequest carries everything the script generator needs.
type ScriptRequest struct {
	Title    string
	Body     string
	Style    model.ScriptStyle
	Duration int // target seconds
}

// ScriptGenerator produces a narration script plus scene description.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, req ScriptRequest) (*model.VideoScript, error)
}

// DialogueRequest asks for the next turn of a running conversation.
type DialogueRequest struct {
	Topic      string
	Context    string
	Style      model.ConversationStyle
	Speaker    model.AvatarProfile
	Transcript []model.DialogueTurn // everything said so far, in order
}

// DialogueGenerator produces one dialogue turn at a time given the running
// transcript and the next speaker's personality.
type DialogueGenerator interface {
	GenerateTurn(ctx context.Context, req DialogueRequest) (string, error)
}

// ImageGenerator produces a background image for a scene description.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (*model.GeneratedImage, error)
}

// SpeechSynthesizer converts text into an audio file. The orchestrator is
// configured with an ordered list of interchangeable backends; Name
// identifies a backend in policy notes.
type SpeechSynthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, voice string) (*model.GeneratedAudio, error)
}

// VideoRenderer produces an avatar video from an image, an audio track and a
// prompt. Rendering is resource-exclusive; the orchestrator bounds
// concurrent calls.
type VideoRenderer interface {
	Render(ctx context.Context, prompt, imagePath, audioPath, outputName string) (*model.AvatarVideo, error)
}

// VideoStitcher concatenates clips in the order given.
type VideoStitcher interface {
	Stitch(ctx context.Context, paths []string, outputName string, transitions bool) (*model.AvatarVideo, error)
}
