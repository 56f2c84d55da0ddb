package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/novaavatar/api/internal/client"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/pipeline"
)

// ScriptWriter turns scraped content into a narration script using an
// OpenAI-compatible chat model. Falls back to a canned script when no API
// key is configured.
type ScriptWriter struct {
	llm *client.LLMClient
}

func NewScriptWriter(llm *client.LLMClient) *ScriptWriter {
	return &ScriptWriter{llm: llm}
}

// GenerateScript implements pipeline.ScriptGenerator
func (w *ScriptWriter) GenerateScript(ctx context.Context, req pipeline.ScriptRequest) (*model.VideoScript, error) {
	if w.llm == nil || !w.llm.IsConfigured() {
		return w.generateMock(req), nil
	}

	systemPrompt := buildScriptSystemPrompt(req.Style, req.Duration)
	userPrompt := buildScriptUserPrompt(req)

	response, err := w.llm.ChatCompletion(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("script generation failed: %w", err)
	}

	script, err := parseScriptResponse(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	script.Style = req.Style
	if script.Title == "" {
		script.Title = req.Title
	}
	return script, nil
}

func buildScriptSystemPrompt(style model.ScriptStyle, duration int) string {
	base := fmt.Sprintf(`You are a professional script writer for short avatar presenter videos.
Write a %d-second video script (around %d words) in a %s style.

The script must contain ONLY the words the avatar speaks. No stage
directions, no camera notes. Make it sound natural when spoken aloud and
use punctuation for pacing.

Also describe, in one or two sentences, the background scene that should
appear behind the presenter.

Always output your response as valid JSON in the exact format requested.
Do not include any text outside the JSON structure.`,
		duration, duration*5/2, strings.ReplaceAll(string(style), "_", " "))

	guideline, ok := styleGuidelines[style]
	if !ok {
		guideline = styleGuidelines[model.StyleProfessional]
	}
	return base + "\n" + guideline
}

var styleGuidelines = map[model.ScriptStyle]string{
	model.StyleNewsAnchor: `
Style: Professional news anchor. Authoritative and credible tone, clear
factual presentation, strong opening hook, professional sign-off.`,
	model.StyleCasual: `
Style: Casual and friendly. Use contractions and informal language,
address the viewer directly, end with a friendly goodbye.`,
	model.StyleEducational: `
Style: Educational. Clear explanations, break down complex topics with
examples, end with a key takeaway.`,
	model.StyleEntertaining: `
Style: Entertaining. Hook viewers immediately, use storytelling, keep it
fun and dynamic, end with a memorable thought.`,
	model.StyleProfessional: `
Style: Professional and polished. Authoritative but approachable,
well-structured points, strong conclusion.`,
}

func buildScriptUserPrompt(req pipeline.ScriptRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nContent:\n%s\n", req.Title, req.Body)
	b.WriteString(`
Output as JSON:
{"title": "...", "script": "...", "sceneDescription": "...", "durationEstimate": 30, "keywords": ["..."], "callToAction": "..."}`)
	return b.String()
}

func parseScriptResponse(response string) (*model.VideoScript, error) {
	response = extractJSON(response)

	var script model.VideoScript
	if err := json.Unmarshal([]byte(response), &script); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if strings.TrimSpace(script.Script) == "" {
		return nil, fmt.Errorf("no script text in response")
	}
	return &script, nil
}

// extractJSON attempts to extract JSON from a response that may contain extra text
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}

// Mock implementation for development/testing
func (w *ScriptWriter) generateMock(req pipeline.ScriptRequest) *model.VideoScript {
	return &model.VideoScript{
		Title: req.Title,
		Script: fmt.Sprintf(
			"Welcome back. Today we're looking at %s. %s That's the story for now, see you in the next one.",
			req.Title, firstSentences(req.Body, 2)),
		SceneDescription: "A modern newsroom studio with soft blue lighting",
		DurationEstimate: req.Duration,
		Style:            req.Style,
		Keywords:         []string{"news", "update"},
	}
}

// firstSentences returns up to n sentences from text, trimmed.
func firstSentences(text string, n int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Details are still emerging."
	}
	count := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			count++
			if count >= n {
				return text[:i+1]
			}
		}
	}
	return text
}
