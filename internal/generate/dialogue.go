package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/novaavatar/api/internal/client"
	"github.com/novaavatar/api/internal/pipeline"
)

// DialogueWriter produces conversation turns one at a time, feeding the
// transcript so far back into the model so each speaker reacts to the
// previous turn.
type DialogueWriter struct {
	llm *client.LLMClient
}

func NewDialogueWriter(llm *client.LLMClient) *DialogueWriter {
	return &DialogueWriter{llm: llm}
}

// GenerateTurn implements pipeline.DialogueGenerator
func (w *DialogueWriter) GenerateTurn(ctx context.Context, req pipeline.DialogueRequest) (string, error) {
	if w.llm == nil || !w.llm.IsConfigured() {
		return w.generateMock(req), nil
	}

	systemPrompt := fmt.Sprintf(`You are writing one turn of a natural spoken %s between avatars on camera.
You speak as exactly one character and never narrate.
Keep each turn to two or three sentences of spoken dialogue.
Always output your response as valid JSON in the exact format requested.`,
		req.Style)

	userPrompt := buildTurnPrompt(req)

	response, err := w.llm.ChatCompletion(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("dialogue generation failed: %w", err)
	}

	text, err := parseTurnResponse(response)
	if err != nil {
		return "", fmt.Errorf("failed to parse AI response: %w", err)
	}
	return text, nil
}

func buildTurnPrompt(req pipeline.DialogueRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	if req.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", req.Context)
	}
	fmt.Fprintf(&b, "\nNext speaker: %s (%s)\n", req.Speaker.Name, req.Speaker.Personality)

	if len(req.Transcript) == 0 {
		b.WriteString("\nThis is the opening line of the conversation. Set up the topic in character.\n")
	} else {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range req.Transcript {
			fmt.Fprintf(&b, "%s: %s\n", turn.AvatarName, turn.Text)
		}
		fmt.Fprintf(&b, "\nRespond to the last speaker as %s.\n", req.Speaker.Name)
	}

	b.WriteString(`
Output as JSON: {"text": "what the speaker says"}`)
	return b.String()
}

func parseTurnResponse(response string) (string, error) {
	response = extractJSON(response)

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", fmt.Errorf("no dialogue text in response")
	}
	return text, nil
}

// Mock implementation for development/testing
func (w *DialogueWriter) generateMock(req pipeline.DialogueRequest) string {
	if len(req.Transcript) == 0 {
		return fmt.Sprintf("So, %s. I've been thinking about this a lot lately, and I'd love to hear what everyone makes of it.", req.Topic)
	}
	last := req.Transcript[len(req.Transcript)-1]
	return fmt.Sprintf("That's an interesting point, %s. From where I stand, there's another side to %s worth considering.", last.AvatarName, req.Topic)
}
