package generate

import (
	"context"
	"strings"
	"testing"

	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/pipeline"
)

func TestParseTurnResponse(t *testing.T) {
	text, err := parseTurnResponse(`Here you go: {"text": "I completely agree with that."}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if text != "I completely agree with that." {
		t.Errorf("text = %q", text)
	}

	if _, err := parseTurnResponse(`{"text": "   "}`); err == nil {
		t.Error("expected error for blank text")
	}
	if _, err := parseTurnResponse("garbage"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestGenerateTurnMock(t *testing.T) {
	w := NewDialogueWriter(nil)

	opening, err := w.GenerateTurn(context.Background(), pipeline.DialogueRequest{
		Topic:   "space tourism",
		Speaker: model.AvatarProfile{Name: "Maya"},
	})
	if err != nil {
		t.Fatalf("opening turn: %v", err)
	}
	if !strings.Contains(opening, "space tourism") {
		t.Errorf("expected topic in opening line, got %q", opening)
	}

	reply, err := w.GenerateTurn(context.Background(), pipeline.DialogueRequest{
		Topic:   "space tourism",
		Speaker: model.AvatarProfile{Name: "Leo"},
		Transcript: []model.DialogueTurn{
			{Sequence: 0, AvatarName: "Maya", Text: opening},
		},
	})
	if err != nil {
		t.Fatalf("reply turn: %v", err)
	}
	if !strings.Contains(reply, "Maya") {
		t.Errorf("expected reply to address the last speaker, got %q", reply)
	}
}

func TestBuildTurnPromptIncludesTranscript(t *testing.T) {
	prompt := buildTurnPrompt(pipeline.DialogueRequest{
		Topic:   "ocean cleanup",
		Style:   model.ConversationDebate,
		Speaker: model.AvatarProfile{Name: "Leo", Personality: "skeptical"},
		Transcript: []model.DialogueTurn{
			{AvatarName: "Maya", Text: "The tech works."},
		},
	})
	if !strings.Contains(prompt, "Maya: The tech works.") {
		t.Errorf("expected transcript in prompt, got %q", prompt)
	}
	if !strings.Contains(prompt, "Next speaker: Leo (skeptical)") {
		t.Errorf("expected speaker line, got %q", prompt)
	}

	opening := buildTurnPrompt(pipeline.DialogueRequest{
		Topic:   "ocean cleanup",
		Speaker: model.AvatarProfile{Name: "Maya"},
	})
	if !strings.Contains(opening, "opening line") {
		t.Errorf("expected opening instruction, got %q", opening)
	}
}
