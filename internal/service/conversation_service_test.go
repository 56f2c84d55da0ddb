package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/pipeline"
	"github.com/novaavatar/api/internal/store"
)

type okDialogue struct{}

func (okDialogue) GenerateTurn(ctx context.Context, req pipeline.DialogueRequest) (string, error) {
	return fmt.Sprintf("%s has a view on %s.", req.Speaker.Name, req.Topic), nil
}

type okStitcher struct{}

func (okStitcher) Stitch(ctx context.Context, paths []string, outputName string, transitions bool) (*model.AvatarVideo, error) {
	return &model.AvatarVideo{Path: "/tmp/" + outputName + ".mp4"}, nil
}

func newInlineConversationService(st store.Store) *ConversationService {
	coord := pipeline.NewCoordinator(st, okDialogue{},
		[]pipeline.SpeechSynthesizer{okSpeech{}}, okRenderer{}, okStitcher{},
		pipeline.CoordinatorConfig{})
	return NewConversationService(st, nil, coord, "")
}

func seedTwoAvatars(t *testing.T, st store.Store) []string {
	t.Helper()
	ids := make([]string, 0, 2)
	for i, name := range []string{"Maya", "Leo"} {
		a := &model.AvatarProfile{
			ID:        fmt.Sprintf("avatar-%d", i),
			Name:      name,
			CreatedAt: time.Now(),
		}
		if err := st.CreateAvatar(context.Background(), a); err != nil {
			t.Fatalf("seed avatar: %v", err)
		}
		ids = append(ids, a.ID)
	}
	return ids
}

func waitForConversationStatus(t *testing.T, st store.Store, id string, want model.ConversationStatus) *model.Conversation {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conv, err := st.GetConversation(context.Background(), id)
		if err != nil {
			t.Fatalf("get conversation: %v", err)
		}
		if conv.Status == want {
			return conv
		}
		if conv.Status == model.ConversationStatusFailed {
			t.Fatalf("conversation failed while waiting for %s: %v", want, conv.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %s", want)
	return nil
}

func TestConversationCreateRunsInline(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newInlineConversationService(st)
	ids := seedTwoAvatars(t, st)

	resp, err := svc.Create(context.Background(), &model.ConversationCreateRequest{
		Topic:     "electric aviation",
		AvatarIDs: ids,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	conv := waitForConversationStatus(t, st, resp.ConversationID, model.ConversationStatusCompleted)
	if conv.NumExchanges != 6 {
		t.Errorf("expected default exchanges, got %d", conv.NumExchanges)
	}
	if conv.Style != model.ConversationDiscussion {
		t.Errorf("expected default style, got %s", conv.Style)
	}
	if conv.TurnPolicy != model.TurnPolicyDrop {
		t.Errorf("expected default turn policy, got %s", conv.TurnPolicy)
	}
	if len(conv.Turns) != 6 {
		t.Errorf("expected 6 turns, got %d", len(conv.Turns))
	}
	if conv.FinalVideo == nil {
		t.Error("expected stitched final video")
	}
}

func TestConversationCreateRejectsUnknownAvatar(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newInlineConversationService(st)
	ids := seedTwoAvatars(t, st)

	_, err := svc.Create(context.Background(), &model.ConversationCreateRequest{
		Topic:     "electric aviation",
		AvatarIDs: append(ids, "ghost"),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown avatar, got %v", err)
	}
}

func TestConversationVideoFileRequiresVideo(t *testing.T) {
	st := store.NewMemoryStore()
	svc := newInlineConversationService(st)

	conv := &model.Conversation{ID: "c1", Status: model.ConversationStatusCreated, CreatedAt: time.Now()}
	if err := st.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.VideoFile(context.Background(), "c1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
