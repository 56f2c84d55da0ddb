package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/store"
)

type stubDialogue struct {
	calls int32
	err   error
}

func (s *stubDialogue) GenerateTurn(ctx context.Context, req DialogueRequest) (string, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("%s makes point number %d about %s.", req.Speaker.Name, n, req.Topic), nil
}

// failSeqRenderer fails renders whose output name carries one of the given
// turn sequences and succeeds otherwise.
type failSeqRenderer struct {
	failSeqs []int
	calls    int32
}

func (r *failSeqRenderer) Render(ctx context.Context, prompt, imagePath, audioPath, outputName string) (*model.AvatarVideo, error) {
	atomic.AddInt32(&r.calls, 1)
	for _, seq := range r.failSeqs {
		if strings.HasSuffix(outputName, fmt.Sprintf("_turn_%d", seq)) {
			return nil, fmt.Errorf("render rejected for %s", outputName)
		}
	}
	return &model.AvatarVideo{Path: outputName + ".mp4", Duration: 8}, nil
}

func seedAvatars(t *testing.T, st store.Store, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, name := range names {
		a := &model.AvatarProfile{
			ID:          uuid.New().String(),
			Name:        name,
			Personality: "thoughtful and direct",
			VoiceStyle:  "neutral",
			CreatedAt:   time.Now(),
		}
		if err := st.CreateAvatar(context.Background(), a); err != nil {
			t.Fatalf("create avatar: %v", err)
		}
		ids = append(ids, a.ID)
	}
	return ids
}

func newTestConversation(t *testing.T, st store.Store, avatarIDs []string, exchanges int, policy model.TurnPolicy) *model.Conversation {
	t.Helper()
	now := time.Now()
	conv := &model.Conversation{
		ID:           uuid.New().String(),
		Topic:        "the future of renewable energy",
		Style:        model.ConversationDiscussion,
		AvatarIDs:    avatarIDs,
		NumExchanges: exchanges,
		TurnPolicy:   policy,
		Status:       model.ConversationStatusCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := st.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	return conv
}

func TestConversationRunCompletes(t *testing.T) {
	st := store.NewMemoryStore()
	ids := seedAvatars(t, st, "Maya", "Leo")
	conv := newTestConversation(t, st, ids, 4, model.TurnPolicyDrop)

	dialogue := &stubDialogue{}
	stitcher := &stubStitcher{}
	c := NewCoordinator(st, dialogue, []SpeechSynthesizer{&stubSpeech{name: "primary"}}, &stubRenderer{}, stitcher, CoordinatorConfig{})
	if err := c.Run(context.Background(), conv.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, err := st.GetConversation(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if got.Status != model.ConversationStatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.FinalVideo == nil {
		t.Fatal("expected final video")
	}
	if len(got.Turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(got.Turns))
	}

	// Speakers rotate over the avatar roster in order.
	for i, turn := range got.Turns {
		if turn.Sequence != i {
			t.Errorf("turn %d has sequence %d", i, turn.Sequence)
		}
		if want := ids[i%len(ids)]; turn.AvatarID != want {
			t.Errorf("turn %d spoken by %s, want %s", i, turn.AvatarID, want)
		}
		if turn.Status != model.TurnStatusCompleted {
			t.Errorf("turn %d status %s", i, turn.Status)
		}
	}
}

func TestConversationStitchOrderBySequence(t *testing.T) {
	st := store.NewMemoryStore()
	ids := seedAvatars(t, st, "Maya", "Leo")
	conv := newTestConversation(t, st, ids, 4, model.TurnPolicyDrop)

	// Later turns finish rendering first; stitch order must not care.
	renderer := &stubRenderer{delay: func(outputName string) time.Duration {
		for seq := 0; seq < 4; seq++ {
			if strings.HasSuffix(outputName, fmt.Sprintf("_turn_%d", seq)) {
				return time.Duration(3-seq) * 40 * time.Millisecond
			}
		}
		return 0
	}}
	stitcher := &stubStitcher{}
	c := NewCoordinator(st, &stubDialogue{}, []SpeechSynthesizer{&stubSpeech{name: "primary"}}, renderer, stitcher,
		CoordinatorConfig{MaxConcurrentRenders: 4})
	if err := c.Run(context.Background(), conv.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(stitcher.paths) != 4 {
		t.Fatalf("expected 4 clips stitched, got %d", len(stitcher.paths))
	}
	for i, p := range stitcher.paths {
		if !strings.Contains(p, fmt.Sprintf("_turn_%d", i)) {
			t.Errorf("clip %d out of order: %s", i, p)
		}
	}
}

func TestConversationDropFailedPolicy(t *testing.T) {
	st := store.NewMemoryStore()
	ids := seedAvatars(t, st, "Maya", "Leo")
	conv := newTestConversation(t, st, ids, 3, model.TurnPolicyDrop)

	renderer := &failSeqRenderer{failSeqs: []int{1}}
	stitcher := &stubStitcher{}
	c := NewCoordinator(st, &stubDialogue{}, []SpeechSynthesizer{&stubSpeech{name: "primary"}}, renderer, stitcher, CoordinatorConfig{})
	if err := c.Run(context.Background(), conv.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, _ := st.GetConversation(context.Background(), conv.ID)
	if got.Status != model.ConversationStatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if len(got.DroppedTurns) != 1 || got.DroppedTurns[0] != 1 {
		t.Fatalf("expected dropped turns [1], got %v", got.DroppedTurns)
	}
	if got.Turns[1].Status != model.TurnStatusFailed {
		t.Errorf("expected turn 1 marked failed, got %s", got.Turns[1].Status)
	}
	if len(stitcher.paths) != 2 {
		t.Fatalf("expected 2 clips stitched, got %d", len(stitcher.paths))
	}
	for _, p := range stitcher.paths {
		if strings.Contains(p, "_turn_1") {
			t.Errorf("failed turn made it into the stitch: %s", p)
		}
	}
}

func TestConversationStrictPolicyFails(t *testing.T) {
	st := store.NewMemoryStore()
	ids := seedAvatars(t, st, "Maya", "Leo")
	conv := newTestConversation(t, st, ids, 3, model.TurnPolicyStrict)

	renderer := &failSeqRenderer{failSeqs: []int{1}}
	stitcher := &stubStitcher{}
	c := NewCoordinator(st, &stubDialogue{}, []SpeechSynthesizer{&stubSpeech{name: "primary"}}, renderer, stitcher, CoordinatorConfig{})
	if err := c.Run(context.Background(), conv.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, _ := st.GetConversation(context.Background(), conv.ID)
	if got.Status != model.ConversationStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.Error == nil || !strings.Contains(*got.Error, "strict policy") {
		t.Errorf("expected strict policy error, got %v", got.Error)
	}
	if len(stitcher.paths) != 0 {
		t.Error("expected no stitch after strict failure")
	}
	if got.FinalVideo != nil {
		t.Error("expected no final video")
	}
}

func TestConversationAllTurnsFailedCannotStitch(t *testing.T) {
	st := store.NewMemoryStore()
	ids := seedAvatars(t, st, "Maya", "Leo")
	conv := newTestConversation(t, st, ids, 2, model.TurnPolicyDrop)

	renderer := &failSeqRenderer{failSeqs: []int{0, 1}}
	c := NewCoordinator(st, &stubDialogue{}, []SpeechSynthesizer{&stubSpeech{name: "primary"}}, renderer, &stubStitcher{}, CoordinatorConfig{})
	if err := c.Run(context.Background(), conv.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, _ := st.GetConversation(context.Background(), conv.ID)
	if got.Status != model.ConversationStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.Error == nil || !strings.Contains(*got.Error, "stitch") {
		t.Errorf("expected stitch error recorded, got %v", got.Error)
	}
}

func TestConversationDialogueFailureFails(t *testing.T) {
	st := store.NewMemoryStore()
	ids := seedAvatars(t, st, "Maya", "Leo")
	conv := newTestConversation(t, st, ids, 3, model.TurnPolicyDrop)

	dialogue := &stubDialogue{err: errors.New("model overloaded")}
	c := NewCoordinator(st, dialogue, []SpeechSynthesizer{&stubSpeech{name: "primary"}}, &stubRenderer{}, &stubStitcher{}, CoordinatorConfig{})
	if err := c.Run(context.Background(), conv.ID); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, _ := st.GetConversation(context.Background(), conv.ID)
	if got.Status != model.ConversationStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestConversationConcurrentRunReturnsBusy(t *testing.T) {
	st := store.NewMemoryStore()
	ids := seedAvatars(t, st, "Maya", "Leo")
	conv := newTestConversation(t, st, ids, 2, model.TurnPolicyDrop)

	renderer := &stubRenderer{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := NewCoordinator(st, &stubDialogue{}, []SpeechSynthesizer{&stubSpeech{name: "primary"}}, renderer, &stubStitcher{}, CoordinatorConfig{})

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background(), conv.ID) }()

	<-renderer.started
	if err := c.Run(context.Background(), conv.ID); !errors.Is(err, ErrJobBusy) {
		t.Errorf("expected ErrJobBusy, got %v", err)
	}

	close(renderer.release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := "naïve café"
	for n := 0; n <= len(s); n++ {
		got := truncate(s, n)
		if len(got) > n {
			t.Fatalf("truncate(%q, %d) = %q, longer than limit", s, n, got)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("truncate(%q, %d) = %q, split a rune", s, n, got)
		}
	}
	if truncate("short", 10) != "short" {
		t.Error("strings under the limit must pass through unchanged")
	}
}
