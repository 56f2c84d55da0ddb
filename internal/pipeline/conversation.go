package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/store"
)

// CoordinatorConfig holds the conversation-specific policy knobs.
type CoordinatorConfig struct {
	// MaxConcurrentRenders bounds per-turn rendering. Zero means one slot
	// per distinct participating avatar, which avoids GPU oversubscription.
	MaxConcurrentRenders int
	LeaseTTL             time.Duration
	DialogueTimeout      time.Duration
	SpeechTimeout        time.Duration
	RenderTimeout        time.Duration
	StitchTimeout        time.Duration
}

func (c *CoordinatorConfig) withDefaults() {
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = time.Hour
	}
	if c.DialogueTimeout <= 0 {
		c.DialogueTimeout = 2 * time.Minute
	}
	if c.SpeechTimeout <= 0 {
		c.SpeechTimeout = 5 * time.Minute
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = 30 * time.Minute
	}
	if c.StitchTimeout <= 0 {
		c.StitchTimeout = 10 * time.Minute
	}
}

// Coordinator fans a topic out into N dialogue turns across avatar
// profiles, renders each turn concurrently up to a limit, and stitches the
// results strictly by sequence number.
type Coordinator struct {
	store    store.Store
	dialogue DialogueGenerator
	speech   []SpeechSynthesizer
	renderer VideoRenderer
	stitcher VideoStitcher
	cfg      CoordinatorConfig
}

// NewCoordinator creates a conversation coordinator sharing the
// orchestrator's speech and render adapters.
func NewCoordinator(st store.Store, dialogue DialogueGenerator, speech []SpeechSynthesizer, renderer VideoRenderer, stitcher VideoStitcher, cfg CoordinatorConfig) *Coordinator {
	cfg.withDefaults()
	return &Coordinator{
		store:    st,
		dialogue: dialogue,
		speech:   speech,
		renderer: renderer,
		stitcher: stitcher,
		cfg:      cfg,
	}
}

// Run drives one conversation end to end. Like the job orchestrator it is
// lease-guarded and resumable: turns already generated or rendered are not
// redone on redelivery.
func (c *Coordinator) Run(ctx context.Context, conversationID string) error {
	ok, err := c.store.AcquireLease(ctx, "conversation:"+conversationID, c.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("acquire lease for conversation %s: %w", conversationID, err)
	}
	if !ok {
		return ErrJobBusy
	}
	defer func() {
		if err := c.store.ReleaseLease(context.Background(), "conversation:"+conversationID); err != nil {
			log.Printf("[%s] failed to release lease: %v", conversationID, err)
		}
	}()

	conv, err := c.store.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Status == model.ConversationStatusCompleted || conv.Status == model.ConversationStatusFailed {
		return nil
	}

	avatars, err := c.loadAvatars(ctx, conv.AvatarIDs)
	if err != nil {
		return c.fail(ctx, conv, err)
	}

	if err := c.generateDialogue(ctx, conv, avatars); err != nil {
		return c.fail(ctx, conv, err)
	}
	if err := c.renderTurns(ctx, conv, avatars); err != nil {
		return c.fail(ctx, conv, err)
	}
	if err := c.stitch(ctx, conv); err != nil {
		return c.fail(ctx, conv, err)
	}

	now := time.Now()
	conv.Status = model.ConversationStatusCompleted
	conv.Progress = 100
	conv.CurrentStep = "Completed"
	conv.CompletedAt = &now
	conv.UpdatedAt = now
	if err := c.store.UpdateConversation(ctx, conv); err != nil {
		return err
	}
	log.Printf("[%s] conversation complete: %d turns", conv.ID, len(conv.Turns))
	return nil
}

func (c *Coordinator) loadAvatars(ctx context.Context, ids []string) ([]model.AvatarProfile, error) {
	avatars := make([]model.AvatarProfile, 0, len(ids))
	for _, id := range ids {
		a, err := c.store.GetAvatar(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("avatar not found: %s", id)
			}
			return nil, err
		}
		avatars = append(avatars, *a)
	}
	return avatars, nil
}

// generateDialogue produces the turns strictly sequentially: each turn
// depends on the transcript so far. Sequence numbers are assigned
// monotonically at generation time, not at completion time.
func (c *Coordinator) generateDialogue(ctx context.Context, conv *model.Conversation, avatars []model.AvatarProfile) error {
	if len(conv.Turns) >= conv.NumExchanges {
		return nil
	}
	c.step(ctx, conv, model.ConversationStatusDialogue, 10, "Generating dialogue...")

	for i := len(conv.Turns); i < conv.NumExchanges; i++ {
		speaker := avatars[i%len(avatars)]

		dctx, cancel := context.WithTimeout(ctx, c.cfg.DialogueTimeout)
		text, err := c.dialogue.GenerateTurn(dctx, DialogueRequest{
			Topic:      conv.Topic,
			Context:    conv.Context,
			Style:      conv.Style,
			Speaker:    speaker,
			Transcript: conv.Turns,
		})
		cancel()
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: empty dialogue turn for %s", ErrGenerationFailed, speaker.Name)
		}

		conv.Turns = append(conv.Turns, model.DialogueTurn{
			Sequence:   i,
			AvatarID:   speaker.ID,
			AvatarName: speaker.Name,
			Text:       text,
			Status:     model.TurnStatusPending,
		})
		conv.UpdatedAt = time.Now()
		if err := c.store.UpdateConversation(ctx, conv); err != nil {
			return err
		}
	}
	return nil
}

type turnResult struct {
	sequence int
	audio    *model.GeneratedAudio
	video    *model.AvatarVideo
	err      error
}

// renderTurns synthesizes speech and renders video for every pending turn,
// concurrently up to the configured limit. Results are collected over a
// channel; nothing mutates the conversation from inside a worker goroutine.
func (c *Coordinator) renderTurns(ctx context.Context, conv *model.Conversation, avatars []model.AvatarProfile) error {
	pending := 0
	for _, t := range conv.Turns {
		if t.Status == model.TurnStatusPending {
			pending++
		}
	}
	if pending == 0 {
		return c.applyTurnPolicy(ctx, conv)
	}

	limit := c.cfg.MaxConcurrentRenders
	if limit <= 0 {
		limit = len(avatars)
	}
	c.step(ctx, conv, model.ConversationStatusRendering, 30, fmt.Sprintf("Rendering %d turns...", pending))

	byID := make(map[string]model.AvatarProfile, len(avatars))
	for _, a := range avatars {
		byID[a.ID] = a
	}

	sem := make(chan struct{}, limit)
	results := make(chan turnResult, pending)
	for _, turn := range conv.Turns {
		if turn.Status != model.TurnStatusPending {
			continue
		}
		turn := turn
		go func() {
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- c.renderTurn(ctx, conv.ID, turn, byID[turn.AvatarID])
		}()
	}

	// Wait for every turn to reach a terminal per-turn state before any
	// stitching decision.
	for i := 0; i < pending; i++ {
		res := <-results
		turn := &conv.Turns[res.sequence]
		if res.err != nil {
			turn.Status = model.TurnStatusFailed
			turn.Note = res.err.Error()
			log.Printf("[%s] turn %d failed: %v", conv.ID, res.sequence, res.err)
		} else {
			turn.Status = model.TurnStatusCompleted
			turn.Audio = res.audio
			turn.Video = res.video
		}
		conv.Progress = 30 + (i+1)*50/pending
		conv.UpdatedAt = time.Now()
		if err := c.store.UpdateConversation(ctx, conv); err != nil {
			return err
		}
	}

	return c.applyTurnPolicy(ctx, conv)
}

func (c *Coordinator) renderTurn(ctx context.Context, convID string, turn model.DialogueTurn, avatar model.AvatarProfile) turnResult {
	audio, err := c.synthesizeTurn(ctx, turn.Text, avatar.VoiceStyle)
	if err != nil {
		return turnResult{sequence: turn.Sequence, err: err}
	}

	prompt := fmt.Sprintf("%s speaking: %s", avatar.Name, truncate(turn.Text, 100))
	rctx, cancel := context.WithTimeout(ctx, c.cfg.RenderTimeout)
	defer cancel()
	video, err := c.renderer.Render(rctx, prompt, avatar.ImagePath, audio.Path,
		fmt.Sprintf("conv_%s_turn_%d", convID, turn.Sequence))
	if err != nil {
		return turnResult{sequence: turn.Sequence, err: err}
	}
	return turnResult{sequence: turn.Sequence, audio: audio, video: video}
}

func (c *Coordinator) synthesizeTurn(ctx context.Context, text, voice string) (*model.GeneratedAudio, error) {
	var errs []string
	for _, backend := range c.speech {
		sctx, cancel := context.WithTimeout(ctx, c.cfg.SpeechTimeout)
		audio, err := backend.Synthesize(sctx, text, voice)
		cancel()
		if err == nil {
			return audio, nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", backend.Name(), err))
	}
	return nil, fmt.Errorf("%w: all backends failed: %s", ErrSynthesisFailed, strings.Join(errs, "; "))
}

// applyTurnPolicy resolves failed turns according to the conversation's
// recorded policy: strict fails the conversation, drop_failed drops the
// failed turns and records which sequences were dropped.
func (c *Coordinator) applyTurnPolicy(ctx context.Context, conv *model.Conversation) error {
	var failed []int
	for _, t := range conv.Turns {
		if t.Status == model.TurnStatusFailed {
			failed = append(failed, t.Sequence)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	switch conv.TurnPolicy {
	case model.TurnPolicyStrict:
		return fmt.Errorf("%w: %d of %d turns failed under strict policy", ErrRenderFailed, len(failed), len(conv.Turns))
	default:
		conv.DroppedTurns = append(conv.DroppedTurns, failed...)
		sort.Ints(conv.DroppedTurns)
		conv.UpdatedAt = time.Now()
		return c.store.UpdateConversation(ctx, conv)
	}
}

// stitch concatenates the completed turn videos strictly by sequence
// number, regardless of the order in which their renders finished.
func (c *Coordinator) stitch(ctx context.Context, conv *model.Conversation) error {
	if conv.FinalVideo != nil {
		return nil
	}
	c.step(ctx, conv, model.ConversationStatusStitching, 90, "Stitching videos...")

	turns := make([]model.DialogueTurn, 0, len(conv.Turns))
	for _, t := range conv.Turns {
		if t.Status == model.TurnStatusCompleted && t.Video != nil {
			turns = append(turns, t)
		}
	}
	sort.Slice(turns, func(i, k int) bool { return turns[i].Sequence < turns[k].Sequence })

	if len(turns) == 0 {
		return fmt.Errorf("%w: no completed turns to stitch", ErrStitchFailed)
	}

	paths := make([]string, len(turns))
	for i, t := range turns {
		paths[i] = t.Video.Path
	}

	sctx, cancel := context.WithTimeout(ctx, c.cfg.StitchTimeout)
	defer cancel()
	final, err := c.stitcher.Stitch(sctx, paths, "conversation_"+conv.ID, true)
	if err != nil {
		return err
	}
	conv.FinalVideo = final
	conv.UpdatedAt = time.Now()
	return c.store.UpdateConversation(ctx, conv)
}

func (c *Coordinator) fail(ctx context.Context, conv *model.Conversation, cause error) error {
	msg := cause.Error()
	conv.Status = model.ConversationStatusFailed
	conv.Error = &msg
	conv.CurrentStep = "Failed"
	conv.UpdatedAt = time.Now()
	if err := c.store.UpdateConversation(ctx, conv); err != nil {
		log.Printf("[%s] failed to record conversation failure: %v", conv.ID, err)
	}
	log.Printf("[%s] conversation failed: %v", conv.ID, cause)
	return nil
}

func (c *Coordinator) step(ctx context.Context, conv *model.Conversation, status model.ConversationStatus, progress int, step string) {
	conv.Status = status
	conv.Progress = progress
	conv.CurrentStep = step
	conv.UpdatedAt = time.Now()
	if err := c.store.UpdateConversation(ctx, conv); err != nil {
		log.Printf("[%s] failed to update conversation: %v", conv.ID, err)
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
