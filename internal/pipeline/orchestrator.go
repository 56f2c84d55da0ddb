package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/store"
)

// errSuperseded means another writer (cancel, operator action) mutated the
// job while a stage was in flight; the stage result is discarded.
var errSuperseded = errors.New("job mutated concurrently, result discarded")

// Notifier receives job lifecycle events for live progress reporting.
type Notifier interface {
	Progress(jobID string, progress int, status model.JobStatus, step string)
	Complete(jobID string, result interface{})
	Failure(jobID, code, message string)
}

type noopNotifier struct{}

func (noopNotifier) Progress(string, int, model.JobStatus, string) {}
func (noopNotifier) Complete(string, interface{})                  {}
func (noopNotifier) Failure(string, string, string)                {}

// Adapters bundles the stage collaborators the orchestrator drives.
type Adapters struct {
	Script ScriptGenerator
	Image  ImageGenerator
	// Speech is an ordered list of interchangeable backends; the first is
	// primary, later entries are fallbacks.
	Speech   []SpeechSynthesizer
	Renderer VideoRenderer
}

// Config holds the orchestrator's policy knobs.
type Config struct {
	// DefaultBackground is used in place of a generated image when image
	// generation fails. The job proceeds and records the fallback.
	DefaultBackground string
	// RenderSlots bounds concurrent video rendering across all jobs.
	// Rendering is resource-exclusive, so the default is a single slot.
	RenderSlots int
	LeaseTTL    time.Duration

	ScriptTimeout time.Duration
	ImageTimeout  time.Duration
	SpeechTimeout time.Duration
	RenderTimeout time.Duration
}

func (c *Config) withDefaults() {
	if c.RenderSlots <= 0 {
		c.RenderSlots = 1
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 30 * time.Minute
	}
	if c.ScriptTimeout <= 0 {
		c.ScriptTimeout = 2 * time.Minute
	}
	if c.ImageTimeout <= 0 {
		c.ImageTimeout = 5 * time.Minute
	}
	if c.SpeechTimeout <= 0 {
		c.SpeechTimeout = 5 * time.Minute
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = 30 * time.Minute
	}
}

// Orchestrator drives a job through the stage state machine, applying the
// per-stage fallback and retry policy. All job mutations go through it; the
// per-job lease guarantees at-most-one concurrent run per job id.
type Orchestrator struct {
	store     store.Store
	adapters  Adapters
	cfg       Config
	notifier  Notifier
	renderSem chan struct{}
}

// New creates an orchestrator. notifier may be nil.
func New(st store.Store, adapters Adapters, cfg Config, notifier Notifier) *Orchestrator {
	cfg.withDefaults()
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Orchestrator{
		store:     st,
		adapters:  adapters,
		cfg:       cfg,
		notifier:  notifier,
		renderSem: make(chan struct{}, cfg.RenderSlots),
	}
}

// Run advances the job from its current status to a terminal or reviewable
// state. It is idempotent: stages whose artifacts already exist are skipped,
// so duplicate queue deliveries and operator retries are safe. A second Run
// on the same job id fails with ErrJobBusy while the first holds the lease.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	ok, err := o.store.AcquireLease(ctx, "job:"+jobID, o.cfg.LeaseTTL)
	if err != nil {
		return fmt.Errorf("acquire lease for job %s: %w", jobID, err)
	}
	if !ok {
		return ErrJobBusy
	}
	defer func() {
		if err := o.store.ReleaseLease(context.Background(), "job:"+jobID); err != nil {
			log.Printf("[%s] failed to release lease: %v", jobID, err)
		}
	}()

	for {
		job, err := o.store.GetJob(ctx, jobID)
		if err != nil {
			return err
		}

		var stageErr error
		var stage model.Stage

		switch job.Status {
		case model.JobStatusRetrying:
			prev, known := model.PrecedingStatus(job.FailedStage)
			if !known {
				stageErr = fmt.Errorf("cannot retry unknown stage %q", job.FailedStage)
				stage = job.FailedStage
				break
			}
			job.Status = prev
			job.Error = nil
			job.FailedStage = ""
			if err := o.update(ctx, job); err != nil {
				return o.stopOnSuperseded(err)
			}
			continue
		case model.JobStatusCreated:
			stage, stageErr = model.StageScript, o.runScriptStage(ctx, job)
		case model.JobStatusScriptReady:
			stage, stageErr = model.StageAssets, o.runAssetsStage(ctx, job)
		case model.JobStatusAssetsReady:
			stage, stageErr = model.StageRender, o.runRenderStage(ctx, job)
		case model.JobStatusVideoReady:
			stage, stageErr = "", o.finalize(ctx, job)
		default:
			// Terminal or reviewable; nothing left to drive.
			return nil
		}

		if stageErr != nil {
			if errors.Is(stageErr, errSuperseded) {
				return nil
			}
			o.failJob(ctx, job, stage, stageErr)
			return nil
		}
	}
}

func (o *Orchestrator) runScriptStage(ctx context.Context, job *model.Job) error {
	if job.Script == nil {
		o.progress(ctx, job, 10, "Generating script...")
		sctx, cancel := context.WithTimeout(ctx, o.cfg.ScriptTimeout)
		defer cancel()

		script, err := o.adapters.Script.GenerateScript(sctx, ScriptRequest{
			Title:    job.Content.Title,
			Body:     job.Content.BodyText(),
			Style:    job.Style,
			Duration: job.TargetDuration,
		})
		if err != nil {
			return err
		}
		if strings.TrimSpace(script.Script) == "" || strings.TrimSpace(script.SceneDescription) == "" {
			return fmt.Errorf("%w: empty script or scene description", ErrGenerationFailed)
		}
		job.Script = script
	}

	job.Status = model.JobStatusScriptReady
	job.Progress = 30
	job.CurrentStep = "Script ready"
	return o.update(ctx, job)
}

type imageResult struct {
	image *model.GeneratedImage
	err   error
}

type speechResult struct {
	audio   *model.GeneratedAudio
	backend string
	primary bool
	err     error
}

// runAssetsStage generates the background image and the narration audio
// concurrently; they share no data dependency. Image failure falls back to
// the configured default background; speech failure on the primary backend
// retries once against each fallback backend in order.
func (o *Orchestrator) runAssetsStage(ctx context.Context, job *model.Job) error {
	imgCh := make(chan imageResult, 1)
	audCh := make(chan speechResult, 1)

	if job.Image != nil {
		imgCh <- imageResult{image: job.Image}
	} else {
		o.progress(ctx, job, 40, "Generating background and narration...")
		go func() {
			ictx, cancel := context.WithTimeout(ctx, o.cfg.ImageTimeout)
			defer cancel()
			img, err := o.adapters.Image.GenerateImage(ictx, job.Script.SceneDescription, "16:9")
			imgCh <- imageResult{image: img, err: err}
		}()
	}

	if job.Audio != nil {
		audCh <- speechResult{audio: job.Audio, backend: job.Audio.Backend, primary: true}
	} else {
		go func() {
			audCh <- o.synthesize(ctx, job.Script.Script)
		}()
	}

	img := <-imgCh
	aud := <-audCh

	if img.err != nil {
		if o.cfg.DefaultBackground == "" {
			return img.err
		}
		// Policy decision, not an error path: proceed on the default
		// background and make the fallback observable on the record.
		job.Image = &model.GeneratedImage{
			Path:   o.cfg.DefaultBackground,
			Prompt: job.Script.SceneDescription,
			Source: "default",
		}
		job.AddNote("used default background: %v", img.err)
		log.Printf("[%s] image generation failed, using default background: %v", job.ID, img.err)
	} else {
		job.Image = img.image
	}

	if aud.err != nil {
		return aud.err
	}
	job.Audio = aud.audio
	if !aud.primary {
		job.AddNote("speech synthesis fell back to %s backend", aud.backend)
	}

	job.Status = model.JobStatusAssetsReady
	job.Progress = 60
	job.CurrentStep = "Assets ready"
	return o.update(ctx, job)
}

// synthesize tries each configured backend in order and returns the first
// success.
func (o *Orchestrator) synthesize(ctx context.Context, text string) speechResult {
	voice := ""
	var errs []string
	for i, backend := range o.adapters.Speech {
		sctx, cancel := context.WithTimeout(ctx, o.cfg.SpeechTimeout)
		audio, err := backend.Synthesize(sctx, text, voice)
		cancel()
		if err == nil {
			return speechResult{audio: audio, backend: backend.Name(), primary: i == 0}
		}
		errs = append(errs, fmt.Sprintf("%s: %v", backend.Name(), err))
	}
	return speechResult{err: fmt.Errorf("%w: all backends failed: %s", ErrSynthesisFailed, strings.Join(errs, "; "))}
}

// runRenderStage renders the avatar video. There is no fallback here: the
// video is the product, so a failure is terminal for the job.
func (o *Orchestrator) runRenderStage(ctx context.Context, job *model.Job) error {
	if job.Video == nil {
		o.progress(ctx, job, 70, "Rendering avatar video...")

		select {
		case o.renderSem <- struct{}{}:
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrRenderFailed, ctx.Err())
		}

		prompt := job.Script.Title + ". " + job.Script.SceneDescription
		rctx, cancel := context.WithTimeout(ctx, o.cfg.RenderTimeout)
		video, err := o.adapters.Renderer.Render(rctx, prompt, job.Image.Path, job.Audio.Path, "video_"+job.ID)
		cancel()
		<-o.renderSem

		if err != nil {
			return err
		}
		job.Video = video
	}

	job.Status = model.JobStatusVideoReady
	job.Progress = 90
	job.CurrentStep = "Video rendered"
	return o.update(ctx, job)
}

func (o *Orchestrator) finalize(ctx context.Context, job *model.Job) error {
	now := time.Now()
	if job.AutoApprove {
		job.Status = model.JobStatusCompleted
		job.CompletedAt = &now
		job.CurrentStep = "Completed"
	} else {
		job.Status = model.JobStatusQueuedForReview
		job.CurrentStep = "Awaiting review"
	}
	job.Progress = 100
	if err := o.update(ctx, job); err != nil {
		return err
	}
	o.notifier.Complete(job.ID, job)
	log.Printf("[%s] pipeline complete: %s", job.ID, job.Status)
	return nil
}

func (o *Orchestrator) failJob(ctx context.Context, job *model.Job, stage model.Stage, stageErr error) {
	// Preserve the error detail verbatim for operator inspection.
	msg := stageErr.Error()
	job.Status = model.JobStatusFailed
	job.FailedStage = stage
	job.Error = &msg
	job.CurrentStep = "Failed"
	if err := o.update(ctx, job); err != nil && !errors.Is(err, errSuperseded) {
		log.Printf("[%s] failed to record job failure: %v", job.ID, err)
	}
	o.notifier.Failure(job.ID, "PIPELINE_FAILED", msg)
	log.Printf("[%s] stage %s failed: %v", job.ID, stage, stageErr)
}

// update persists the job. A version conflict means another writer (cancel,
// reviewer) got there first; if the stored record is terminal the in-flight
// result is discarded per the cancellation policy.
func (o *Orchestrator) update(ctx context.Context, job *model.Job) error {
	job.UpdatedAt = time.Now()
	err := o.store.UpdateJob(ctx, job)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrConflict) {
		current, gerr := o.store.GetJob(ctx, job.ID)
		if gerr == nil && (current.Status.Terminal() || current.Status == model.JobStatusFailed) {
			log.Printf("[%s] discarding stage result: job is now %s", job.ID, current.Status)
			return errSuperseded
		}
	}
	return err
}

func (o *Orchestrator) stopOnSuperseded(err error) error {
	if errors.Is(err, errSuperseded) {
		return nil
	}
	return err
}

func (o *Orchestrator) progress(ctx context.Context, job *model.Job, percent int, step string) {
	job.Progress = percent
	job.CurrentStep = step
	if err := o.update(ctx, job); err != nil {
		log.Printf("[%s] failed to update progress: %v", job.ID, err)
	}
	o.notifier.Progress(job.ID, percent, job.Status, step)
}
