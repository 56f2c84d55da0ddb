package pipeline

import "errors"

// Typed failures surfaced by stage adapters and orchestrator operations.
// Stage errors are wrapped with %w so the orchestrator can match them with
// errors.Is while preserving the underlying detail verbatim.
var (
	// ErrSourceUnavailable means no content source was reachable.
	ErrSourceUnavailable = errors.New("no content sources available")
	// ErrGenerationFailed covers script and image generation failures.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrSynthesisFailed means speech synthesis failed on a backend.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
	// ErrRenderFailed means avatar video rendering failed.
	ErrRenderFailed = errors.New("video rendering failed")
	// ErrStitchFailed means concatenating turn videos failed.
	ErrStitchFailed = errors.New("video stitching failed")
	// ErrInvalidTransition means a caller attempted an action not valid for
	// the job's current state. Always surfaced, never silently ignored.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrJobBusy means another run already holds the job's lease.
	ErrJobBusy = errors.New("job is already being processed")
)
