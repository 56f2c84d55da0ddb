package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/novaavatar/api/internal/pipeline"
)

// taskPayload is the envelope shared by all pipeline tasks.
type taskPayload struct {
	ID string `json:"id"`
}

// VideoWorker processes queued video pipeline tasks.
type VideoWorker struct {
	orchestrator *pipeline.Orchestrator
}

func NewVideoWorker(orch *pipeline.Orchestrator) *VideoWorker {
	return &VideoWorker{orchestrator: orch}
}

// ProcessTask drives one job through the pipeline. A busy lease means the
// delivery is a duplicate of an active run and is dropped, not retried.
func (w *VideoWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload taskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("[%s] starting pipeline run", payload.ID)
	if err := w.orchestrator.Run(ctx, payload.ID); err != nil {
		if errors.Is(err, pipeline.ErrJobBusy) {
			log.Printf("[%s] duplicate delivery, job already running", payload.ID)
			return nil
		}
		return fmt.Errorf("pipeline run for job %s: %w", payload.ID, err)
	}
	return nil
}
