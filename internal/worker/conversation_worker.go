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

// ConversationWorker processes queued conversation tasks.
type ConversationWorker struct {
	coordinator *pipeline.Coordinator
}

func NewConversationWorker(coord *pipeline.Coordinator) *ConversationWorker {
	return &ConversationWorker{coordinator: coord}
}

// ProcessTask drives one conversation end to end.
func (w *ConversationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload taskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	log.Printf("[%s] starting conversation run", payload.ID)
	if err := w.coordinator.Run(ctx, payload.ID); err != nil {
		if errors.Is(err, pipeline.ErrJobBusy) {
			log.Printf("[%s] duplicate delivery, conversation already running", payload.ID)
			return nil
		}
		return fmt.Errorf("conversation run for %s: %w", payload.ID, err)
	}
	return nil
}
