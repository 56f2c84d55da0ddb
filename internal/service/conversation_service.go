package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/pipeline"
	"github.com/novaavatar/api/internal/store"
)

// ConversationService manages multi-avatar conversation records. Dialogue
// generation, per-turn rendering and stitching happen in the coordinator.
type ConversationService struct {
	store             store.Store
	asynqClient       *asynq.Client // nil in inline mode
	coordinator       *pipeline.Coordinator
	defaultTurnPolicy model.TurnPolicy
}

func NewConversationService(st store.Store, asynqClient *asynq.Client, coord *pipeline.Coordinator, defaultTurnPolicy model.TurnPolicy) *ConversationService {
	if defaultTurnPolicy == "" {
		defaultTurnPolicy = model.TurnPolicyDrop
	}
	return &ConversationService{
		store:             st,
		asynqClient:       asynqClient,
		coordinator:       coord,
		defaultTurnPolicy: defaultTurnPolicy,
	}
}

// Create validates the participants and queues the conversation.
func (s *ConversationService) Create(ctx context.Context, req *model.ConversationCreateRequest) (*model.ConversationCreateResponse, error) {
	for _, id := range req.AvatarIDs {
		if _, err := s.store.GetAvatar(ctx, id); err != nil {
			return nil, fmt.Errorf("avatar %s: %w", id, err)
		}
	}

	now := time.Now()
	conv := &model.Conversation{
		ID:           uuid.New().String(),
		Topic:        req.Topic,
		Context:      req.Context,
		Style:        req.Style,
		AvatarIDs:    req.AvatarIDs,
		NumExchanges: req.NumExchanges,
		TurnPolicy:   req.TurnPolicy,
		Status:       model.ConversationStatusCreated,
		CurrentStep:  "Queued",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if conv.Style == "" {
		conv.Style = model.ConversationDiscussion
	}
	if conv.NumExchanges == 0 {
		conv.NumExchanges = 6
	}
	if conv.TurnPolicy == "" {
		conv.TurnPolicy = s.defaultTurnPolicy
	}

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	if err := s.dispatch(conv.ID); err != nil {
		return nil, err
	}

	return &model.ConversationCreateResponse{
		ConversationID: conv.ID,
		Status:         conv.Status,
		CreatedAt:      now,
	}, nil
}

func (s *ConversationService) dispatch(conversationID string) error {
	if s.asynqClient == nil {
		go func() {
			if err := s.coordinator.Run(context.Background(), conversationID); err != nil {
				log.Printf("[%s] inline conversation run failed: %v", conversationID, err)
			}
		}()
		return nil
	}

	task, err := newJobTask(TaskTypeConversation, conversationID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(QueueConversation),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Get returns the conversation record.
func (s *ConversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

// List returns recent conversations.
func (s *ConversationService) List(ctx context.Context, limit int) ([]*model.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListConversations(ctx, limit)
}

// VideoFile returns the local path of the stitched conversation video.
func (s *ConversationService) VideoFile(ctx context.Context, id string) (string, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return "", err
	}
	if conv.FinalVideo == nil {
		return "", fmt.Errorf("%w: conversation has no video yet", store.ErrNotFound)
	}
	return conv.FinalVideo.Path, nil
}
