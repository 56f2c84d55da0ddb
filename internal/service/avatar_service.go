package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/store"
)

// AvatarService manages the avatar profile library used by conversations.
type AvatarService struct {
	store store.AvatarStore
}

func NewAvatarService(st store.AvatarStore) *AvatarService {
	return &AvatarService{store: st}
}

// Create adds a new avatar profile.
func (s *AvatarService) Create(ctx context.Context, req *model.AvatarCreateRequest) (*model.AvatarProfile, error) {
	avatar := &model.AvatarProfile{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Personality: req.Personality,
		Description: req.Description,
		ImagePath:   req.ImagePath,
		VoiceStyle:  req.VoiceStyle,
		CreatedAt:   time.Now(),
	}
	if err := s.store.CreateAvatar(ctx, avatar); err != nil {
		return nil, err
	}
	return avatar, nil
}

// Get returns one avatar profile.
func (s *AvatarService) Get(ctx context.Context, id string) (*model.AvatarProfile, error) {
	return s.store.GetAvatar(ctx, id)
}

// List returns all avatar profiles.
func (s *AvatarService) List(ctx context.Context) ([]*model.AvatarProfile, error) {
	return s.store.ListAvatars(ctx)
}

// SeedDefaults installs a starter set of avatars when the library is empty,
// so conversations work out of the box.
func (s *AvatarService) SeedDefaults(ctx context.Context) error {
	existing, err := s.store.ListAvatars(ctx)
	if err != nil || len(existing) > 0 {
		return err
	}

	defaults := []model.AvatarProfile{
		{Name: "Maya", Personality: "AI researcher, thoughtful and precise", VoiceStyle: "calm"},
		{Name: "Leo", Personality: "Tech entrepreneur, optimistic and energetic", VoiceStyle: "upbeat"},
		{Name: "Prof. Chen", Personality: "Ethics professor, focuses on societal implications", VoiceStyle: "measured"},
	}
	for _, a := range defaults {
		a.ID = uuid.New().String()
		a.CreatedAt = time.Now()
		if err := s.store.CreateAvatar(ctx, &a); err != nil {
			return err
		}
	}
	return nil
}
