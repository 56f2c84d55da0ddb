package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/novaavatar/api/internal/model"
)

// MemoryStore is the in-process Store implementation, used in inline mode
// and tests. Records are deep-copied through JSON on the way in and out so
// callers never share memory with the store.
type MemoryStore struct {
	mu            sync.Mutex
	jobs          map[string]*model.Job
	conversations map[string]*model.Conversation
	avatars       map[string]*model.AvatarProfile
	fingerprints  map[string]bool
	leases        map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:          make(map[string]*model.Job),
		conversations: make(map[string]*model.Conversation),
		avatars:       make(map[string]*model.AvatarProfile),
		fingerprints:  make(map[string]bool),
		leases:        make(map[string]time.Time),
	}
}

func cloneJob(j *model.Job) *model.Job {
	data, _ := json.Marshal(j)
	var out model.Job
	_ = json.Unmarshal(data, &out)
	return &out
}

func cloneConversation(c *model.Conversation) *model.Conversation {
	data, _ := json.Marshal(c)
	var out model.Conversation
	_ = json.Unmarshal(data, &out)
	return &out
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Version = 1
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != job.Version {
		return ErrConflict
	}
	job.Version++
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) ListJobs(ctx context.Context, status model.JobStatus) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Job
	for _, job := range s.jobs {
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, cloneJob(job))
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateConversation(ctx context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = cloneConversation(c)
	return nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(c), nil
}

func (s *MemoryStore) UpdateConversation(ctx context.Context, c *model.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[c.ID]; !ok {
		return ErrNotFound
	}
	s.conversations[c.ID] = cloneConversation(c)
	return nil
}

func (s *MemoryStore) ListConversations(ctx context.Context, limit int) ([]*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Conversation
	for _, c := range s.conversations {
		out = append(out, cloneConversation(c))
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CreateAvatar(ctx context.Context, a *model.AvatarProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *a
	s.avatars[a.ID] = &dup
	return nil
}

func (s *MemoryStore) GetAvatar(ctx context.Context, id string) (*model.AvatarProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.avatars[id]
	if !ok {
		return nil, ErrNotFound
	}
	dup := *a
	return &dup, nil
}

func (s *MemoryStore) ListAvatars(ctx context.Context) ([]*model.AvatarProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.AvatarProfile
	for _, a := range s.avatars {
		dup := *a
		out = append(out, &dup)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Seen(ctx context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fingerprints[fingerprint], nil
}

func (s *MemoryStore) MarkSeen(ctx context.Context, fingerprints ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fp := range fingerprints {
		s.fingerprints[fp] = true
	}
	return nil
}

func (s *MemoryStore) AcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if expiry, held := s.leases[key]; held && time.Now().Before(expiry) {
		return false, nil
	}
	s.leases[key] = time.Now().Add(ttl)
	return true, nil
}

func (s *MemoryStore) ReleaseLease(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leases, key)
	return nil
}
