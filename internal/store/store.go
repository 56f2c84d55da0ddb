package store

import (
	"context"
	"errors"
	"time"

	"github.com/novaavatar/api/internal/model"
)

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict means an update lost an optimistic version check.
	ErrConflict = errors.New("version conflict")
)

// JobStore persists video jobs. Update performs an optimistic check against
// the stored Version and bumps it on success, so a stale writer observes
// ErrConflict instead of clobbering a newer record.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, id string) (*model.Job, error)
	UpdateJob(ctx context.Context, job *model.Job) error
	// ListJobs returns all jobs, optionally filtered by status, ordered
	// oldest-created first.
	ListJobs(ctx context.Context, status model.JobStatus) ([]*model.Job, error)
}

// ConversationStore persists conversations.
type ConversationStore interface {
	CreateConversation(ctx context.Context, c *model.Conversation) error
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	UpdateConversation(ctx context.Context, c *model.Conversation) error
	ListConversations(ctx context.Context, limit int) ([]*model.Conversation, error)
}

// AvatarStore persists avatar profiles.
type AvatarStore interface {
	CreateAvatar(ctx context.Context, a *model.AvatarProfile) error
	GetAvatar(ctx context.Context, id string) (*model.AvatarProfile, error)
	ListAvatars(ctx context.Context) ([]*model.AvatarProfile, error)
}

// FingerprintStore remembers which content fingerprints have been offered
// to callers, for scrape deduplication. Checking and marking are separate
// so items dropped before delivery are not recorded.
type FingerprintStore interface {
	// Seen reports whether a fingerprint was marked by an earlier scrape.
	Seen(ctx context.Context, fingerprint string) (bool, error)
	// MarkSeen records fingerprints so later scrapes skip them.
	MarkSeen(ctx context.Context, fingerprints ...string) error
}

// LeaseStore hands out per-key mutual-exclusion leases. A lease guarantees
// at-most-one concurrent pipeline run per job or conversation id. The TTL
// bounds how long a crashed worker can block progress.
type LeaseStore interface {
	AcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, key string) error
}

// Store bundles every persistence concern the orchestrator depends on.
// In-memory and redis implementations are interchangeable.
type Store interface {
	JobStore
	ConversationStore
	AvatarStore
	FingerprintStore
	LeaseStore
}
