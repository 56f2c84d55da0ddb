package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/novaavatar/api/internal/model"
)

const (
	jobKeyPrefix          = "job:"
	jobIndexKey           = "jobs:index"
	conversationKeyPrefix = "conversation:"
	conversationIndexKey  = "conversations:index"
	avatarKeyPrefix       = "avatar:"
	avatarIndexKey        = "avatars:index"
	fingerprintSetKey     = "content:fingerprints"
	leaseKeyPrefix        = "lease:"
)

// RedisStore is the redis-backed Store implementation for multi-worker
// deployments. Records are stored as JSON blobs with an id index set per
// record type; leases are SETNX keys with a TTL.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a store over an existing redis client.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (s *RedisStore) CreateJob(ctx context.Context, job *model.Job) error {
	job.Version = 1
	if err := s.setJSON(ctx, jobKeyPrefix+job.ID, job); err != nil {
		return err
	}
	return s.redis.SAdd(ctx, jobIndexKey, job.ID).Err()
}

func (s *RedisStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := s.getJSON(ctx, jobKeyPrefix+id, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob performs an optimistic check-and-set inside a WATCH transaction
// so a stale writer fails with ErrConflict rather than overwriting.
func (s *RedisStore) UpdateJob(ctx context.Context, job *model.Job) error {
	key := jobKeyPrefix + job.ID
	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var current model.Job
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("decode job %s: %w", job.ID, err)
		}
		if current.Version != job.Version {
			return ErrConflict
		}
		job.Version++
		payload, err := json.Marshal(job)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}
	err := s.redis.Watch(ctx, txn, key)
	if err == redis.TxFailedErr {
		return ErrConflict
	}
	return err
}

func (s *RedisStore) ListJobs(ctx context.Context, status model.JobStatus) ([]*model.Job, error) {
	ids, err := s.redis.SMembers(ctx, jobIndexKey).Result()
	if err != nil {
		return nil, err
	}
	var out []*model.Job
	for _, id := range ids {
		job, err := s.GetJob(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

func (s *RedisStore) CreateConversation(ctx context.Context, c *model.Conversation) error {
	if err := s.setJSON(ctx, conversationKeyPrefix+c.ID, c); err != nil {
		return err
	}
	return s.redis.SAdd(ctx, conversationIndexKey, c.ID).Err()
}

func (s *RedisStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	if err := s.getJSON(ctx, conversationKeyPrefix+id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *RedisStore) UpdateConversation(ctx context.Context, c *model.Conversation) error {
	exists, err := s.redis.Exists(ctx, conversationKeyPrefix+c.ID).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.setJSON(ctx, conversationKeyPrefix+c.ID, c)
}

func (s *RedisStore) ListConversations(ctx context.Context, limit int) ([]*model.Conversation, error) {
	ids, err := s.redis.SMembers(ctx, conversationIndexKey).Result()
	if err != nil {
		return nil, err
	}
	var out []*model.Conversation
	for _, id := range ids {
		c, err := s.GetConversation(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *RedisStore) CreateAvatar(ctx context.Context, a *model.AvatarProfile) error {
	if err := s.setJSON(ctx, avatarKeyPrefix+a.ID, a); err != nil {
		return err
	}
	return s.redis.SAdd(ctx, avatarIndexKey, a.ID).Err()
}

func (s *RedisStore) GetAvatar(ctx context.Context, id string) (*model.AvatarProfile, error) {
	var a model.AvatarProfile
	if err := s.getJSON(ctx, avatarKeyPrefix+id, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *RedisStore) ListAvatars(ctx context.Context) ([]*model.AvatarProfile, error) {
	ids, err := s.redis.SMembers(ctx, avatarIndexKey).Result()
	if err != nil {
		return nil, err
	}
	var out []*model.AvatarProfile
	for _, id := range ids {
		a, err := s.GetAvatar(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

func (s *RedisStore) Seen(ctx context.Context, fingerprint string) (bool, error) {
	return s.redis.SIsMember(ctx, fingerprintSetKey, fingerprint).Result()
}

func (s *RedisStore) MarkSeen(ctx context.Context, fingerprints ...string) error {
	if len(fingerprints) == 0 {
		return nil
	}
	members := make([]interface{}, len(fingerprints))
	for i, fp := range fingerprints {
		members[i] = fp
	}
	return s.redis.SAdd(ctx, fingerprintSetKey, members...).Err()
}

func (s *RedisStore) AcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.redis.SetNX(ctx, leaseKeyPrefix+key, "1", ttl).Result()
}

func (s *RedisStore) ReleaseLease(ctx context.Context, key string) error {
	return s.redis.Del(ctx, leaseKeyPrefix+key).Err()
}

func (s *RedisStore) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, 0).Err()
}

func (s *RedisStore) getJSON(ctx context.Context, key string, v interface{}) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
