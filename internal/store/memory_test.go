package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/novaavatar/api/internal/model"
)

func TestJobCRUDAndVersioning(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	job := &model.Job{
		ID:        "job-1",
		Status:    model.JobStatusCreated,
		CreatedAt: time.Now(),
	}
	if err := st.CreateJob(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 1 {
		t.Fatalf("expected version 1 after create, got %d", got.Version)
	}

	got.Status = model.JobStatusScriptReady
	if err := st.UpdateJob(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	// A writer holding the old version must be rejected.
	stale := &model.Job{ID: "job-1", Status: model.JobStatusFailed, Version: 1}
	if err := st.UpdateJob(ctx, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale write, got %v", err)
	}

	final, _ := st.GetJob(ctx, "job-1")
	if final.Status != model.JobStatusScriptReady {
		t.Errorf("stale write overwrote state: %s", final.Status)
	}

	if _, err := st.GetJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.UpdateJob(ctx, &model.Job{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

func TestGetJobReturnsCopy(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	job := &model.Job{ID: "job-1", Status: model.JobStatusCreated, Notes: []string{"a"}}
	if err := st.CreateJob(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _ := st.GetJob(ctx, "job-1")
	first.Notes[0] = "mutated"
	first.Status = model.JobStatusFailed

	second, _ := st.GetJob(ctx, "job-1")
	if second.Notes[0] != "a" || second.Status != model.JobStatusCreated {
		t.Error("store returned shared memory")
	}
}

func TestListJobsFilterAndOrder(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	for i, status := range []model.JobStatus{
		model.JobStatusQueuedForReview,
		model.JobStatusCreated,
		model.JobStatusQueuedForReview,
	} {
		job := &model.Job{
			ID:        string(rune('a' + i)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.CreateJob(ctx, job); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	queued, err := st.ListJobs(ctx, model.JobStatusQueuedForReview)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(queued) != 2 {
		t.Fatalf("expected 2 queued jobs, got %d", len(queued))
	}
	if queued[0].ID != "a" || queued[1].ID != "c" {
		t.Errorf("expected oldest first, got %s, %s", queued[0].ID, queued[1].ID)
	}

	all, _ := st.ListJobs(ctx, "")
	if len(all) != 3 {
		t.Errorf("expected 3 jobs without filter, got %d", len(all))
	}
}

func TestConversationCRUD(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	conv := &model.Conversation{
		ID:        "conv-1",
		Topic:     "test topic",
		Status:    model.ConversationStatusCreated,
		CreatedAt: time.Now(),
	}
	if err := st.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Status = model.ConversationStatusCompleted
	if err := st.UpdateConversation(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	final, _ := st.GetConversation(ctx, "conv-1")
	if final.Status != model.ConversationStatusCompleted {
		t.Errorf("update not applied: %s", final.Status)
	}

	if _, err := st.GetConversation(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListConversationsNewestFirstWithLimit(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		conv := &model.Conversation{
			ID:        string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.CreateConversation(ctx, conv); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	out, err := st.ListConversations(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(out))
	}
	if out[0].ID != "c" || out[1].ID != "b" {
		t.Errorf("expected newest first, got %s, %s", out[0].ID, out[1].ID)
	}
}

func TestAvatarCRUD(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	for i, name := range []string{"Maya", "Leo"} {
		a := &model.AvatarProfile{
			ID:        name,
			Name:      name,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := st.CreateAvatar(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := st.GetAvatar(ctx, "Maya")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Maya" {
		t.Errorf("wrong avatar: %s", got.Name)
	}

	all, _ := st.ListAvatars(ctx)
	if len(all) != 2 || all[0].ID != "Maya" || all[1].ID != "Leo" {
		t.Errorf("expected creation order, got %v", all)
	}

	if _, err := st.GetAvatar(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFingerprintSeen(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	seen, err := st.Seen(ctx, "fp-1")
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Error("unmarked fingerprint reported as seen")
	}

	// Checking must not mark.
	seen, _ = st.Seen(ctx, "fp-1")
	if seen {
		t.Error("check alone marked the fingerprint")
	}

	if err := st.MarkSeen(ctx, "fp-1", "fp-2"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	seen, _ = st.Seen(ctx, "fp-1")
	if !seen {
		t.Error("marked fingerprint not reported as seen")
	}
	seen, _ = st.Seen(ctx, "fp-3")
	if seen {
		t.Error("unrelated fingerprint reported as seen")
	}
}

func TestLeaseLifecycle(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	ok, err := st.AcquireLease(ctx, "job:1", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	ok, _ = st.AcquireLease(ctx, "job:1", time.Minute)
	if ok {
		t.Error("expected held lease to block second acquire")
	}

	if err := st.ReleaseLease(ctx, "job:1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, _ = st.AcquireLease(ctx, "job:1", time.Minute)
	if !ok {
		t.Error("expected acquire after release to succeed")
	}
}

func TestLeaseExpires(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	if ok, _ := st.AcquireLease(ctx, "job:1", 10*time.Millisecond); !ok {
		t.Fatal("expected first acquire to succeed")
	}
	time.Sleep(20 * time.Millisecond)
	if ok, _ := st.AcquireLease(ctx, "job:1", time.Minute); !ok {
		t.Error("expected expired lease to be reacquirable")
	}
}
