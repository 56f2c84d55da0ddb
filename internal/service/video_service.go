package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/novaavatar/api/internal/client"
	"github.com/novaavatar/api/internal/model"
	"github.com/novaavatar/api/internal/pipeline"
	"github.com/novaavatar/api/internal/store"
)

const (
	TaskTypeVideo        = "video:process"
	TaskTypeConversation = "conversation:process"

	// QueueVideo and QueueConversation separate single-job renders from the
	// heavier multi-turn conversation runs.
	QueueVideo        = "video"
	QueueConversation = "conversation"

	signedURLTTL = 15 * time.Minute
)

// VideoService manages the video job lifecycle: submission, review actions
// and retry/cancel. Pipeline execution itself belongs to the orchestrator;
// this service only performs the operator-side transitions.
type VideoService struct {
	store        store.Store
	asynqClient  *asynq.Client // nil in inline mode
	orchestrator *pipeline.Orchestrator
	storage      client.StorageClient // nil when object storage is not configured
	autoApprove  bool
}

func NewVideoService(st store.Store, asynqClient *asynq.Client, orch *pipeline.Orchestrator, storage client.StorageClient, autoApprove bool) *VideoService {
	return &VideoService{
		store:        st,
		asynqClient:  asynqClient,
		orchestrator: orch,
		storage:      storage,
		autoApprove:  autoApprove,
	}
}

// Create accepts a content item and queues the full pipeline for it.
func (s *VideoService) Create(ctx context.Context, req *model.VideoCreateRequest) (*model.VideoCreateResponse, error) {
	now := time.Now()
	content := req.Content

	job := &model.Job{
		ID:             uuid.New().String(),
		Content:        &content,
		Style:          req.Style,
		TargetDuration: req.Duration,
		Status:         model.JobStatusCreated,
		AutoApprove:    req.AutoApprove || s.autoApprove,
		CurrentStep:    "Queued",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if job.Style == "" {
		job.Style = model.StyleProfessional
	}
	if job.TargetDuration == 0 {
		job.TargetDuration = 30
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	if err := s.dispatch(job.ID); err != nil {
		return nil, err
	}

	return &model.VideoCreateResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: now,
	}, nil
}

// BatchCreate queues one job per item. Items that fail to queue are reported
// individually; the rest of the batch still runs.
func (s *VideoService) BatchCreate(ctx context.Context, req *model.BatchVideoCreateRequest) (*model.BatchVideoCreateResponse, error) {
	resp := &model.BatchVideoCreateResponse{}
	for i := range req.Items {
		result, err := s.Create(ctx, &req.Items[i])
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		resp.Jobs = append(resp.Jobs, *result)
	}
	resp.Count = len(resp.Jobs)
	return resp, nil
}

// dispatch hands the job to the work queue, or runs it on a goroutine in
// inline mode. Retries are the operator's decision, so the queue does not
// redeliver failed tasks on its own.
func (s *VideoService) dispatch(jobID string) error {
	if s.asynqClient == nil {
		go func() {
			if err := s.orchestrator.Run(context.Background(), jobID); err != nil {
				log.Printf("[%s] inline pipeline run failed: %v", jobID, err)
			}
		}()
		return nil
	}

	task, err := newJobTask(TaskTypeVideo, jobID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(QueueVideo),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Get returns the job record.
func (s *VideoService) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// List returns jobs, optionally filtered by status, oldest first.
func (s *VideoService) List(ctx context.Context, status model.JobStatus) ([]*model.Job, error) {
	return s.store.ListJobs(ctx, status)
}

// ReviewQueue returns jobs awaiting review, oldest first so reviewers work
// in submission order.
func (s *VideoService) ReviewQueue(ctx context.Context) ([]*model.Job, error) {
	return s.store.ListJobs(ctx, model.JobStatusQueuedForReview)
}

// Approve publishes a reviewed video. When object storage is configured the
// video file is uploaded and its URL recorded on the job.
func (s *VideoService) Approve(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(job.Status, model.JobStatusApproved) {
		return nil, fmt.Errorf("%w: cannot approve job in status %s", pipeline.ErrInvalidTransition, job.Status)
	}

	uploaded := s.storage != nil && job.Video != nil
	if uploaded {
		url, err := s.uploadVideo(ctx, job)
		if err != nil {
			return nil, fmt.Errorf("failed to publish video: %w", err)
		}
		job.StorageURL = url
	}

	now := time.Now()
	job.Status = model.JobStatusApproved
	job.CompletedAt = &now
	job.UpdatedAt = now
	job.CurrentStep = "Approved"
	if err := s.store.UpdateJob(ctx, job); err != nil {
		// The approval was not recorded, so the uploaded object would be an
		// orphan. Remove it before reporting the failure.
		if uploaded {
			if derr := s.storage.Delete(ctx, storageKey(job)); derr != nil {
				log.Printf("[%s] failed to remove orphaned upload: %v", job.ID, derr)
			}
		}
		return nil, err
	}

	// Attach a time-limited download link for the reviewer. Set after the
	// write so the expiring URL never lands in the store.
	if uploaded {
		signed, err := s.storage.GetSignedURL(ctx, storageKey(job), signedURLTTL)
		if err != nil {
			log.Printf("[%s] failed to sign download url: %v", job.ID, err)
		} else {
			job.DownloadURL = signed
		}
	}

	log.Printf("[%s] approved", job.ID)
	return job, nil
}

func (s *VideoService) uploadVideo(ctx context.Context, job *model.Job) (string, error) {
	f, err := os.Open(job.Video.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer f.Close()

	return s.storage.Upload(ctx, storageKey(job), f, "video/mp4")
}

func storageKey(job *model.Job) string {
	return fmt.Sprintf("videos/%s/%s", job.ID, filepath.Base(job.Video.Path))
}

// Reject marks a reviewed video as rejected. Artifacts are retained so the
// reviewer's decision can be audited and the job retried later.
func (s *VideoService) Reject(ctx context.Context, jobID, reason string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(job.Status, model.JobStatusRejected) {
		return nil, fmt.Errorf("%w: cannot reject job in status %s", pipeline.ErrInvalidTransition, job.Status)
	}

	now := time.Now()
	job.Status = model.JobStatusRejected
	job.RejectReason = reason
	job.CompletedAt = &now
	job.UpdatedAt = now
	job.CurrentStep = "Rejected"
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	log.Printf("[%s] rejected: %s", job.ID, reason)
	return job, nil
}

// Retry requeues a failed job. Only the failed stage and later stages run
// again; finished artifacts are kept.
func (s *VideoService) Retry(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(job.Status, model.JobStatusRetrying) {
		return nil, fmt.Errorf("%w: cannot retry job in status %s", pipeline.ErrInvalidTransition, job.Status)
	}

	job.Status = model.JobStatusRetrying
	job.RetryCount++
	job.UpdatedAt = time.Now()
	job.CurrentStep = "Retry queued"
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}

	if err := s.dispatch(job.ID); err != nil {
		return nil, err
	}
	log.Printf("[%s] retry %d queued for stage %s", job.ID, job.RetryCount, job.FailedStage)
	return job, nil
}

// Cancel stops a job. An in-flight stage keeps running until its next write,
// which loses the version check and is discarded; the stored record flips to
// failed immediately.
func (s *VideoService) Cancel(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() || job.Status == model.JobStatusFailed {
		return nil, fmt.Errorf("%w: cannot cancel job in status %s", pipeline.ErrInvalidTransition, job.Status)
	}

	msg := "cancelled by operator"
	job.Status = model.JobStatusFailed
	job.Error = &msg
	job.UpdatedAt = time.Now()
	job.CurrentStep = "Cancelled"
	if err := s.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	log.Printf("[%s] cancelled", job.ID)
	return job, nil
}

// VideoFile returns the local path of the finished video for download.
func (s *VideoService) VideoFile(ctx context.Context, jobID string) (string, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.Video == nil {
		return "", fmt.Errorf("%w: job has no video yet", store.ErrNotFound)
	}
	return job.Video.Path, nil
}

// newJobTask wraps a job or conversation id as a queue task payload.
func newJobTask(taskType, id string) (*asynq.Task, error) {
	payload, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, payload), nil
}
