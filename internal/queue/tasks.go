package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"tender-response-platform/internal/logger"
	"tender-response-platform/services"
)

const TaskProcessTender = "tender:process"

// processLockTTL bounds how long a tender can hold its processing lock.
// Slightly above the pipeline deadline so a crashed worker's lock expires.
const processLockTTL = 20 * time.Minute

type TenderProcessPayload struct {
	TenderID string `json:"tender_id"`
}

// NewTenderProcessTask builds the asynq task for one pipeline run.
func NewTenderProcessTask(tenderID string) (*asynq.Task, error) {
	payload, err := json.Marshal(TenderProcessPayload{TenderID: tenderID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessTender,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(20*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// Enqueuer wraps the asynq client behind the services.ProcessEnqueuer
// contract.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueueTenderProcess(ctx context.Context, tenderID string) (string, error) {
	task, err := NewTenderProcessTask(tenderID)
	if err != nil {
		return "", err
	}

	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue failed: %w", err)
	}
	return info.ID, nil
}

// TaskProcessor executes queued pipeline runs. A redis lock per tender
// prevents two workers from processing the same upload concurrently.
type TaskProcessor struct {
	pipeline *services.Pipeline
	rdb      *redis.Client
}

func NewTaskProcessor(pipeline *services.Pipeline, rdb *redis.Client) *TaskProcessor {
	return &TaskProcessor{
		pipeline: pipeline,
		rdb:      rdb,
	}
}

func (p *TaskProcessor) ProcessTender(ctx context.Context, t *asynq.Task) error {
	var payload TenderProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	lockKey := "lock:tender:" + payload.TenderID
	acquired, err := p.rdb.SetNX(ctx, lockKey, "1", processLockTTL).Result()
	if err != nil {
		logger.Warn("processing lock check failed, continuing unlocked",
			"tender_id", payload.TenderID, "error", err)
	} else if !acquired {
		logger.Info("tender already being processed, skipping",
			"tender_id", payload.TenderID)
		return nil
	}
	defer p.rdb.Del(context.WithoutCancel(ctx), lockKey)

	logger.Info("processing tender", "tender_id", payload.TenderID, "task_id", t.ResultWriter().TaskID())

	result := p.pipeline.Run(ctx, payload.TenderID, "")
	if !result.Success {
		if strings.Contains(result.Message, services.ErrTenderNotFound.Error()) {
			logger.Error("tender record missing, dropping task", "tender_id", payload.TenderID)
			return fmt.Errorf("tender not found: %w", asynq.SkipRetry)
		}
		return errors.New(result.Message)
	}

	if body, err := json.Marshal(result); err == nil {
		if _, werr := t.ResultWriter().Write(body); werr != nil {
			logger.Debug("failed to record task result", "tender_id", payload.TenderID, "error", werr)
		}
	}
	return nil
}
