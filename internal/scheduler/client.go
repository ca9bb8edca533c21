package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"nutricoach_backend/internal/contentgen"
	"nutricoach_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
}

// BatchRunEnqueuer schedules lifecycle batch runs onto the task queue.
type BatchRunEnqueuer interface {
	EnqueueBatchRun(ctx context.Context, payload LifecycleBatchRunPayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueBatchRun queues one batch evaluation. A run already queued within
// the last interval is deduplicated by task ID, so overlapping schedulers
// never double-run the batch.
func (c *Client) EnqueueBatchRun(ctx context.Context, payload LifecycleBatchRunPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLifecycleBatchRunTask(payload)
	if err != nil {
		return err
	}

	taskID := fmt.Sprintf("%s:%s", TaskLifecycleBatchRun, payload.RequestedAt.UTC().Format("2006-01-02T15"))
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(taskID),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueContentDraft queues one draft generation for the worker. Repeated
// triggers for the same client and kind on the same day collapse into one
// task, matching the idempotent behavior of the lifecycle side effects.
func (c *Client) EnqueueContentDraft(ctx context.Context, req contentgen.Request) error {
	if c == nil || c.client == nil {
		return nil
	}

	payload := LifecycleContentGeneratePayload{
		ClientID:    req.ClientID,
		ClientName:  req.ClientName,
		ServiceType: string(req.ServiceType),
		Kind:        string(req.Kind),
		RequestedAt: time.Now(),
	}

	task, err := NewLifecycleContentGenerateTask(payload)
	if err != nil {
		return err
	}

	taskID := fmt.Sprintf("%s:%s:%s:%s",
		TaskLifecycleContentGenerate, req.ClientID, req.Kind, payload.RequestedAt.UTC().Format("2006-01-02"))
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(taskID),
		asynq.Retention(24*time.Hour),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
