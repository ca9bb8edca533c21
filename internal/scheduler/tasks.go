package scheduler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TaskLifecycleBatchRun        = "lifecycle.batch.run"
	TaskLifecycleContentGenerate = "lifecycle.content.generate"
)

type LifecycleBatchRunPayload struct {
	Manual      bool      `json:"manual"`
	RequestedAt time.Time `json:"requestedAt"`
}

func NewLifecycleBatchRunTask(payload LifecycleBatchRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLifecycleBatchRun, data), nil
}

func ParseLifecycleBatchRunPayload(task *asynq.Task) (LifecycleBatchRunPayload, error) {
	var payload LifecycleBatchRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LifecycleBatchRunPayload{}, err
	}
	return payload, nil
}

type LifecycleContentGeneratePayload struct {
	ClientID    uuid.UUID `json:"clientId"`
	ClientName  string    `json:"clientName"`
	ServiceType string    `json:"serviceType"`
	Kind        string    `json:"kind"`
	RequestedAt time.Time `json:"requestedAt"`
}

func NewLifecycleContentGenerateTask(payload LifecycleContentGeneratePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLifecycleContentGenerate, data), nil
}

func ParseLifecycleContentGeneratePayload(task *asynq.Task) (LifecycleContentGeneratePayload, error) {
	var payload LifecycleContentGeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LifecycleContentGeneratePayload{}, err
	}
	return payload, nil
}
