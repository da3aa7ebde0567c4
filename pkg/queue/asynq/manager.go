package asynq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loanpilot/pkg/config"
	"loanpilot/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	TypeApplicationScore = "application:score"
)

// ScorePayload is the body of an application:score task
type ScorePayload struct {
	ApplicationID string `json:"application_id"`
}

// Manager queue manager
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewManager creates queue manager
func NewManager(cfg *config.Config) (*Manager, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Queue.Concurrency,
			Queues: map[string]int{
				"default": 10,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Second
			},
		},
	)

	mux := asynq.NewServeMux()

	return &Manager{
		client: client,
		server: server,
		mux:    mux,
	}, nil
}

// EnqueueScore enqueues a scoring task for an application
func (m *Manager) EnqueueScore(ctx context.Context, applicationID string) error {
	payload, err := json.Marshal(ScorePayload{ApplicationID: applicationID})
	if err != nil {
		return fmt.Errorf("failed to marshal score payload: %w", err)
	}

	task := asynq.NewTask(TypeApplicationScore, payload)

	opts := []asynq.Option{
		asynq.TaskID(applicationID),
		asynq.Timeout(time.Duration(config.GlobalConfig.Queue.TaskTimeout) * time.Second),
		asynq.MaxRetry(config.GlobalConfig.Queue.MaxRetry),
	}

	info, err := m.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue scoring task: %w", err)
	}

	logger.InfoCtx(ctx, "scoring task enqueued, application_id: %s, queue: %s", applicationID, info.Queue)

	return nil
}

// CancelScore removes a queued scoring task
func (m *Manager) CancelScore(applicationID string) error {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     config.GlobalConfig.Redis.Addr,
		Password: config.GlobalConfig.Redis.Password,
		DB:       config.GlobalConfig.Redis.DB,
	})
	defer inspector.Close()

	if err := inspector.DeleteTask("default", applicationID); err != nil {
		return fmt.Errorf("failed to cancel scoring task: %w", err)
	}

	logger.InfoCtx(context.Background(), "scoring task cancelled, application_id: %s", applicationID)
	return nil
}

// RegisterHandler registers task handler
func (m *Manager) RegisterHandler(pattern string, handler asynq.Handler) {
	m.mux.Handle(pattern, handler)
}

// Start starts queue processor
func (m *Manager) Start() error {
	logger.InfoCtx(context.Background(), "starting queue server")
	return m.server.Start(m.mux)
}

// Stop stops queue processor
func (m *Manager) Stop() {
	logger.InfoCtx(context.Background(), "stopping queue server")
	m.server.Stop()
	m.server.Shutdown()
}

// Close closes client
func (m *Manager) Close() error {
	return m.client.Close()
}

// GetPendingTaskCount retrieves pending task count
func (m *Manager) GetPendingTaskCount() (int, error) {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     config.GlobalConfig.Redis.Addr,
		Password: config.GlobalConfig.Redis.Password,
		DB:       config.GlobalConfig.Redis.DB,
	})
	defer inspector.Close()

	stats, err := inspector.GetQueueInfo("default")
	if err != nil {
		return 0, err
	}

	return stats.Pending, nil
}
