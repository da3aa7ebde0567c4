package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"loanpilot/internal/jobs"
	"loanpilot/internal/model"
	"loanpilot/internal/service"
	"loanpilot/pkg/config"
	"loanpilot/pkg/logger"
	asynqqueue "loanpilot/pkg/queue/asynq"
	"loanpilot/pkg/store/mysql"
	redisstore "loanpilot/pkg/store/redis"
)

func (app *Application) initJobs() error {
	manager := jobs.NewManager(app.ctx)

	// Create distributed locks to prevent multiple replicas from executing background tasks simultaneously
	// If Redis is unavailable, locks will automatically downgrade to single-instance mode
	var redisClient *redis.Client
	if app.redisClient != nil {
		redisClient = app.redisClient.GetClient()
	}

	staleReaperLock := redisstore.NewRedisDistributedLock(redisClient, "jobs:stale-application-lock")
	manager.Register(newStaleApplicationReaperJob(time.Minute, app.mysqlRepo.Application, app.queueManager, staleReaperLock))

	// Release status sync only runs when release management is enabled
	if app.releaseService != nil {
		statusInterval := time.Duration(app.config.Deployment.StatusInterval) * time.Second
		if statusInterval <= 0 {
			statusInterval = 15 * time.Second
		}

		statusSyncLock := redisstore.NewRedisDistributedLock(redisClient, "jobs:release-status-lock")
		manager.Register(newReleaseStatusSyncJob(statusInterval, app.releaseService, statusSyncLock))
	}

	app.jobsManager = manager
	return nil
}

// releaseStatusSyncJob reconciles persisted release statuses with the live
// deployment state.
type releaseStatusSyncJob struct {
	interval        time.Duration
	releaseService  *service.ReleaseService
	distributedLock redisstore.DistributedLock
}

func newReleaseStatusSyncJob(interval time.Duration, svc *service.ReleaseService, lock redisstore.DistributedLock) jobs.Job {
	return &releaseStatusSyncJob{
		interval:        interval,
		releaseService:  svc,
		distributedLock: lock,
	}
}

func (j *releaseStatusSyncJob) Name() string {
	return "release-status-sync"
}

func (j *releaseStatusSyncJob) Interval() time.Duration {
	return j.interval
}

func (j *releaseStatusSyncJob) Run(ctx context.Context) error {
	if j.releaseService == nil {
		return fmt.Errorf("release service not configured")
	}

	// Try to acquire distributed lock
	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running release status sync, skipping this cycle")
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	logger.DebugCtx(ctx, "running release status sync job")
	return j.releaseService.SyncStatus(ctx)
}

// staleApplicationStore is the slice of the application repository the
// reaper needs, kept narrow so the job can be tested without a database.
type staleApplicationStore interface {
	ListStale(ctx context.Context, status string, age time.Duration) ([]*mysql.Application, error)
	MarkFailed(ctx context.Context, applicationID, message string) error
}

// scoreCanceler removes queued scoring tasks.
type scoreCanceler interface {
	CancelScore(applicationID string) error
}

// staleApplicationReaperJob fails applications stuck in SCORING, for example
// after a worker crash between picking up a task and writing the result.
type staleApplicationReaperJob struct {
	interval        time.Duration
	applicationRepo staleApplicationStore
	queue           scoreCanceler
	distributedLock redisstore.DistributedLock
}

func newStaleApplicationReaperJob(interval time.Duration, repo *mysql.ApplicationRepository, queueMgr *asynqqueue.Manager, lock redisstore.DistributedLock) jobs.Job {
	j := &staleApplicationReaperJob{
		interval:        interval,
		applicationRepo: repo,
		distributedLock: lock,
	}
	if queueMgr != nil {
		j.queue = queueMgr
	}
	return j
}

func (j *staleApplicationReaperJob) Name() string {
	return "stale-application-reaper"
}

func (j *staleApplicationReaperJob) Interval() time.Duration {
	return j.interval
}

func (j *staleApplicationReaperJob) Run(ctx context.Context) error {
	if j.applicationRepo == nil {
		return fmt.Errorf("application repository not configured")
	}

	// Try to acquire distributed lock
	if j.distributedLock != nil {
		acquired, err := j.distributedLock.TryLock(ctx)
		if err != nil || !acquired {
			logger.DebugCtx(ctx, "another instance is running the stale application reaper, skipping this cycle")
			return nil
		}
		defer j.distributedLock.Unlock(ctx)
	}

	// An application is stale once all queue retries must have run out.
	timeout := time.Duration(config.GlobalConfig.Queue.TaskTimeout) * time.Second
	staleAfter := timeout * time.Duration(config.GlobalConfig.Queue.MaxRetry+2)
	if staleAfter < 5*time.Minute {
		staleAfter = 5 * time.Minute
	}

	rows, err := j.applicationRepo.ListStale(ctx, string(model.ApplicationStatusScoring), staleAfter)
	if err != nil {
		return err
	}

	for _, row := range rows {
		// Drop the queued task first so a late retry cannot flip the
		// application back to SCORING after it is failed.
		if j.queue != nil {
			if err := j.queue.CancelScore(row.ApplicationID); err != nil {
				// Usually the task was already consumed and no longer exists.
				logger.DebugCtx(ctx, "no queued task to cancel for application %s: %v", row.ApplicationID, err)
			}
		}

		if err := j.applicationRepo.MarkFailed(ctx, row.ApplicationID, "scoring timed out"); err != nil {
			logger.ErrorCtx(ctx, "failed to reap stale application %s: %v", row.ApplicationID, err)
			continue
		}
		logger.WarnCtx(ctx, "stale application failed, application_id: %s", row.ApplicationID)
	}
	return nil
}
