package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loanpilot/internal/model"
	"loanpilot/pkg/interfaces"
	"loanpilot/pkg/logger"
	asynqqueue "loanpilot/pkg/queue/asynq"
	"loanpilot/pkg/store/mysql"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// applicationStore is the slice of mysql.ApplicationRepository the service
// needs. Kept as an interface so the scoring handler can be tested without
// a database.
type applicationStore interface {
	Create(ctx context.Context, app *mysql.Application) error
	Get(ctx context.Context, applicationID string) (*mysql.Application, error)
	List(ctx context.Context, status string, limit int) ([]*mysql.Application, error)
	UpdateStatus(ctx context.Context, applicationID, status string) error
	MarkScored(ctx context.Context, applicationID string, amount float64) error
	MarkFailed(ctx context.Context, applicationID, message string) error
}

// scoreQueue enqueues scoring work.
type scoreQueue interface {
	EnqueueScore(ctx context.Context, applicationID string) error
}

// ApplicationService Application service
type ApplicationService struct {
	applicationRepo applicationStore
	queue           scoreQueue
	scorer          interfaces.Scorer
}

// NewApplicationService creates a new application service
func NewApplicationService(applicationRepo *mysql.ApplicationRepository, queueMgr *asynqqueue.Manager, scorer interfaces.Scorer) *ApplicationService {
	return &ApplicationService{
		applicationRepo: applicationRepo,
		queue:           queueMgr,
		scorer:          scorer,
	}
}

// Submit accepts an application and queues it for scoring
func (s *ApplicationService) Submit(ctx context.Context, req *model.SubmitRequest) (*model.SubmitResponse, error) {
	applicationID := uuid.New().String()

	app := &model.Application{
		ID:        applicationID,
		Profile:   req.Profile,
		Status:    model.ApplicationStatusReceived,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.applicationRepo.Create(ctx, mysql.FromApplicationDomain(app)); err != nil {
		return nil, fmt.Errorf("failed to save application: %w", err)
	}

	if err := s.queue.EnqueueScore(ctx, applicationID); err != nil {
		if markErr := s.applicationRepo.MarkFailed(ctx, applicationID, "failed to queue for scoring"); markErr != nil {
			logger.ErrorCtx(ctx, "failed to mark application failed: %v", markErr)
		}
		return nil, fmt.Errorf("failed to queue application: %w", err)
	}

	logger.InfoCtx(ctx, "application submitted, application_id: %s", applicationID)

	return &model.SubmitResponse{
		ID:     applicationID,
		Status: model.ApplicationStatusReceived,
	}, nil
}

// SubmitSync submits an application and waits for the score (with timeout)
func (s *ApplicationService) SubmitSync(ctx context.Context, req *model.SubmitRequest, timeout time.Duration) (*model.StatusResponse, error) {
	resp, err := s.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutTimer := time.NewTimer(timeout)
	defer timeoutTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutTimer.C:
			return nil, fmt.Errorf("scoring timeout")
		case <-ticker.C:
			row, err := s.applicationRepo.Get(ctx, resp.ID)
			if err != nil || row == nil {
				continue
			}

			app := mysql.ToApplicationDomain(row)
			if app.Status == model.ApplicationStatusScored || app.Status == model.ApplicationStatusFailed {
				return toStatusResponse(app), nil
			}
		}
	}
}

// GetStatus gets application status. Returns nil when the application does
// not exist.
func (s *ApplicationService) GetStatus(ctx context.Context, applicationID string) (*model.StatusResponse, error) {
	row, err := s.applicationRepo.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return toStatusResponse(mysql.ToApplicationDomain(row)), nil
}

// List retrieves recent applications, optionally filtered by status
func (s *ApplicationService) List(ctx context.Context, status string, limit int) ([]*model.StatusResponse, error) {
	if status != "" && !model.ApplicationStatus(status).Valid() {
		return nil, fmt.Errorf("invalid status filter: %s", status)
	}

	rows, err := s.applicationRepo.List(ctx, status, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*model.StatusResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, toStatusResponse(mysql.ToApplicationDomain(row)))
	}
	return responses, nil
}

// ScoreSync scores a profile directly without persisting an application
func (s *ApplicationService) ScoreSync(ctx context.Context, req *model.ScoreRequest) (*model.ScoreResponse, error) {
	amount, cached, err := s.scorer.Score(ctx, &req.Profile)
	if err != nil {
		return nil, err
	}
	return &model.ScoreResponse{
		SanctionAmount: amount,
		Cached:         cached,
	}, nil
}

// HandleScoreTask processes a queued scoring task. Returning an error makes
// the queue retry the task.
func (s *ApplicationService) HandleScoreTask(ctx context.Context, t *asynq.Task) error {
	var payload asynqqueue.ScorePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// A malformed payload will never succeed, drop it.
		logger.ErrorCtx(ctx, "invalid score task payload: %v", err)
		return nil
	}

	row, err := s.applicationRepo.Get(ctx, payload.ApplicationID)
	if err != nil {
		return fmt.Errorf("failed to load application %s: %w", payload.ApplicationID, err)
	}
	if row == nil {
		logger.WarnCtx(ctx, "score task for unknown application, application_id: %s", payload.ApplicationID)
		return nil
	}
	if row.Status == string(model.ApplicationStatusScored) {
		return nil
	}

	if err := s.applicationRepo.UpdateStatus(ctx, payload.ApplicationID, string(model.ApplicationStatusScoring)); err != nil {
		return fmt.Errorf("failed to mark application scoring: %w", err)
	}

	app := mysql.ToApplicationDomain(row)
	amount, cached, err := s.scorer.Score(ctx, &app.Profile)
	if err != nil {
		if markErr := s.applicationRepo.MarkFailed(ctx, payload.ApplicationID, err.Error()); markErr != nil {
			logger.ErrorCtx(ctx, "failed to mark application failed: %v", markErr)
		}
		return fmt.Errorf("failed to score application %s: %w", payload.ApplicationID, err)
	}

	if err := s.applicationRepo.MarkScored(ctx, payload.ApplicationID, amount); err != nil {
		return fmt.Errorf("failed to persist score for application %s: %w", payload.ApplicationID, err)
	}

	logger.InfoCtx(ctx, "application scored, application_id: %s, amount: %.2f, cached: %v",
		payload.ApplicationID, amount, cached)
	return nil
}

// toStatusResponse converts an application to its API status representation
func toStatusResponse(app *model.Application) *model.StatusResponse {
	return &model.StatusResponse{
		ID:             app.ID,
		Status:         app.Status,
		SanctionAmount: app.SanctionAmount,
		Error:          app.Error,
		CreatedAt:      app.CreatedAt,
		ScoredAt:       app.ScoredAt,
	}
}
