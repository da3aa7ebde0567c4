package service

import (
	"context"
	"fmt"
	"time"

	"loanpilot/internal/model"
	"loanpilot/pkg/config"
	"loanpilot/pkg/interfaces"
	"loanpilot/pkg/logger"
	"loanpilot/pkg/store/mysql"

	"github.com/google/uuid"
)

// releaseStore is the slice of mysql.ReleaseRepository the release service
// needs. Kept as an interface so tests can run without a database.
type releaseStore interface {
	Create(ctx context.Context, release *mysql.Release) error
	Get(ctx context.Context, releaseID string) (*mysql.Release, error)
	Latest(ctx context.Context, name string) (*mysql.Release, error)
	List(ctx context.Context, name string, limit int) ([]*mysql.Release, error)
	UpdateStatus(ctx context.Context, releaseID, status, message string) error
	UpdateReplicas(ctx context.Context, releaseID string, replicas int32) error
	ListByStatus(ctx context.Context, statuses ...string) ([]*mysql.Release, error)
}

// ReleaseService manages rollouts of the scoring app deployment.
type ReleaseService struct {
	releaseRepo releaseStore
	provider    interfaces.DeploymentProvider
}

// NewReleaseService creates a new release service
func NewReleaseService(releaseRepo *mysql.ReleaseRepository, provider interfaces.DeploymentProvider) *ReleaseService {
	return &ReleaseService{
		releaseRepo: releaseRepo,
		provider:    provider,
	}
}

// Rollout creates a release and applies its deployment to the cluster.
// Unset request fields fall back to the configured deployment defaults.
func (s *ReleaseService) Rollout(ctx context.Context, req *model.RolloutRequest) (*model.RolloutResponse, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("deployment provider not configured")
	}

	release := s.buildRelease(req)

	if err := s.releaseRepo.Create(ctx, mysql.FromReleaseDomain(release)); err != nil {
		return nil, fmt.Errorf("failed to save release: %w", err)
	}

	if err := s.provider.Apply(ctx, release); err != nil {
		if updErr := s.releaseRepo.UpdateStatus(ctx, release.ID, string(model.ReleaseStatusApplyFail), err.Error()); updErr != nil {
			logger.ErrorCtx(ctx, "failed to mark release apply failure: %v", updErr)
		}
		return nil, fmt.Errorf("failed to apply release: %w", err)
	}

	if err := s.releaseRepo.UpdateStatus(ctx, release.ID, string(model.ReleaseStatusRolling), ""); err != nil {
		logger.ErrorCtx(ctx, "failed to mark release rolling: %v", err)
	}

	logger.InfoCtx(ctx, "release applied, release_id: %s, image: %s, replicas: %d",
		release.ID, release.Image, release.Replicas)

	return &model.RolloutResponse{
		ID:       release.ID,
		Name:     release.Name,
		Image:    release.Image,
		Replicas: release.Replicas,
		Status:   model.ReleaseStatusRolling,
	}, nil
}

// buildRelease merges a rollout request with the configured defaults
func (s *ReleaseService) buildRelease(req *model.RolloutRequest) *model.Release {
	def := config.GlobalConfig.Deployment

	release := &model.Release{
		ID:        uuid.New().String(),
		Name:      def.Name,
		Image:     def.Image,
		Replicas:  def.Replicas,
		Status:    model.ReleaseStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if req != nil {
		if req.Image != "" {
			release.Image = req.Image
		}
		if req.Replicas != nil {
			release.Replicas = *req.Replicas
		}
	}
	return release
}

// Get retrieves a release by ID. Returns nil when it does not exist.
func (s *ReleaseService) Get(ctx context.Context, releaseID string) (*model.Release, error) {
	row, err := s.releaseRepo.Get(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return mysql.ToReleaseDomain(row), nil
}

// List retrieves release history for the configured deployment, newest first
func (s *ReleaseService) List(ctx context.Context, limit int) ([]*model.Release, error) {
	rows, err := s.releaseRepo.List(ctx, config.GlobalConfig.Deployment.Name, limit)
	if err != nil {
		return nil, err
	}
	releases := make([]*model.Release, 0, len(rows))
	for _, row := range rows {
		releases = append(releases, mysql.ToReleaseDomain(row))
	}
	return releases, nil
}

// Status retrieves the live deployment status. Returns nil when no
// deployment exists in the cluster.
func (s *ReleaseService) Status(ctx context.Context) (*model.DeploymentStatus, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("deployment provider not configured")
	}
	return s.provider.Status(ctx, config.GlobalConfig.Deployment.Name)
}

// Scale changes the replica count of the running deployment and records the
// new desired count on the latest release.
func (s *ReleaseService) Scale(ctx context.Context, replicas int32) error {
	if s.provider == nil {
		return fmt.Errorf("deployment provider not configured")
	}
	if replicas <= 0 {
		return fmt.Errorf("replicas must be positive, got %d", replicas)
	}

	name := config.GlobalConfig.Deployment.Name
	if err := s.provider.Scale(ctx, name, replicas); err != nil {
		return fmt.Errorf("failed to scale deployment: %w", err)
	}

	latest, err := s.releaseRepo.Latest(ctx, name)
	if err != nil {
		logger.WarnCtx(ctx, "failed to load latest release after scale: %v", err)
		return nil
	}
	if latest != nil {
		if err := s.releaseRepo.UpdateReplicas(ctx, latest.ReleaseID, replicas); err != nil {
			logger.WarnCtx(ctx, "failed to record new replica count: %v", err)
		}
		if err := s.releaseRepo.UpdateStatus(ctx, latest.ReleaseID, string(model.ReleaseStatusRolling), ""); err != nil {
			logger.WarnCtx(ctx, "failed to mark release rolling after scale: %v", err)
		}
	}

	logger.InfoCtx(ctx, "deployment scaled, name: %s, replicas: %d", name, replicas)
	return nil
}

// Delete removes the deployment from the cluster and marks the latest
// release deleted.
func (s *ReleaseService) Delete(ctx context.Context) error {
	if s.provider == nil {
		return fmt.Errorf("deployment provider not configured")
	}

	name := config.GlobalConfig.Deployment.Name
	if err := s.provider.Delete(ctx, name); err != nil {
		return fmt.Errorf("failed to delete deployment: %w", err)
	}

	latest, err := s.releaseRepo.Latest(ctx, name)
	if err != nil {
		logger.WarnCtx(ctx, "failed to load latest release after delete: %v", err)
		return nil
	}
	if latest != nil && latest.Status != string(model.ReleaseStatusDeleted) {
		if err := s.releaseRepo.UpdateStatus(ctx, latest.ReleaseID, string(model.ReleaseStatusDeleted), ""); err != nil {
			logger.WarnCtx(ctx, "failed to mark release deleted: %v", err)
		}
	}

	logger.InfoCtx(ctx, "deployment deleted, name: %s", name)
	return nil
}

// ManifestPreview renders the deployment manifest a rollout request would
// apply, without touching the cluster.
func (s *ReleaseService) ManifestPreview(req *model.RolloutRequest) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("deployment provider not configured")
	}
	return s.provider.ManifestYAML(s.buildRelease(req))
}

// SyncStatus reconciles persisted release statuses with the live deployment
// state. Releases converge to READY when the deployment is healthy and to
// DEGRADED when it is not.
func (s *ReleaseService) SyncStatus(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}

	rows, err := s.releaseRepo.ListByStatus(ctx,
		string(model.ReleaseStatusRolling),
		string(model.ReleaseStatusReady),
		string(model.ReleaseStatusDegraded),
	)
	if err != nil {
		return fmt.Errorf("failed to list active releases: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	// All active releases share the configured deployment name, one status
	// lookup covers them.
	status, err := s.provider.Status(ctx, config.GlobalConfig.Deployment.Name)
	if err != nil {
		return fmt.Errorf("failed to query deployment status: %w", err)
	}

	for _, row := range rows {
		next := string(model.ReleaseStatusDegraded)
		message := "deployment not found in cluster"
		if status != nil {
			if status.Healthy() {
				next = string(model.ReleaseStatusReady)
				message = ""
			} else {
				message = fmt.Sprintf("ready %d/%d, available %d, updated %d",
					status.Ready, status.Desired, status.Available, status.Updated)
			}
		}
		if row.Status == next {
			continue
		}
		if err := s.releaseRepo.UpdateStatus(ctx, row.ReleaseID, next, message); err != nil {
			logger.ErrorCtx(ctx, "failed to update release status, release_id: %s: %v", row.ReleaseID, err)
			continue
		}
		logger.InfoCtx(ctx, "release status changed, release_id: %s, from: %s, to: %s",
			row.ReleaseID, row.Status, next)
	}
	return nil
}
