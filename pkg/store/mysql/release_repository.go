package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ReleaseRepository handles release persistence in MySQL
type ReleaseRepository struct {
	ds *Datastore
}

// NewReleaseRepository creates a new release repository
func NewReleaseRepository(ds *Datastore) *ReleaseRepository {
	return &ReleaseRepository{ds: ds}
}

// Create creates a new release
func (r *ReleaseRepository) Create(ctx context.Context, release *Release) error {
	return r.ds.DB(ctx).Create(release).Error
}

// Get retrieves a release by its external ID
func (r *ReleaseRepository) Get(ctx context.Context, releaseID string) (*Release, error) {
	var release Release
	err := r.ds.DB(ctx).Where("release_id = ?", releaseID).First(&release).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get release: %w", err)
	}
	return &release, nil
}

// Latest retrieves the most recent release for a deployment name
func (r *ReleaseRepository) Latest(ctx context.Context, name string) (*Release, error) {
	var release Release
	err := r.ds.DB(ctx).
		Where("name = ?", name).
		Order("created_at DESC").
		First(&release).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest release: %w", err)
	}
	return &release, nil
}

// List retrieves all releases for a deployment name, newest first
func (r *ReleaseRepository) List(ctx context.Context, name string, limit int) ([]*Release, error) {
	q := r.ds.DB(ctx).Order("created_at DESC")
	if name != "" {
		q = q.Where("name = ?", name)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var releases []*Release
	if err := q.Find(&releases).Error; err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	return releases, nil
}

// UpdateStatus updates release status and message
func (r *ReleaseRepository) UpdateStatus(ctx context.Context, releaseID, status, message string) error {
	return r.ds.DB(ctx).Model(&Release{}).
		Where("release_id = ?", releaseID).
		Updates(map[string]interface{}{
			"status":     status,
			"message":    message,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP(3)"),
		}).Error
}

// UpdateReplicas updates the desired replica count of a release
func (r *ReleaseRepository) UpdateReplicas(ctx context.Context, releaseID string, replicas int32) error {
	return r.ds.DB(ctx).Model(&Release{}).
		Where("release_id = ?", releaseID).
		Updates(map[string]interface{}{
			"replicas":   replicas,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP(3)"),
		}).Error
}

// ListByStatus retrieves releases in any of the given statuses
func (r *ReleaseRepository) ListByStatus(ctx context.Context, statuses ...string) ([]*Release, error) {
	var releases []*Release
	err := r.ds.DB(ctx).
		Where("status IN ?", statuses).
		Find(&releases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list releases by status: %w", err)
	}
	return releases, nil
}
