package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ApplicationRepository handles loan application persistence in MySQL
type ApplicationRepository struct {
	ds *Datastore
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(ds *Datastore) *ApplicationRepository {
	return &ApplicationRepository{ds: ds}
}

// Create creates a new application
func (r *ApplicationRepository) Create(ctx context.Context, app *Application) error {
	return r.ds.DB(ctx).Create(app).Error
}

// Get retrieves an application by its external ID
func (r *ApplicationRepository) Get(ctx context.Context, applicationID string) (*Application, error) {
	var app Application
	err := r.ds.DB(ctx).Where("application_id = ?", applicationID).First(&app).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &app, nil
}

// Update updates an application
func (r *ApplicationRepository) Update(ctx context.Context, app *Application) error {
	return r.ds.DB(ctx).Save(app).Error
}

// UpdateStatus updates application status
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, applicationID, status string) error {
	return r.ds.DB(ctx).Model(&Application{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP(3)"),
		}).Error
}

// MarkScored records the sanction amount and flips the application to SCORED
func (r *ApplicationRepository) MarkScored(ctx context.Context, applicationID string, amount float64) error {
	now := time.Now()
	return r.ds.DB(ctx).Model(&Application{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]interface{}{
			"status":          "SCORED",
			"sanction_amount": amount,
			"error":           "",
			"scored_at":       now,
			"updated_at":      gorm.Expr("CURRENT_TIMESTAMP(3)"),
		}).Error
}

// MarkFailed records a scoring failure
func (r *ApplicationRepository) MarkFailed(ctx context.Context, applicationID, message string) error {
	return r.ds.DB(ctx).Model(&Application{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]interface{}{
			"status":     "FAILED",
			"error":      message,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP(3)"),
		}).Error
}

// List retrieves applications with the given status, newest first
func (r *ApplicationRepository) List(ctx context.Context, status string, limit int) ([]*Application, error) {
	q := r.ds.DB(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var apps []*Application
	if err := q.Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// ListStale retrieves applications stuck in the given status for longer
// than age. Used by the reaper job to fail abandoned scoring work.
func (r *ApplicationRepository) ListStale(ctx context.Context, status string, age time.Duration) ([]*Application, error) {
	cutoff := time.Now().Add(-age)
	var apps []*Application
	err := r.ds.DB(ctx).
		Where("status = ? AND updated_at < ?", status, cutoff).
		Find(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale applications: %w", err)
	}
	return apps, nil
}

// Exists checks if an application exists
func (r *ApplicationRepository) Exists(ctx context.Context, applicationID string) (bool, error) {
	var count int64
	err := r.ds.DB(ctx).Model(&Application{}).
		Where("application_id = ?", applicationID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check application existence: %w", err)
	}
	return count > 0, nil
}
