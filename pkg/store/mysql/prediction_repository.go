package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PredictionRepository handles prediction persistence in MySQL
type PredictionRepository struct {
	ds *Datastore
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(ds *Datastore) *PredictionRepository {
	return &PredictionRepository{ds: ds}
}

// Upsert stores a prediction, replacing any existing row for the same
// profile hash. Retraining overwrites stale amounts this way.
func (r *PredictionRepository) Upsert(ctx context.Context, pred *Prediction) error {
	return r.ds.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"sanction_amount", "model_trained_at"}),
	}).Create(pred).Error
}

// Get retrieves a prediction by profile hash
func (r *PredictionRepository) Get(ctx context.Context, profileHash string) (*Prediction, error) {
	var pred Prediction
	err := r.ds.DB(ctx).Where("profile_hash = ?", profileHash).First(&pred).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return &pred, nil
}

// Count returns the number of stored predictions
func (r *PredictionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.ds.DB(ctx).Model(&Prediction{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}
	return count, nil
}

// DeleteAll clears all stored predictions. Called after retraining so
// amounts from the previous model are not served.
func (r *PredictionRepository) DeleteAll(ctx context.Context) error {
	return r.ds.DB(ctx).Where("1 = 1").Delete(&Prediction{}).Error
}
