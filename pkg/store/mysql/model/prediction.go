package model

import "time"

// Prediction MySQL model for predictions table. One row per distinct
// applicant profile, keyed by the profile hash, so repeat submissions
// reuse the stored sanction amount.
type Prediction struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProfileHash    string    `gorm:"column:profile_hash;type:char(64);not null;uniqueIndex:idx_profile_hash" json:"profile_hash"`
	SanctionAmount float64   `gorm:"column:sanction_amount;type:double;not null" json:"sanction_amount"`
	ModelTrainedAt time.Time `gorm:"column:model_trained_at;type:datetime(3);not null" json:"model_trained_at"`
	CreatedAt      time.Time `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"created_at"`
}

// TableName specifies the table name for Prediction
func (Prediction) TableName() string {
	return "predictions"
}
