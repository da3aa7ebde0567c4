package model

import "time"

// Application MySQL model for loan_applications table
type Application struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ApplicationID  string     `gorm:"column:application_id;type:varchar(64);not null;uniqueIndex:idx_application_id" json:"application_id"`
	Profile        JSONMap    `gorm:"column:profile;type:json" json:"profile"`
	Status         string     `gorm:"column:status;type:varchar(32);not null;default:RECEIVED;index:idx_status" json:"status"`
	SanctionAmount *float64   `gorm:"column:sanction_amount;type:double" json:"sanction_amount,omitempty"`
	Error          string     `gorm:"column:error;type:varchar(512);not null;default:''" json:"error,omitempty"`
	CreatedAt      time.Time  `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3);index:idx_created_at" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
	ScoredAt       *time.Time `gorm:"column:scored_at;type:datetime(3)" json:"scored_at,omitempty"`
}

// TableName specifies the table name for Application
func (Application) TableName() string {
	return "loan_applications"
}
