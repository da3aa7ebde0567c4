package model

import "time"

// Release MySQL model for releases table
type Release struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReleaseID string    `gorm:"column:release_id;type:varchar(64);not null;uniqueIndex:idx_release_id" json:"release_id"`
	Name      string    `gorm:"column:name;type:varchar(255);not null;index:idx_name" json:"name"`
	Image     string    `gorm:"column:image;type:varchar(500);not null" json:"image"`
	Replicas  int32     `gorm:"column:replicas;type:int;not null;default:1" json:"replicas"`
	Status    string    `gorm:"column:status;type:varchar(32);not null;default:PENDING;index:idx_status" json:"status"`
	Message   string    `gorm:"column:message;type:varchar(512);not null;default:''" json:"message,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3);index:idx_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
}

// TableName specifies the table name for Release
func (Release) TableName() string {
	return "releases"
}
