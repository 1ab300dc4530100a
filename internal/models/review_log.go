package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReviewLog records committee review actions for the audit trail
type ReviewLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SubmissionID uuid.UUID         `gorm:"type:uuid;not null;index" json:"submission_id"`
	Action       Status            `gorm:"size:20;not null" json:"action"`
	ClientIP     string            `gorm:"size:64" json:"client_ip"`
	Details      datatypes.JSONMap `gorm:"column:details" json:"details,omitempty"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}

func (ReviewLog) TableName() string {
	return "review_logs"
}
