package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Category classifies what kind of heritage record was submitted
type Category string

const (
	CategoryOralHistory Category = "oral_history"
	CategoryPhoto       Category = "photo"
	CategoryDocument    Category = "document"
	CategoryArtifact    Category = "artifact"
)

// Categories lists every accepted category in display order
var Categories = []Category{
	CategoryOralHistory,
	CategoryPhoto,
	CategoryDocument,
	CategoryArtifact,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Status is the review stage of a submission
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// Statuses lists every status in review order
var Statuses = []Status{StatusPending, StatusVerified, StatusRejected}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusVerified || s == StatusRejected
}

// Terminal reports whether no further transition is allowed from s
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// Submission is a single community-contributed heritage record
type Submission struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ReferenceCode       string                      `gorm:"size:32;uniqueIndex" json:"reference_code"`
	Title               string                      `gorm:"size:500;not null" json:"title"`
	Description         string                      `gorm:"type:text;not null" json:"description"`
	Category            Category                    `gorm:"size:50;not null;index" json:"category"`
	ContributorName     string                      `gorm:"size:255;not null" json:"contributor_name"`
	ContributorAge      *int                        `json:"contributor_age"`
	ContributorRelation string                      `gorm:"size:255" json:"contributor_relation"`
	ContactInfo         string                      `gorm:"size:500" json:"contact_info"`
	EstimatedPeriod     string                      `gorm:"size:255" json:"estimated_period"`
	LocationDetails     string                      `gorm:"type:text" json:"location_details"`
	MediaURLs           datatypes.JSONSlice[string] `gorm:"column:media_urls" json:"media_urls"`
	Status              Status                      `gorm:"size:20;not null;default:pending;index" json:"status"`
	CreatedAt           time.Time                   `gorm:"index" json:"created_at"`
	VerifiedAt          *time.Time                  `json:"verified_at,omitempty"`
}

// TableName specifies the table name for Submission model
func (Submission) TableName() string {
	return "submissions"
}

// BeforeCreate fills the identifier and keeps media_urls a JSON array
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = StatusPending
	}
	if s.MediaURLs == nil {
		s.MediaURLs = datatypes.JSONSlice[string]{}
	}
	return nil
}

// AfterFind normalizes rows written before media_urls had a default
func (s *Submission) AfterFind(tx *gorm.DB) error {
	if s.MediaURLs == nil {
		s.MediaURLs = datatypes.JSONSlice[string]{}
	}
	return nil
}

// SchemaMigration records one applied versioned migration
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false" json:"version"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	AppliedAt time.Time `json:"applied_at"`
}

// TableName specifies the table name for SchemaMigration model
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}
