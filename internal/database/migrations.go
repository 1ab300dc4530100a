package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/majibrin/birinbolawa/internal/models"
	"github.com/majibrin/birinbolawa/internal/utils"
)

// Migration is one versioned schema step. Up must be safe to run against a
// schema that already contains its change, because databases created by the
// first hosted deployment were modified by hand.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// submissionV1 is the submissions table as first deployed: no review
// timestamp and no receipt code.
type submissionV1 struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Title               string                      `gorm:"size:500;not null"`
	Description         string                      `gorm:"type:text;not null"`
	Category            string                      `gorm:"size:50;not null;index:idx_submissions_category"`
	ContributorName     string                      `gorm:"size:255;not null"`
	ContributorAge      *int
	ContributorRelation string                      `gorm:"size:255"`
	ContactInfo         string                      `gorm:"size:500"`
	EstimatedPeriod     string                      `gorm:"size:255"`
	LocationDetails     string                      `gorm:"type:text"`
	MediaURLs           datatypes.JSONSlice[string] `gorm:"column:media_urls"`
	Status              string                      `gorm:"size:20;not null;default:pending;index:idx_submissions_status"`
	CreatedAt           time.Time                   `gorm:"index:idx_submissions_created_at"`
}

func (submissionV1) TableName() string {
	return "submissions"
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_submissions",
		Up: func(tx *gorm.DB) error {
			if tx.Migrator().HasTable("submissions") {
				return nil
			}
			return tx.Migrator().CreateTable(&submissionV1{})
		},
	},
	{
		Version: 2,
		Name:    "add_submissions_verified_at",
		Up: func(tx *gorm.DB) error {
			if tx.Migrator().HasColumn(&models.Submission{}, "VerifiedAt") {
				return nil
			}
			return tx.Migrator().AddColumn(&models.Submission{}, "VerifiedAt")
		},
	},
	{
		Version: 3,
		Name:    "add_submissions_reference_code",
		Up: func(tx *gorm.DB) error {
			m := tx.Migrator()
			if !m.HasColumn(&models.Submission{}, "ReferenceCode") {
				if err := m.AddColumn(&models.Submission{}, "ReferenceCode"); err != nil {
					return err
				}
			}
			if err := backfillReferenceCodes(tx); err != nil {
				return err
			}
			if m.HasIndex(&models.Submission{}, "ReferenceCode") {
				return nil
			}
			return m.CreateIndex(&models.Submission{}, "ReferenceCode")
		},
	},
	{
		Version: 4,
		Name:    "create_review_logs",
		Up: func(tx *gorm.DB) error {
			if tx.Migrator().HasTable(&models.ReviewLog{}) {
				return nil
			}
			return tx.Migrator().CreateTable(&models.ReviewLog{})
		},
	},
}

// Migrations returns the ordered list of known migrations
func Migrations() []Migration {
	return migrations
}

func backfillReferenceCodes(tx *gorm.DB) error {
	var ids []uuid.UUID
	if err := tx.Model(&models.Submission{}).
		Where("reference_code IS NULL OR reference_code = ?", "").
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to find submissions without reference code: %w", err)
	}

	for _, id := range ids {
		code, err := utils.NewReferenceCode()
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Submission{}).
			Where("id = ?", id).
			Update("reference_code", code).Error; err != nil {
			return fmt.Errorf("failed to backfill reference code for %s: %w", id, err)
		}
	}
	return nil
}

// Migrate applies every migration not yet recorded in schema_migrations and
// returns how many ran.
func Migrate(db *gorm.DB) (int, error) {
	pending, err := PendingMigrations(db)
	if err != nil {
		return 0, err
	}

	for _, migration := range pending {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&models.SchemaMigration{
				Version:   migration.Version,
				Name:      migration.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return 0, fmt.Errorf("migration %03d_%s failed: %w", migration.Version, migration.Name, err)
		}
	}

	return len(pending), nil
}

// PendingMigrations returns the migrations not yet applied, in order
func PendingMigrations(db *gorm.DB) ([]Migration, error) {
	if err := db.AutoMigrate(&models.SchemaMigration{}); err != nil {
		return nil, fmt.Errorf("failed to prepare schema_migrations: %w", err)
	}

	var applied []int
	if err := db.Model(&models.SchemaMigration{}).Pluck("version", &applied).Error; err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}

	done := make(map[int]bool, len(applied))
	for _, version := range applied {
		done[version] = true
	}

	var pending []Migration
	for _, migration := range migrations {
		if !done[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}
