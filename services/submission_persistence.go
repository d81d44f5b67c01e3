package services

import (
	"context"
	"fmt"

	"book-submission-api/config"
	"book-submission-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSubmissionStore persists submissions, documents and review ledgers with gorm.
type GormSubmissionStore struct {
	db *gorm.DB
}

func NewGormSubmissionStore(db *gorm.DB) *GormSubmissionStore {
	if db == nil {
		db = config.DB
	}
	return &GormSubmissionStore{db: db}
}

// CreateSubmission inserts the submission row and its document references in one transaction.
func (s *GormSubmissionStore) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(submission).Error; err != nil {
			return fmt.Errorf("failed to insert submission: %w", err)
		}
		if len(submission.Documents) > 0 {
			if err := tx.Create(&submission.Documents).Error; err != nil {
				return fmt.Errorf("failed to insert submission documents: %w", err)
			}
		}
		return nil
	})
}

// AppendReview inserts the ledger entry and updates the denormalised status
// columns in one transaction.
func (s *GormSubmissionStore) AppendReview(ctx context.Context, submission *models.Submission, review models.SubmissionReview) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Submission{}).
			Where("submission_id = ?", submission.SubmissionID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to load submission: %w", err)
		}
		if count == 0 {
			return ErrSubmissionNotFound
		}

		if err := tx.Model(&models.Submission{}).
			Where("submission_id = ?", submission.SubmissionID).
			Updates(map[string]interface{}{
				"status":        submission.Status,
				"reviewed_by":   submission.ReviewedBy,
				"reviewed_date": submission.ReviewedDate,
			}).Error; err != nil {
			return fmt.Errorf("failed to update submission status: %w", err)
		}

		if err := tx.Create(&review).Error; err != nil {
			return fmt.Errorf("failed to save review record: %w", err)
		}
		return nil
	})
}

// LoadSubmissions returns every submission with documents and reviews in ledger order.
func (s *GormSubmissionStore) LoadSubmissions(ctx context.Context) ([]models.Submission, error) {
	var rows []models.Submission
	err := s.db.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB {
			return db.Order("document_id ASC")
		}).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("review_date ASC, review_id ASC")
		}).
		Order("submission_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AutoMigrate creates or updates the submissions, submission_documents and
// submission_reviews tables.
func (s *GormSubmissionStore) AutoMigrate() error {
	return s.db.AutoMigrate(&models.Submission{}, &models.SubmissionDocument{}, &models.SubmissionReview{})
}
