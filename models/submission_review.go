package models

import "time"

// SubmissionReview is one append-only entry in a submission's review ledger.
type SubmissionReview struct {
	SubmissionID int              `gorm:"primaryKey;autoIncrement:false;column:submission_id" json:"submission_id"`
	ReviewID     int              `gorm:"primaryKey;autoIncrement:false;column:review_id" json:"review_id"`
	ReviewerName string           `gorm:"column:reviewer_name;size:255;not null" json:"reviewer_name"`
	ReviewerRole string           `gorm:"column:reviewer_role;size:50" json:"reviewer_role"`
	ReviewDate   time.Time        `gorm:"column:review_date;not null" json:"review_date"`
	Decision     SubmissionStatus `gorm:"column:decision;size:20;not null" json:"decision"`
	Comments     *string          `gorm:"column:comments;type:text" json:"comments"`
}

// TableName specifies the table name for SubmissionReview.
func (SubmissionReview) TableName() string {
	return "submission_reviews"
}

func (r SubmissionReview) clone() SubmissionReview {
	if r.Comments != nil {
		c := *r.Comments
		r.Comments = &c
	}
	return r
}
