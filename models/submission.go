package models

import "time"

// SubmissionStatus is the moderation state of a submission.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "Pending"
	StatusApproved SubmissionStatus = "Approved"
	StatusDeclined SubmissionStatus = "Declined"
)

// Valid reports whether s is one of the known statuses.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined:
		return true
	}
	return false
}

// IsReviewDecision reports whether s can be the outcome of a review.
func (s SubmissionStatus) IsReviewDecision() bool {
	return s == StatusApproved || s == StatusDeclined
}

// Submission is a book record proposed by a contributor.
// Status, ReviewedBy and ReviewedDate always mirror the last entry in Reviews.
type Submission struct {
	SubmissionID   int              `gorm:"primaryKey;autoIncrement:false;column:submission_id" json:"submission_id"`
	Title          string           `gorm:"column:title;size:255;not null" json:"title"`
	Author         string           `gorm:"column:author;size:255;not null" json:"author"`
	Category       string           `gorm:"column:category;size:100" json:"category"`
	ISBN           string           `gorm:"column:isbn;size:50" json:"isbn"`
	Description    string           `gorm:"column:description;type:text" json:"description"`
	SubmittedBy    string           `gorm:"column:submitted_by;size:255" json:"submitted_by"`
	SubmitterEmail string           `gorm:"column:submitter_email;size:255" json:"-"`
	SubmittedDate  time.Time        `gorm:"column:submitted_date" json:"submitted_date"`
	Status         SubmissionStatus `gorm:"column:status;size:20;not null" json:"status"`
	ReviewedBy     *string          `gorm:"column:reviewed_by;size:255" json:"reviewed_by"`
	ReviewedDate   *time.Time       `gorm:"column:reviewed_date" json:"reviewed_date"`

	// Relations
	Documents []SubmissionDocument `gorm:"foreignKey:SubmissionID" json:"documents"`
	Reviews   []SubmissionReview   `gorm:"foreignKey:SubmissionID" json:"reviews"`
}

// TableName specifies the table name for Submission.
func (Submission) TableName() string {
	return "submissions"
}

// LatestReview returns the most recent ledger entry, or nil while never reviewed.
func (s *Submission) LatestReview() *SubmissionReview {
	if len(s.Reviews) == 0 {
		return nil
	}
	return &s.Reviews[len(s.Reviews)-1]
}

// Document returns the attached document with the given id.
func (s *Submission) Document(documentID int) (SubmissionDocument, bool) {
	for _, doc := range s.Documents {
		if doc.DocumentID == documentID {
			return doc, true
		}
	}
	return SubmissionDocument{}, false
}

// Clone returns a deep copy so callers never share slices with the repository.
func (s *Submission) Clone() *Submission {
	out := *s
	if s.ReviewedBy != nil {
		v := *s.ReviewedBy
		out.ReviewedBy = &v
	}
	if s.ReviewedDate != nil {
		v := *s.ReviewedDate
		out.ReviewedDate = &v
	}
	out.Documents = append([]SubmissionDocument(nil), s.Documents...)
	out.Reviews = make([]SubmissionReview, len(s.Reviews))
	for i, review := range s.Reviews {
		out.Reviews[i] = review.clone()
	}
	return &out
}
