package models

import (
	"time"
)

// SubmissionDocument references an encrypted document attached to a submission.
// FileName is display only; the container lives under StorageLocator.
type SubmissionDocument struct {
	SubmissionID   int       `gorm:"primaryKey;autoIncrement:false;column:submission_id" json:"submission_id"`
	DocumentID     int       `gorm:"primaryKey;autoIncrement:false;column:document_id" json:"document_id"`
	FileName       string    `gorm:"column:file_name;size:255;not null" json:"file_name"`
	StorageLocator string    `gorm:"column:storage_locator;size:128;not null;uniqueIndex" json:"-"`
	FileSize       int64     `gorm:"column:file_size" json:"file_size"`
	ContentType    string    `gorm:"column:content_type;size:100" json:"content_type"`
	IsEncrypted    bool      `gorm:"column:is_encrypted" json:"is_encrypted"`
	UploadedAt     time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`
}

// TableName overrides
func (SubmissionDocument) TableName() string {
	return "submission_documents"
}

func (d *SubmissionDocument) GetFileSizeInMB() float64 {
	return float64(d.FileSize) / (1024 * 1024)
}
