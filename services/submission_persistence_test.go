package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"book-submission-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *GormSubmissionStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := NewGormSubmissionStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func TestGormSubmissionStore_RestoreContinuesIDsAndLedger(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	documents, _ := newTestDocumentStore(t)

	repo := NewSubmissionRepository(documents, store)
	first, err := repo.AddSubmission(ctx, validInput("First"), []DocumentUpload{textUpload("chapter1.txt", "once upon a time")})
	require.NoError(t, err)
	second, err := repo.AddSubmission(ctx, validInput("Second"), nil)
	require.NoError(t, err)

	_, err = repo.Review(ctx, first, ReviewInput{Decision: models.StatusDeclined, ReviewerName: "Ree", Comments: "needs work"})
	require.NoError(t, err)
	_, err = repo.Review(ctx, first, ReviewInput{Decision: models.StatusApproved, ReviewerName: "Ree"})
	require.NoError(t, err)

	restored := NewSubmissionRepository(documents, store)
	require.NoError(t, restored.Restore(ctx))

	all := restored.List()
	require.Len(t, all, 2)
	assert.Equal(t, first, all[0].SubmissionID)
	assert.Equal(t, second, all[1].SubmissionID)

	got := all[0]
	assert.Equal(t, models.StatusApproved, got.Status)
	require.Len(t, got.Reviews, 2)
	assert.Equal(t, models.StatusDeclined, got.Reviews[0].Decision)
	require.NotNil(t, got.Reviews[0].Comments)
	assert.Equal(t, "needs work", *got.Reviews[0].Comments)
	assert.Equal(t, models.StatusApproved, got.Reviews[1].Decision)
	require.NotNil(t, got.ReviewedBy)
	assert.Equal(t, "Ree", *got.ReviewedBy)

	require.Len(t, got.Documents, 1)
	_, rc, err := restored.OpenDocument(ctx, first, got.Documents[0].DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "once upon a time", readAllAndClose(t, rc))

	third, err := restored.AddSubmission(ctx, validInput("Third"), nil)
	require.NoError(t, err)
	assert.Equal(t, second+1, third)
}

func TestGormSubmissionStore_AppendReviewUnknownSubmission(t *testing.T) {
	store := newSQLiteStore(t)
	now := time.Now()
	err := store.AppendReview(context.Background(), &models.Submission{SubmissionID: 42, Status: models.StatusApproved},
		models.SubmissionReview{SubmissionID: 42, ReviewID: 1, ReviewerName: "Ree", ReviewDate: now, Decision: models.StatusApproved})
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	rows, err := store.LoadSubmissions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGormSubmissionStore_DuplicateIDLeavesNoPartialRows(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	docs := []models.SubmissionDocument{
		{SubmissionID: 1, DocumentID: 1, FileName: "a.txt", StorageLocator: "a.enc", IsEncrypted: true},
	}
	require.NoError(t, store.CreateSubmission(ctx, &models.Submission{
		SubmissionID: 1, Title: "T", Author: "A", Status: models.StatusPending, Documents: docs,
	}))

	// Same locator violates the unique index, so the whole second insert rolls back.
	err := store.CreateSubmission(ctx, &models.Submission{
		SubmissionID: 2, Title: "T2", Author: "A", Status: models.StatusPending,
		Documents: []models.SubmissionDocument{{SubmissionID: 2, DocumentID: 1, FileName: "b.txt", StorageLocator: "a.enc"}},
	})
	require.Error(t, err)

	rows, err := store.LoadSubmissions(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].SubmissionID)
}

func TestGormSubmissionStore_MySQLAppendReviewRollsBackOnInsertFailure(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("(?i)SELECT count\\(\\*\\) FROM `submissions` WHERE submission_id = \\?"),
			args:    []driver.Value{int64(7)},
			columns: []string{"count(*)"},
			rows:    [][]driver.Value{{int64(1)}},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("(?is)UPDATE `submissions` SET .*`reviewed_by`.*`status`.* WHERE submission_id = \\?"),
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("(?i)INSERT INTO `submission_reviews`"),
			err:     errors.New("Error 1062: Duplicate entry"),
		},
	}
	db, state := newScriptedGormDB(t, steps)
	store := NewGormSubmissionStore(db)

	reviewer := "Ree"
	now := time.Now()
	err := store.AppendReview(context.Background(),
		&models.Submission{SubmissionID: 7, Status: models.StatusApproved, ReviewedBy: &reviewer, ReviewedDate: &now},
		models.SubmissionReview{SubmissionID: 7, ReviewID: 1, ReviewerName: reviewer, ReviewDate: now, Decision: models.StatusApproved})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save review record")

	require.NoError(t, state.verifyComplete())
	commits, rollbacks := state.txCounts()
	assert.Equal(t, 0, commits)
	assert.Equal(t, 1, rollbacks)
}

func TestGormSubmissionStore_MySQLCreateSubmissionUsesOneTransaction(t *testing.T) {
	steps := []*queryStep{
		{kind: kindExec, pattern: regexp.MustCompile("(?i)INSERT INTO `submissions`")},
		{kind: kindExec, pattern: regexp.MustCompile("(?i)INSERT INTO `submission_documents`")},
	}
	db, state := newScriptedGormDB(t, steps)
	store := NewGormSubmissionStore(db)

	err := store.CreateSubmission(context.Background(), &models.Submission{
		SubmissionID: 3, Title: "T", Author: "A", Status: models.StatusPending,
		Documents: []models.SubmissionDocument{
			{SubmissionID: 3, DocumentID: 1, FileName: "a.pdf", StorageLocator: "a.enc"},
			{SubmissionID: 3, DocumentID: 2, FileName: "b.pdf", StorageLocator: "b.enc"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())

	commits, rollbacks := state.txCounts()
	assert.Equal(t, 1, commits)
	assert.Equal(t, 0, rollbacks)
}
