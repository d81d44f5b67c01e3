package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"book-submission-api/models"
	"book-submission-api/monitor"
	"book-submission-api/utils"

	"golang.org/x/sync/errgroup"
)

// maxParallelEncryptions bounds how many documents of one submission are encrypted at once.
const maxParallelEncryptions = 4

const (
	maxTitleLength  = 255
	maxAuthorLength = 255
	maxCategoryLen  = 100
	maxISBNLength   = 50
)

// SubmissionInput is the metadata supplied with a new submission.
// Status is accepted for form compatibility and always ignored.
type SubmissionInput struct {
	Title          string
	Author         string
	Category       string
	ISBN           string
	Description    string
	SubmittedBy    string
	SubmitterEmail string
	Status         models.SubmissionStatus
}

// DocumentUpload is one raw document stream attached at submission time.
type DocumentUpload struct {
	FileName string
	Content  io.Reader
}

// ReviewInput is a reviewer's decision on a submission.
type ReviewInput struct {
	Decision     models.SubmissionStatus
	ReviewerName string
	ReviewerRole string
	Comments     string
}

// SubmissionStats counts submissions per status.
type SubmissionStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Declined int `json:"declined"`
}

// SubmissionPersister durably records submissions. Each method must be atomic:
// either everything it was given is stored or nothing is.
type SubmissionPersister interface {
	CreateSubmission(ctx context.Context, submission *models.Submission) error
	AppendReview(ctx context.Context, submission *models.Submission, review models.SubmissionReview) error
	LoadSubmissions(ctx context.Context) ([]models.Submission, error)
}

// SubmissionNotifier is told about committed changes. Implementations must not block.
type SubmissionNotifier interface {
	SubmissionCreated(submission *models.Submission)
	SubmissionReviewed(submission *models.Submission)
}

// SubmissionRepository owns the submission records, their identity assignment
// and their review ledgers. Writers are serialised by mu; readers get deep
// copies, so no caller ever sees a status that disagrees with its ledger.
type SubmissionRepository struct {
	documents *DocumentStore
	persister SubmissionPersister
	notifier  SubmissionNotifier
	now       func() time.Time

	mu     sync.RWMutex
	nextID int
	order  []int
	byID   map[int]*models.Submission
}

// NewSubmissionRepository returns an empty repository. persister may be nil,
// in which case records live only in memory.
func NewSubmissionRepository(documents *DocumentStore, persister SubmissionPersister) *SubmissionRepository {
	return &SubmissionRepository{
		documents: documents,
		persister: persister,
		now:       time.Now,
		nextID:    1,
		byID:      make(map[int]*models.Submission),
	}
}

// SetNotifier installs n to receive committed changes.
func (r *SubmissionRepository) SetNotifier(n SubmissionNotifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifier = n
}

// Restore replaces the in-memory state with what the persister holds.
// The next id continues after the highest stored id.
func (r *SubmissionRepository) Restore(ctx context.Context) error {
	if r.persister == nil {
		return nil
	}
	rows, err := r.persister.LoadSubmissions(ctx)
	if err != nil {
		return fmt.Errorf("load submissions: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SubmissionID < rows[j].SubmissionID })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[int]*models.Submission, len(rows))
	r.order = make([]int, 0, len(rows))
	r.nextID = 1
	for i := range rows {
		record := rows[i].Clone()
		r.byID[record.SubmissionID] = record
		r.order = append(r.order, record.SubmissionID)
		if record.SubmissionID >= r.nextID {
			r.nextID = record.SubmissionID + 1
		}
	}
	log.Printf("Restored %d submissions, next id %d", len(rows), r.nextID)
	return nil
}

func normalizeInput(input SubmissionInput) SubmissionInput {
	input.Title = utils.SanitizeInput(input.Title)
	input.Author = utils.SanitizeInput(input.Author)
	input.Category = utils.SanitizeInput(input.Category)
	input.ISBN = utils.SanitizeInput(input.ISBN)
	input.Description = utils.SanitizeInput(input.Description)
	input.SubmittedBy = utils.SanitizeInput(input.SubmittedBy)
	input.SubmitterEmail = utils.SanitizeInput(input.SubmitterEmail)
	if input.SubmitterEmail != "" && !utils.ValidateEmail(input.SubmitterEmail) {
		input.SubmitterEmail = ""
	}
	return input
}

func validateInput(input SubmissionInput) error {
	switch {
	case input.Title == "":
		return newValidationError("title", "Book title is required")
	case input.Author == "":
		return newValidationError("author", "Book author is required")
	case utils.ExceedsLength(input.Title, maxTitleLength):
		return newValidationError("title", "Book title must be at most %d characters", maxTitleLength)
	case utils.ExceedsLength(input.Author, maxAuthorLength):
		return newValidationError("author", "Book author must be at most %d characters", maxAuthorLength)
	case utils.ExceedsLength(input.Category, maxCategoryLen):
		return newValidationError("category", "Category must be at most %d characters", maxCategoryLen)
	case utils.ExceedsLength(input.ISBN, maxISBNLength):
		return newValidationError("isbn", "ISBN must be at most %d characters", maxISBNLength)
	}
	return nil
}

// AddSubmission validates and stores a new Pending submission with its documents
// and returns the assigned id. It is all-or-nothing: when any document fails,
// the containers already written are discarded and no id is consumed.
func (r *SubmissionRepository) AddSubmission(ctx context.Context, input SubmissionInput, uploads []DocumentUpload) (int, error) {
	input = normalizeInput(input)
	if err := validateInput(input); err != nil {
		return 0, err
	}
	for _, upload := range uploads {
		if err := r.documents.ValidateName(upload.FileName); err != nil {
			return 0, err
		}
	}

	docs, err := r.saveDocuments(ctx, uploads)
	if err != nil {
		return 0, err
	}

	record := &models.Submission{
		Title:          input.Title,
		Author:         input.Author,
		Category:       input.Category,
		ISBN:           input.ISBN,
		Description:    input.Description,
		SubmittedBy:    input.SubmittedBy,
		SubmitterEmail: input.SubmitterEmail,
		SubmittedDate:  r.now(),
		Status:         models.StatusPending,
		Documents:      docs,
		Reviews:        []models.SubmissionReview{},
	}

	r.mu.Lock()
	id := r.nextID
	record.SubmissionID = id
	for i := range record.Documents {
		record.Documents[i].SubmissionID = id
		record.Documents[i].DocumentID = i + 1
	}
	if r.persister != nil {
		if err := r.persister.CreateSubmission(ctx, record); err != nil {
			r.mu.Unlock()
			r.discardDocuments(ctx, docs)
			return 0, fmt.Errorf("persist submission: %w", err)
		}
	}
	r.byID[id] = record
	r.order = append(r.order, id)
	r.nextID++
	notifier := r.notifier
	snapshot := record.Clone()
	r.mu.Unlock()

	monitor.SubmissionsCreated.Inc()
	log.Printf("Submission %d created by %q with %d document(s)", id, snapshot.SubmittedBy, len(snapshot.Documents))
	if notifier != nil {
		notifier.SubmissionCreated(snapshot)
	}
	return id, nil
}

func (r *SubmissionRepository) saveDocuments(ctx context.Context, uploads []DocumentUpload) ([]models.SubmissionDocument, error) {
	docs := make([]models.SubmissionDocument, len(uploads))
	if len(uploads) == 0 {
		return docs, nil
	}
	saved := make([]bool, len(uploads))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelEncryptions)
	for i, upload := range uploads {
		g.Go(func() error {
			doc, err := r.documents.Save(gctx, upload.Content, upload.FileName)
			if err != nil {
				return fmt.Errorf("document %q: %w", utils.DisplayFileName(upload.FileName), err)
			}
			docs[i] = doc
			saved[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		written := make([]models.SubmissionDocument, 0, len(docs))
		for i := range docs {
			if saved[i] {
				written = append(written, docs[i])
			}
		}
		r.discardDocuments(ctx, written)
		return nil, err
	}
	return docs, nil
}

func (r *SubmissionRepository) discardDocuments(ctx context.Context, docs []models.SubmissionDocument) {
	cleanupCtx := persistentContext(ctx)
	for _, doc := range docs {
		r.documents.Discard(cleanupCtx, doc)
	}
}

// GetByID returns a copy of the submission with the given id.
func (r *SubmissionRepository) GetByID(id int) (*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.byID[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	return record.Clone(), nil
}

// List returns copies of every submission in insertion order.
func (r *SubmissionRepository) List() []*models.Submission {
	return r.filter(func(*models.Submission) bool { return true })
}

// ListByStatus returns copies of the submissions currently in status, in insertion order.
func (r *SubmissionRepository) ListByStatus(status models.SubmissionStatus) []*models.Submission {
	return r.filter(func(s *models.Submission) bool { return s.Status == status })
}

func (r *SubmissionRepository) filter(keep func(*models.Submission) bool) []*models.Submission {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Submission, 0, len(r.order))
	for _, id := range r.order {
		record := r.byID[id]
		if keep(record) {
			out = append(out, record.Clone())
		}
	}
	return out
}

// Stats counts submissions per status.
func (r *SubmissionRepository) Stats() SubmissionStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := SubmissionStats{Total: len(r.order)}
	for _, id := range r.order {
		switch r.byID[id].Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved:
			stats.Approved++
		case models.StatusDeclined:
			stats.Declined++
		}
	}
	return stats
}

// Review appends a decision to the submission's ledger and moves its status to
// match, as one unit. On any failure the submission is left exactly as it was.
// Already decided submissions may be reviewed again; each review adds an entry.
func (r *SubmissionRepository) Review(ctx context.Context, id int, input ReviewInput) (*models.Submission, error) {
	if !input.Decision.IsReviewDecision() {
		return nil, newValidationError("decision", "Decision must be %s or %s", models.StatusApproved, models.StatusDeclined)
	}
	reviewer := utils.SanitizeInput(input.ReviewerName)
	if reviewer == "" {
		return nil, newValidationError("reviewer", "Reviewer name is required")
	}
	comments := utils.SanitizeInput(input.Comments)

	r.mu.Lock()
	current, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrSubmissionNotFound
	}

	reviewedAt := r.now()
	if last := current.LatestReview(); last != nil && reviewedAt.Before(last.ReviewDate) {
		reviewedAt = last.ReviewDate
	}
	review := models.SubmissionReview{
		SubmissionID: id,
		ReviewID:     len(current.Reviews) + 1,
		ReviewerName: reviewer,
		ReviewerRole: utils.SanitizeInput(input.ReviewerRole),
		ReviewDate:   reviewedAt,
		Decision:     input.Decision,
	}
	if comments != "" {
		review.Comments = &comments
	}

	next := current.Clone()
	next.Status = input.Decision
	next.ReviewedBy = &reviewer
	next.ReviewedDate = &reviewedAt
	next.Reviews = append(next.Reviews, review)

	if r.persister != nil {
		if err := r.persister.AppendReview(ctx, next, review); err != nil {
			r.mu.Unlock()
			return nil, fmt.Errorf("persist review: %w", err)
		}
	}
	r.byID[id] = next
	notifier := r.notifier
	snapshot := next.Clone()
	r.mu.Unlock()

	monitor.ReviewDecisions.WithLabelValues(string(input.Decision)).Inc()
	log.Printf("Submission %d %s by %q (review %d)", id, input.Decision, reviewer, review.ReviewID)
	if notifier != nil {
		notifier.SubmissionReviewed(snapshot)
	}
	return snapshot, nil
}

// OpenDocument returns the reference and decrypted content of one attached document.
// The caller must close the reader.
func (r *SubmissionRepository) OpenDocument(ctx context.Context, submissionID, documentID int) (models.SubmissionDocument, io.ReadCloser, error) {
	r.mu.RLock()
	record, ok := r.byID[submissionID]
	var doc models.SubmissionDocument
	found := false
	if ok {
		doc, found = record.Document(documentID)
	}
	r.mu.RUnlock()

	if !ok {
		return models.SubmissionDocument{}, nil, ErrSubmissionNotFound
	}
	if !found {
		return models.SubmissionDocument{}, nil, ErrDocumentNotFound
	}
	rc, err := r.documents.Load(ctx, doc)
	if err != nil {
		return doc, nil, err
	}
	return doc, rc, nil
}
