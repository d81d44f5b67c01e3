package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"book-submission-api/encryption"
	"book-submission-api/models"
	"book-submission-api/monitor"
	"book-submission-api/storage"
	"book-submission-api/utils"

	"github.com/google/uuid"
)

const locatorSuffix = ".enc"

// DocumentStore encrypts documents into the storage backend and decrypts them on retrieval.
type DocumentStore struct {
	backend storage.Backend
	codec   *encryption.Codec
	allowed map[string]bool
	now     func() time.Time
}

// NewDocumentStore returns a store writing to backend. An empty allow-list
// falls back to utils.DefaultDocumentExtensions.
func NewDocumentStore(backend storage.Backend, codec *encryption.Codec, allowedExtensions []string) *DocumentStore {
	if len(allowedExtensions) == 0 {
		allowedExtensions = utils.DefaultDocumentExtensions
	}
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimSpace(ext))] = true
	}
	return &DocumentStore{
		backend: backend,
		codec:   codec,
		allowed: allowed,
		now:     time.Now,
	}
}

// ValidateName checks a document's display name against the extension allow-list.
func (s *DocumentStore) ValidateName(name string) error {
	if utils.DisplayFileName(name) == "" {
		return newValidationError("documents", "Document file name is required")
	}
	ext := utils.FileExtension(name)
	if !s.allowed[ext] {
		if ext == "" {
			return newValidationError("documents", "File %s has no extension", utils.DisplayFileName(name))
		}
		return newValidationError("documents", "File extension %s not allowed", ext)
	}
	return nil
}

type encryptResult struct {
	size int64
	err  error
}

// Save encrypts r under a fresh random locator and returns the reference to attach.
// Nothing is written when the name is rejected, and a failed or cancelled save
// never leaves a readable container behind.
func (s *DocumentStore) Save(ctx context.Context, r io.Reader, suggestedName string) (models.SubmissionDocument, error) {
	if err := s.ValidateName(suggestedName); err != nil {
		return models.SubmissionDocument{}, err
	}
	if s.codec == nil {
		return models.SubmissionDocument{}, encryption.ErrKeyMissing
	}

	locator := uuid.NewString() + locatorSuffix
	pr, pw := io.Pipe()
	done := make(chan encryptResult, 1)
	go func() {
		n, err := s.codec.Encrypt(ctx, pw, r)
		pw.CloseWithError(err)
		done <- encryptResult{size: n, err: err}
	}()

	writeErr := s.backend.Write(ctx, locator, pr)
	pr.Close()
	res := <-done

	if res.err != nil && !errors.Is(res.err, io.ErrClosedPipe) {
		if writeErr == nil {
			s.Discard(persistentContext(ctx), models.SubmissionDocument{StorageLocator: locator})
		}
		return models.SubmissionDocument{}, res.err
	}
	if writeErr != nil {
		return models.SubmissionDocument{}, fmt.Errorf("store document: %w", writeErr)
	}

	monitor.DocumentsEncrypted.Inc()
	monitor.DocumentBytesEncrypted.Add(float64(res.size))

	return models.SubmissionDocument{
		FileName:       utils.DisplayFileName(suggestedName),
		StorageLocator: locator,
		FileSize:       res.size,
		ContentType:    utils.ContentTypeForFile(suggestedName),
		IsEncrypted:    true,
		UploadedAt:     s.now(),
	}, nil
}

// Load opens the container behind ref and returns a reader of the plaintext.
// Integrity failures surface from Read on the returned reader as well as from Load.
func (s *DocumentStore) Load(ctx context.Context, ref models.SubmissionDocument) (io.ReadCloser, error) {
	rc, err := s.backend.Read(ctx, ref.StorageLocator)
	if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidLocator) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	plain, err := s.codec.NewDecrypter(rc)
	if err != nil {
		rc.Close()
		if errors.Is(err, encryption.ErrIntegrity) {
			monitor.DocumentIntegrityFailures.Inc()
			log.Printf("Document %s failed integrity check: %v", ref.StorageLocator, err)
		}
		return nil, err
	}
	monitor.DocumentsDecrypted.Inc()
	return &documentReader{plain: plain, closer: rc, locator: ref.StorageLocator}, nil
}

// Discard removes the container behind ref. A missing container is not an error.
func (s *DocumentStore) Discard(ctx context.Context, ref models.SubmissionDocument) error {
	err := s.backend.Delete(ctx, ref.StorageLocator)
	if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		log.Printf("Warning: failed to discard document %s: %v", ref.StorageLocator, err)
		return err
	}
	return nil
}

type documentReader struct {
	plain    io.Reader
	closer   io.Closer
	locator  string
	reported bool
}

func (d *documentReader) Read(p []byte) (int, error) {
	n, err := d.plain.Read(p)
	if err != nil && !d.reported && errors.Is(err, encryption.ErrIntegrity) {
		d.reported = true
		monitor.DocumentIntegrityFailures.Inc()
		log.Printf("Document %s failed integrity check: %v", d.locator, err)
	}
	return n, err
}

func (d *documentReader) Close() error {
	return d.closer.Close()
}
