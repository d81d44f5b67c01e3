package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"book-submission-api/encryption"
	"book-submission-api/storage"
	"book-submission-api/utils"
)

// LoadDocumentCodec builds the codec from DOCUMENT_ENCRYPTION_KEY (hex or base64, 32 bytes).
// DOCUMENT_CHUNK_SIZE_KB optionally overrides the chunk size of new containers.
func LoadDocumentCodec() (*encryption.Codec, error) {
	return LoadCodecFromEnv("DOCUMENT_ENCRYPTION_KEY")
}

// LoadCodecFromEnv builds a codec from the key held in the named variable.
func LoadCodecFromEnv(name string) (*encryption.Codec, error) {
	key, err := encryption.ParseKey(os.Getenv(name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	codec, err := encryption.NewCodec(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if kb, _ := strconv.Atoi(os.Getenv("DOCUMENT_CHUNK_SIZE_KB")); kb > 0 {
		codec = codec.WithChunkSize(kb * 1024)
	}
	return codec, nil
}

// AllowedDocumentExtensions reads ALLOWED_DOCUMENT_EXTENSIONS, e.g. ".pdf,.docx,.txt,.xlsx".
func AllowedDocumentExtensions() []string {
	exts := utils.ParseExtensionList(os.Getenv("ALLOWED_DOCUMENT_EXTENSIONS"))
	if len(exts) == 0 {
		return utils.DefaultDocumentExtensions
	}
	return exts
}

// MaxUploadBytes reads MAX_UPLOAD_SIZE_MB (default 10) as a byte limit per document.
func MaxUploadBytes() int64 {
	mb, _ := strconv.Atoi(os.Getenv("MAX_UPLOAD_SIZE_MB"))
	if mb <= 0 {
		mb = 10
	}
	return int64(mb) * 1024 * 1024
}

// NewStorageBackend returns the backend selected by STORAGE_DRIVER (local, minio or memory).
func NewStorageBackend(ctx context.Context) (storage.Backend, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_DRIVER")))
	switch driver {
	case "", "local":
		uploadPath := os.Getenv("UPLOAD_PATH")
		if uploadPath == "" {
			uploadPath = "./uploads"
		}
		return storage.NewLocalBackend(uploadPath)
	case "minio":
		bucket := os.Getenv("MINIO_BUCKET")
		if bucket == "" {
			bucket = "book-submissions"
		}
		return storage.ConnectMinio(ctx, storage.MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    bucket,
			UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		})
	case "memory":
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", driver)
	}
}
