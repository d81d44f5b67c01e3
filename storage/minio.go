package storage

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const minioPartSize = 16 << 20

// MinioConfig holds the connection settings for an S3 compatible object store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioBackend stores containers as objects in a single bucket. Objects only
// become visible once PutObject completes, so partial uploads are never readable.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

// ConnectMinio connects to the object store and makes sure the bucket exists.
func ConnectMinio(ctx context.Context, cfg MinioConfig) (*MinioBackend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("error checking if bucket exists: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("error creating bucket: %w", err)
		}
		log.Printf("Bucket %s created successfully", cfg.Bucket)
	}

	return &MinioBackend{client: client, bucket: cfg.Bucket}, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (b *MinioBackend) Write(ctx context.Context, locator string, r io.Reader) error {
	if err := ValidateLocator(locator); err != nil {
		return err
	}
	_, err := b.client.PutObject(ctx, b.bucket, locator, r, -1, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
		PartSize:    minioPartSize,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", locator, err)
	}
	return nil
}

func (b *MinioBackend) Read(ctx context.Context, locator string) (io.ReadCloser, error) {
	if err := ValidateLocator(locator); err != nil {
		return nil, err
	}
	obj, err := b.client.GetObject(ctx, b.bucket, locator, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat forces the request so a missing key is reported here.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return obj, nil
}

func (b *MinioBackend) Exists(ctx context.Context, locator string) (bool, error) {
	if err := ValidateLocator(locator); err != nil {
		return false, err
	}
	_, err := b.client.StatObject(ctx, b.bucket, locator, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *MinioBackend) Delete(ctx context.Context, locator string) error {
	exists, err := b.Exists(ctx, locator)
	if err != nil {
		return err
	}
	if !exists {
		return ErrObjectNotFound
	}
	return b.client.RemoveObject(ctx, b.bucket, locator, minio.RemoveObjectOptions{})
}

func (b *MinioBackend) List(ctx context.Context) ([]string, error) {
	var locators []string
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		locators = append(locators, obj.Key)
	}
	return locators, nil
}
