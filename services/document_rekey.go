package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"book-submission-api/encryption"
	"book-submission-api/storage"

	"golang.org/x/sync/errgroup"
)

// RekeySummary reports what RekeyDocuments did.
type RekeySummary struct {
	Scanned   int
	Rekeyed   int
	Skipped   int
	Failed    int
	SkipNames []string
}

// RekeyDocuments re-encrypts every container in backend from oldCodec to newCodec
// in place. Each rewrite goes through the backend's atomic write, so an
// interrupted run leaves every container readable under one of the two keys.
// Containers that do not authenticate under oldCodec are skipped. With dryRun
// set the containers are only verified.
func RekeyDocuments(ctx context.Context, backend storage.Backend, oldCodec, newCodec *encryption.Codec, workers int, dryRun bool) (RekeySummary, error) {
	var summary RekeySummary
	if oldCodec == nil || newCodec == nil {
		return summary, encryption.ErrKeyMissing
	}
	if workers <= 0 {
		workers = 1
	}

	locators, err := backend.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("list containers: %w", err)
	}

	var mu sync.Mutex
	record := func(fn func()) {
		mu.Lock()
		fn()
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, locator := range locators {
		if !strings.HasSuffix(locator, locatorSuffix) {
			continue
		}
		record(func() { summary.Scanned++ })
		g.Go(func() error {
			err := rekeyContainer(gctx, backend, oldCodec, newCodec, locator, dryRun)
			switch {
			case err == nil:
				record(func() { summary.Rekeyed++ })
			case errors.Is(err, encryption.ErrIntegrity):
				log.Printf("Skipping %s: does not authenticate under the old key: %v", locator, err)
				record(func() {
					summary.Skipped++
					summary.SkipNames = append(summary.SkipNames, locator)
				})
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				log.Printf("Failed to rekey %s: %v", locator, err)
				record(func() { summary.Failed++ })
			}
			return nil
		})
	}
	return summary, g.Wait()
}

func rekeyContainer(ctx context.Context, backend storage.Backend, oldCodec, newCodec *encryption.Codec, locator string, dryRun bool) error {
	rc, err := backend.Read(ctx, locator)
	if err != nil {
		return err
	}
	defer rc.Close()

	plain, err := oldCodec.NewDecrypter(rc)
	if err != nil {
		return err
	}
	if dryRun {
		_, err := io.Copy(io.Discard, plain)
		return err
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := newCodec.Encrypt(ctx, pw, plain)
		pw.CloseWithError(err)
		done <- err
	}()

	writeErr := backend.Write(ctx, locator, pr)
	pr.Close()
	if err := <-done; err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return writeErr
}
