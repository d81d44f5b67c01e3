package services

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"book-submission-api/encryption"
	"book-submission-api/storage"

	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *encryption.Codec {
	t.Helper()
	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	codec, err := encryption.NewCodec(key)
	require.NoError(t, err)
	return codec
}

func newTestDocumentStore(t *testing.T) (*DocumentStore, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	return NewDocumentStore(backend, newTestCodec(t), nil), backend
}

func validInput(title string) SubmissionInput {
	return SubmissionInput{
		Title:          title,
		Author:         "Ada Writer",
		Category:       "Fiction",
		ISBN:           "978-0-00-000000-0",
		SubmittedBy:    "Ada Writer",
		SubmitterEmail: "ada@example.com",
	}
}

func textUpload(name, content string) DocumentUpload {
	return DocumentUpload{FileName: name, Content: strings.NewReader(content)}
}

// brokenReader yields data and then fails.
type brokenReader struct {
	data string
}

var errBrokenUpload = errors.New("client went away")

func (b *brokenReader) Read(p []byte) (int, error) {
	if b.data == "" {
		return 0, errBrokenUpload
	}
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

func readAllAndClose(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func readObject(t *testing.T, backend storage.Backend, locator string) []byte {
	t.Helper()
	rc, err := backend.Read(t.Context(), locator)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func putObject(t *testing.T, backend storage.Backend, locator string, data []byte) {
	t.Helper()
	require.NoError(t, backend.Write(t.Context(), locator, bytes.NewReader(data)))
}

func listObjects(t *testing.T, backend storage.Backend) []string {
	t.Helper()
	locators, err := backend.List(t.Context())
	require.NoError(t, err)
	return locators
}
