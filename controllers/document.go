package controllers

import (
	"bufio"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
)

const downloadBufferSize = 64 * 1024

// DownloadDocument decrypts and streams one document attached to a submission.
func (sc *SubmissionController) DownloadDocument(c *gin.Context) {
	submissionID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid submission ID"})
		return
	}
	documentID, ok := parseIDParam(c, "document_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid document ID"})
		return
	}

	doc, rc, err := sc.repo.OpenDocument(c.Request.Context(), submissionID, documentID)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	// Authenticate the first chunk before any header goes out, so a corrupted
	// container still gets a proper error response.
	body := bufio.NewReaderSize(rc, downloadBufferSize)
	if _, err := body.Peek(1); err != nil && err != io.EOF {
		respondError(c, err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName})
	c.DataFromReader(http.StatusOK, doc.FileSize, doc.ContentType, body, map[string]string{
		"Content-Disposition":    disposition,
		"Content-Description":    "File Transfer",
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "no-store",
	})
}
