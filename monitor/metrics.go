package monitor

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DocumentsEncrypted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "book_submission_documents_encrypted_total",
		Help: "Documents encrypted and written to storage.",
	})
	DocumentBytesEncrypted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "book_submission_document_bytes_encrypted_total",
		Help: "Plaintext bytes encrypted.",
	})
	DocumentsDecrypted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "book_submission_documents_decrypted_total",
		Help: "Document containers opened for retrieval.",
	})
	DocumentIntegrityFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "book_submission_document_integrity_failures_total",
		Help: "Containers that failed authentication or were malformed.",
	})
	SubmissionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "book_submission_submissions_created_total",
		Help: "Submissions accepted.",
	})
	ReviewDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "book_submission_review_decisions_total",
		Help: "Review decisions appended to the ledger.",
	}, []string{"decision"})
)

// RegisterMetricsRoute exposes the default Prometheus registry at /metrics.
func RegisterMetricsRoute(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
