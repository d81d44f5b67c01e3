package services

import (
	"fmt"
	"html"
	"log"
	"strings"

	"book-submission-api/config"
	"book-submission-api/models"
)

// MailNotifier emails reviewers about new submissions and submitters about decisions.
// Mail is sent on a separate goroutine; failures are only logged.
type MailNotifier struct {
	reviewers []string
	send      func(to []string, subject, html string) error
}

func NewMailNotifier(reviewers []string) *MailNotifier {
	return &MailNotifier{reviewers: reviewers, send: config.SendMail}
}

func (n *MailNotifier) SubmissionCreated(submission *models.Submission) {
	if len(n.reviewers) == 0 {
		return
	}
	subject := fmt.Sprintf("New book submission #%d: %s", submission.SubmissionID, submission.Title)
	n.deliver(n.reviewers, subject, submissionCreatedBody(submission))
}

func (n *MailNotifier) SubmissionReviewed(submission *models.Submission) {
	if submission.SubmitterEmail == "" {
		return
	}
	subject := fmt.Sprintf("Your submission \"%s\" was %s", submission.Title, strings.ToLower(string(submission.Status)))
	n.deliver([]string{submission.SubmitterEmail}, subject, submissionReviewedBody(submission))
}

func (n *MailNotifier) deliver(to []string, subject, body string) {
	go func() {
		if err := n.send(to, subject, body); err != nil {
			log.Printf("Warning: failed to send notification %q: %v", subject, err)
		}
	}()
}

func submissionCreatedBody(s *models.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>%s</strong> by %s is awaiting review.</p>",
		html.EscapeString(s.Title), html.EscapeString(s.Author))
	fmt.Fprintf(&b, "<p>Submitted by %s on %s.</p>",
		html.EscapeString(s.SubmittedBy), s.SubmittedDate.Format("2006-01-02 15:04"))
	if len(s.Documents) > 0 {
		b.WriteString("<ul>")
		for _, doc := range s.Documents {
			fmt.Fprintf(&b, "<li>%s (%.2f MB)</li>", html.EscapeString(doc.FileName), doc.GetFileSizeInMB())
		}
		b.WriteString("</ul>")
	}
	return b.String()
}

func submissionReviewedBody(s *models.Submission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Your submission <strong>%s</strong> was %s.</p>",
		html.EscapeString(s.Title), strings.ToLower(string(s.Status)))
	if review := s.LatestReview(); review != nil && review.Comments != nil {
		fmt.Fprintf(&b, "<p>Reviewer comments: %s</p>", html.EscapeString(*review.Comments))
	}
	return b.String()
}
