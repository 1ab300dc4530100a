package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"strings"
	"time"

	mail "github.com/go-mail/mail/v2"

	"github.com/majibrin/birinbolawa/internal/config"
	"github.com/majibrin/birinbolawa/internal/models"
)

const defaultTimeout = 30 * time.Second

// sender is the part of *mail.Dialer the notifier uses
type sender interface {
	DialAndSend(m ...*mail.Message) error
}

// MailNotifier emails the heritage committee
type MailNotifier struct {
	sender    sender
	from      string
	to        []string
	reviewURL string
}

// NewMailNotifier builds a notifier from SMTP settings. reviewURL is linked
// from every message so committee members land on the dashboard.
func NewMailNotifier(cfg config.MailConfig, reviewURL string) *MailNotifier {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	// DialAndSend takes no context, so the dialer timeout bounds each SMTP exchange
	d.Timeout = cfg.Timeout
	if d.Timeout <= 0 {
		d.Timeout = defaultTimeout
	}
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}

	return &MailNotifier{
		sender:    d,
		from:      cfg.From,
		to:        cfg.CommitteeEmails,
		reviewURL: reviewURL,
	}
}

// SubmissionReceived announces a new pending submission
func (n *MailNotifier) SubmissionReceived(ctx context.Context, submission *models.Submission) error {
	subject, body := n.submissionReceivedMessage(submission)
	return n.send(ctx, subject, body)
}

func (n *MailNotifier) submissionReceivedMessage(submission *models.Submission) (string, string) {
	subject := fmt.Sprintf("New heritage submission: %s", submission.Title)

	var body strings.Builder
	body.WriteString("<p>A new submission is waiting for review.</p><ul>")
	fmt.Fprintf(&body, "<li><b>Title:</b> %s</li>", html.EscapeString(submission.Title))
	fmt.Fprintf(&body, "<li><b>Category:</b> %s</li>", html.EscapeString(strings.ReplaceAll(string(submission.Category), "_", " ")))
	fmt.Fprintf(&body, "<li><b>Contributor:</b> %s</li>", html.EscapeString(submission.ContributorName))
	fmt.Fprintf(&body, "<li><b>Reference:</b> %s</li>", html.EscapeString(submission.ReferenceCode))
	fmt.Fprintf(&body, "<li><b>Attachments:</b> %d</li>", len(submission.MediaURLs))
	body.WriteString("</ul>")
	n.writeLink(&body)

	return subject, body.String()
}

// PendingDigest reminds the committee how many submissions still wait
func (n *MailNotifier) PendingDigest(ctx context.Context, pending int64) error {
	subject := fmt.Sprintf("%d heritage submission(s) awaiting review", pending)

	var body strings.Builder
	fmt.Fprintf(&body, "<p>There are <b>%d</b> submissions pending review.</p>", pending)
	n.writeLink(&body)

	return n.send(ctx, subject, body.String())
}

func (n *MailNotifier) writeLink(body *strings.Builder) {
	if n.reviewURL == "" {
		return
	}
	fmt.Fprintf(body, `<p><a href="%s">Open the committee dashboard</a></p>`, html.EscapeString(n.reviewURL))
}

func (n *MailNotifier) send(ctx context.Context, subject, htmlBody string) error {
	if len(n.to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
