package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math/rand/v2"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/jeajar/scruffy/pkg/loans"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var noticeTemplate = template.Must(template.ParseFS(templateFS, "templates/notice.html.tmpl"))

// SenderName is the display name of outgoing mail.
const SenderName = "Scruffy, the Janitor"

var quotes = []string{
	"Scruffy's gonna die the way he lived. *turns page*",
	"Life and death are a seamless continuum. Mh-hmm.",
	"Scruffy believes in this company. *sniff*",
	"Second.",
	"Mmm hmm.",
	"A greater tragedy my eyes have never beheld. Welp, into the turlet.",
	"My job? Toilets 'n boilers, boilers 'n toilets, plus that one boilin' toilet.",
}

// ErrNoRecipient is returned for a request without a requester address.
var ErrNoRecipient = errors.New("request has no requester email")

// Message is a rendered email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Bytes encodes the message as RFC 5322 text.
func (m Message) Bytes(now time.Time) []byte {
	var buf bytes.Buffer
	from := (&mail.Address{Name: SenderName, Address: m.From}).String()
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", m.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(m.HTML, "\n", "\r\n"))
	return buf.Bytes()
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// EmailNotifier implements loans.Notifier by email.
type EmailNotifier struct {
	sender Sender
	from   string
	quote  func() string
	logger *slog.Logger
}

// NewEmailNotifier creates a notifier sending from the given address.
func NewEmailNotifier(sender Sender, from string) *EmailNotifier {
	return &EmailNotifier{
		sender: sender,
		from:   from,
		quote:  func() string { return quotes[rand.IntN(len(quotes))] },
		logger: slog.Default().With("component", "notify"),
	}
}

type noticeData struct {
	Reminder  bool
	Title     string
	PosterURL string
	DaysLeft  int
	DeleteOn  string
	ExtendURL string
	Quote     string
}

// SendReminder implements loans.Notifier.
func (n *EmailNotifier) SendReminder(ctx context.Context, r loans.Reminder) error {
	data := noticeData{
		Reminder:  true,
		Title:     title(r.Request, r.Media),
		DaysLeft:  r.DaysLeft,
		DeleteOn:  r.DeleteOn.Format("Monday, January 2, 2006"),
		ExtendURL: r.ExtendURL,
	}
	if r.Media != nil {
		data.PosterURL = r.Media.PosterURL
	}
	return n.send(ctx, "send_reminder", r.Request, "Reminder: "+data.Title, data)
}

// SendDeletionNotice implements loans.Notifier.
func (n *EmailNotifier) SendDeletionNotice(ctx context.Context, d loans.DeletionNotice) error {
	data := noticeData{Title: title(d.Request, d.Media)}
	if d.Media != nil {
		data.PosterURL = d.Media.PosterURL
	}
	return n.send(ctx, "send_deletion_notice", d.Request, "Gone!: "+data.Title, data)
}

func (n *EmailNotifier) send(ctx context.Context, operation string, req *loans.Request, subject string, data noticeData) error {
	if req == nil || req.RequestedBy == "" {
		return ErrNoRecipient
	}
	data.Quote = n.quote()

	var body bytes.Buffer
	if err := noticeTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render notice: %w", err)
	}

	msg := Message{From: n.from, To: req.RequestedBy, Subject: subject, HTML: body.String()}
	if err := n.sender.Send(ctx, msg); err != nil {
		return loans.NewUnavailableError("smtp", operation, err)
	}

	n.logger.InfoContext(ctx, "notice sent",
		"operation", operation,
		"request", req.ExternalRequestID,
		"email", req.RequestedBy,
	)
	return nil
}

func title(req *loans.Request, media *loans.Media) string {
	if media != nil && media.Title != "" {
		return media.Title
	}
	if req != nil && req.Title != "" {
		return req.Title
	}
	if req != nil {
		return fmt.Sprintf("request %d", req.ExternalRequestID)
	}
	return "your request"
}
