// Package mailer sends the application notification emails.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dharsanguruparan/TalentDesk/internal/formconfig"
	"github.com/dharsanguruparan/TalentDesk/internal/model"
)

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers through an SMTP relay using PLAIN auth when a username
// is configured.
type SMTPSender struct {
	addr string
	host string
	auth smtp.Auth
	from string
	send sendFunc
}

// NewSMTPSender builds a sender for host:port.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		host: host,
		auth: auth,
		from: from,
		send: smtp.SendMail,
	}
}

// Send implements Sender. net/smtp has no context support, so ctx is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("send %q: no recipients", msg.Subject)
	}
	for _, to := range msg.To {
		if strings.ContainsAny(to, "\r\n") {
			return fmt.Errorf("send %q: invalid recipient %q", msg.Subject, to)
		}
	}
	if err := s.send(s.addr, s.auth, s.from, msg.To, s.render(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) render(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", sanitizeHeader(s.from))
	fmt.Fprintf(&b, "To: %s\r\n", sanitizeHeader(strings.Join(msg.To, ", ")))
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.Bytes()
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// LogSender logs messages instead of sending them. It is used when no SMTP
// host is configured.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (l LogSender) Send(_ context.Context, msg Message) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("email not sent, smtp disabled", "to", msg.To, "subject", msg.Subject)
	return nil
}

var (
	adminNotice = template.Must(template.New("admin").Parse(`A new application was received for "{{.JobTitle}}".

Application: {{.ApplicationID}}
Received:    {{.AppliedAt}}
{{range .Fields}}
{{.Label}}: {{.Value}}{{end}}
`))
	candidateConfirmation = template.Must(template.New("candidate").Parse(`Hi {{.Name}},

Thank you for applying for "{{.JobTitle}}". Our team will review your application and get back to you.
`))
)

type noticeField struct {
	Label string
	Value string
}

// NewApplicationNotice renders the email sent to the agency inbox.
func NewApplicationNotice(to string, job *model.Job, app *model.Application) (Message, error) {
	fields := make([]noticeField, 0, len(app.Fields))
	for _, f := range formconfig.Fields {
		if v, ok := app.Fields[f.Key]; ok {
			fields = append(fields, noticeField{Label: f.Label, Value: v})
		}
	}
	var body bytes.Buffer
	err := adminNotice.Execute(&body, map[string]any{
		"JobTitle":      job.Title,
		"ApplicationID": app.ID,
		"AppliedAt":     app.AppliedAt.Format(time.RFC1123),
		"Fields":        fields,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render admin notice: %w", err)
	}
	return Message{
		To:      []string{to},
		Subject: "New application: " + job.Title,
		Body:    body.String(),
	}, nil
}

// CandidateConfirmation renders the acknowledgement sent to the candidate.
// It reports false when the application has no email address.
func CandidateConfirmation(job *model.Job, app *model.Application) (Message, bool, error) {
	email := app.Fields[formconfig.FieldEmail]
	if email == "" {
		return Message{}, false, nil
	}
	name := app.Fields[formconfig.FieldFullName]
	if name == "" {
		name = "there"
	}
	var body bytes.Buffer
	if err := candidateConfirmation.Execute(&body, map[string]string{"Name": name, "JobTitle": job.Title}); err != nil {
		return Message{}, false, fmt.Errorf("render confirmation: %w", err)
	}
	return Message{
		To:      []string{email},
		Subject: "We received your application for " + job.Title,
		Body:    body.String(),
	}, true, nil
}
