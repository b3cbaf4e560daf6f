package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/shopmanager/shopmanager/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, msg SendEmailPayload) error
}

// SMTPConfig holds relay settings. Username empty disables auth.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends plain-text mail through an SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer constructs SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send implements Mailer.
func (m *SMTPMailer) Send(_ context.Context, msg SendEmailPayload) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("jobs: smtp host not configured")
	}
	addr := net.JoinHostPort(m.cfg.Host, fmt.Sprint(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	return m.send(addr, auth, m.cfg.From, []string{msg.To}, m.compose(msg))
}

func (m *SMTPMailer) compose(msg SendEmailPayload) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.cfg.From + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// MailJob processes TaskTypeSendEmail tasks.
type MailJob struct {
	mailer  Mailer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewMailJob constructs MailJob. metrics may be nil.
func NewMailJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *MailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailJob{mailer: mailer, logger: logger, metrics: metrics}
}

// Handle decodes and sends one mail. Malformed payloads are not retried.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskTypeSendEmail)
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Error("mail payload decode", slog.Any("error", err))
		return tracker.End(fmt.Errorf("decode mail payload: %v: %w", err, asynq.SkipRetry))
	}
	if payload.To == "" {
		return tracker.End(fmt.Errorf("mail recipient missing: %w", asynq.SkipRetry))
	}
	if err := j.mailer.Send(ctx, payload); err != nil {
		j.logger.Warn("mail send failed", slog.String("to", payload.To), slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("mail sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return tracker.End(nil)
}
