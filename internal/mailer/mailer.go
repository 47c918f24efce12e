// Package mailer sends the daily reminder digest.
package mailer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dov85/Apartment/internal/config"
	"github.com/dov85/Apartment/internal/listing/domain"
	"github.com/dov85/Apartment/internal/platform/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Sender interface {
	Send(ctx context.Context, subject, bodyText string) error
}

type smtpSender struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
	logger *logger.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, log *logger.Logger) (Sender, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("SMTP host, port, sender and recipient must be configured")
	}
	return &smtpSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: log.Named("smtp"),
	}, nil
}

func (s *smtpSender) Send(ctx context.Context, subject, bodyText string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", strings.Split(s.cfg.To, ",")...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", bodyText)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		s.logger.Warn("Email sending cancelled", zap.String("subject", subject), zap.Error(ctx.Err()))
		return fmt.Errorf("email sending cancelled or timed out: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			s.logger.Error("Failed to send email", zap.String("subject", subject), zap.Error(err))
			return fmt.Errorf("failed to send email: %w", err)
		}
	}
	s.logger.Info("Email sent", zap.String("subject", subject))
	return nil
}

// WriterSender prints the message instead of mailing it.
type WriterSender struct {
	W io.Writer
}

func (w WriterSender) Send(_ context.Context, subject, bodyText string) error {
	_, err := fmt.Fprintf(w.W, "Subject: %s\n\n%s", subject, bodyText)
	return err
}

// SendReminderDigest sends one message listing every due reminder. Nothing
// is sent when no reminder is due.
func SendReminderDigest(ctx context.Context, s Sender, day time.Time, due []domain.Listing) (bool, error) {
	if len(due) == 0 {
		return false, nil
	}
	subject := fmt.Sprintf("Apartment reminders for %s (%d)", day.Format(time.DateOnly), len(due))
	if err := s.Send(ctx, subject, DigestBody(due)); err != nil {
		return false, err
	}
	return true, nil
}

func DigestBody(due []domain.Listing) string {
	var sb strings.Builder
	for _, l := range due {
		title := l.Title
		if title == "" {
			title = l.ID
		}
		fmt.Fprintf(&sb, "- %s", title)
		var addr []string
		for _, part := range []string{l.Address.Street, l.Address.City} {
			if part != "" {
				addr = append(addr, part)
			}
		}
		if len(addr) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(addr, ", "))
		}
		fmt.Fprintf(&sb, " [%s] due %s", l.Status, l.Reminder.Date)
		if l.Reminder.Note != "" {
			fmt.Fprintf(&sb, ": %s", l.Reminder.Note)
		}
		if l.Phone != "" {
			fmt.Fprintf(&sb, " tel. %s", l.Phone)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
