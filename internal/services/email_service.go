package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"
)

// mailSender: то, что нужно от gomail.Dialer.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSendDeadline: gomail ограничивает только dial, чтение и запись без таймаута.
const SMTPSendDeadline = 25 * time.Second

type SMTPDispatcher struct {
	dialer   mailSender
	from     string
	ttl      time.Duration
	deadline time.Duration
}

func NewSMTPDispatcher(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string, codeTTL time.Duration) *SMTPDispatcher {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &SMTPDispatcher{
		dialer:   dialer,
		from:     fromEmail,
		ttl:      codeTTL,
		deadline: SMTPSendDeadline,
	}
}

func (s *SMTPDispatcher) Send(ctx context.Context, to, code string, kind ChallengeKind) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context failed")
	}
	msg := composeChallenge(kind, code, s.ttl)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	deadline := s.deadline
	if deadline <= 0 {
		deadline = SMTPSendDeadline
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// Буфер на 1: зависшая горутина не блокируется на записи после выхода из Send.
	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrapf(err, "failed to send %s verification email", kind)
		}
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "%s verification email not sent within deadline", kind)
	}
}
