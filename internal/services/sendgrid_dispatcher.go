package services

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	sendgridrest "github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendgridRequestDeadline = 25 * time.Second

func init() {
	sendgrid.DefaultClient = &sendgridrest.Client{HTTPClient: &http.Client{
		Timeout: sendgridRequestDeadline,
	}}
}

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*sendgridrest.Response, error)
}

type SendGridDispatcher struct {
	client sendgridClient
	from   *mail.Email
	ttl    time.Duration
}

func NewSendGridDispatcher(apiKey, fromEmail string, codeTTL time.Duration) *SendGridDispatcher {
	return &SendGridDispatcher{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("SecureAuth", fromEmail),
		ttl:    codeTTL,
	}
}

func (s *SendGridDispatcher) Send(ctx context.Context, to, code string, kind ChallengeKind) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context failed")
	}
	msg := composeChallenge(kind, code, s.ttl)

	email := mail.NewV3MailInit(s.from, msg.Subject, mail.NewEmail("", to),
		mail.NewContent("text/plain", msg.Text),
		mail.NewContent("text/html", msg.HTML),
	)
	response, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return errors.Wrap(err, "error sending email")
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("sendgrid rejected %s email: status %d: %v", kind, response.StatusCode, response.Body)
	}
	return nil
}
