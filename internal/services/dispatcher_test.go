package services

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	sendgridrest "github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"secureauth/internal/auth"
	"secureauth/internal/repositories"
)

func TestComposeChallenge(t *testing.T) {
	initial := composeChallenge(ChallengeInitial, "042917", 10*time.Minute)
	assert.Equal(t, "Verify Your Account - SecureAuth", initial.Subject)
	assert.Contains(t, initial.HTML, "Welcome to SecureAuth!")
	assert.Contains(t, initial.HTML, "042917")
	assert.Contains(t, initial.HTML, "expire in 10 minutes")
	assert.Contains(t, initial.Text, "042917")

	reissue := composeChallenge(ChallengeReissue, "123456", 10*time.Minute)
	assert.Equal(t, "New Verification Code - SecureAuth", reissue.Subject)
	assert.Contains(t, reissue.HTML, "Your new verification code is:")
}

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestSMTPDispatcher_Send(t *testing.T) {
	sender := &fakeSender{}
	d := &SMTPDispatcher{dialer: sender, from: "no-reply@secureauth.dev", ttl: 10 * time.Minute}

	require.NoError(t, d.Send(context.Background(), "a@x.com", "654321", ChallengeReissue))
	require.Len(t, sender.sent, 1)
	m := sender.sent[0]
	assert.Equal(t, []string{"no-reply@secureauth.dev"}, m.GetHeader("From"))
	assert.Equal(t, []string{"a@x.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"New Verification Code - SecureAuth"}, m.GetHeader("Subject"))
}

func TestSMTPDispatcher_Failure(t *testing.T) {
	d := &SMTPDispatcher{dialer: &fakeSender{err: errors.New("dial tcp: i/o timeout")}, from: "f@x.com"}
	err := d.Send(context.Background(), "a@x.com", "654321", ChallengeInitial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "i/o timeout")
}

func TestSMTPDispatcher_CanceledContext(t *testing.T) {
	sender := &fakeSender{}
	d := &SMTPDispatcher{dialer: sender, from: "f@x.com"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, d.Send(ctx, "a@x.com", "1", ChallengeInitial))
	assert.Empty(t, sender.sent)
}

// silentSMTP принимает соединения и никогда не шлёт приветствие 220.
func silentSMTP(t *testing.T) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var conns []net.Conn
	accepted := make(chan struct{})
	go func() {
		defer close(accepted)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-accepted
		for _, c := range conns {
			c.Close()
		}
	})

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return host, p
}

func TestSMTPDispatcher_StalledServerHitsDeadline(t *testing.T) {
	host, port := silentSMTP(t)
	d := NewSMTPDispatcher(host, port, "user", "pass", "f@x.com", 10*time.Minute)
	d.deadline = 300 * time.Millisecond

	start := time.Now()
	err := d.Send(context.Background(), "a@x.com", "123456", ChallengeInitial)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPDispatcher_StalledServerHonorsCallerContext(t *testing.T) {
	host, port := silentSMTP(t)
	d := NewSMTPDispatcher(host, port, "user", "pass", "f@x.com", 10*time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := d.Send(ctx, "a@x.com", "123456", ChallengeReissue)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRegister_StalledSMTPRollsBack(t *testing.T) {
	host, port := silentSMTP(t)
	d := NewSMTPDispatcher(host, port, "user", "pass", "f@x.com", 10*time.Minute)
	d.deadline = 300 * time.Millisecond

	repo := repositories.NewMemoryAccountRepository()
	tokens, err := auth.NewTokenIssuer("test-secret")
	require.NoError(t, err)
	svc := NewAuthService(repo, auth.NewPasswordHasher(4), auth.NewOTPGenerator(), tokens, d)

	_, err = svc.Register(context.Background(), "a@x.com", "Secret123")
	require.ErrorIs(t, err, ErrDeliveryFailed)

	_, err = repo.FindByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

type fakeSendGrid struct {
	got  *mail.SGMailV3
	resp *sendgridrest.Response
	err  error
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, m *mail.SGMailV3) (*sendgridrest.Response, error) {
	f.got = m
	return f.resp, f.err
}

func TestSendGridDispatcher(t *testing.T) {
	cases := []struct {
		name    string
		resp    *sendgridrest.Response
		err     error
		wantErr string
	}{
		{name: "accepted", resp: &sendgridrest.Response{StatusCode: http.StatusAccepted}},
		{name: "rejected", resp: &sendgridrest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, wantErr: "status 401"},
		{name: "server error", resp: &sendgridrest.Response{StatusCode: http.StatusBadGateway}, wantErr: "status 502"},
		{name: "transport", err: errors.New("context deadline exceeded"), wantErr: "deadline"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeSendGrid{resp: tc.resp, err: tc.err}
			d := &SendGridDispatcher{client: client, from: mail.NewEmail("SecureAuth", "f@x.com"), ttl: 10 * time.Minute}

			err := d.Send(context.Background(), "a@x.com", "777777", ChallengeInitial)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, client.got)
			assert.Equal(t, "Verify Your Account - SecureAuth", client.got.Subject)
			require.Len(t, client.got.Personalizations, 1)
			assert.Equal(t, "a@x.com", client.got.Personalizations[0].To[0].Address)
			var html string
			for _, c := range client.got.Content {
				if c.Type == "text/html" {
					html = c.Value
				}
			}
			assert.True(t, strings.Contains(html, "777777"))
		})
	}
}

func TestLogDispatcher(t *testing.T) {
	require.NoError(t, NewLogDispatcher().Send(context.Background(), "a@x.com", "123456", ChallengeInitial))
}
