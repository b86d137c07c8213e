package services

import (
	"context"
	"fmt"
	"time"
)

// ChallengeKind выбирает тему и заголовок письма.
type ChallengeKind int

const (
	ChallengeInitial ChallengeKind = iota
	ChallengeReissue
)

func (k ChallengeKind) String() string {
	if k == ChallengeReissue {
		return "reissue"
	}
	return "initial"
}

// ChallengeDispatcher доставляет одноразовый код на почту.
type ChallengeDispatcher interface {
	Send(ctx context.Context, to, code string, kind ChallengeKind) error
}

type challengeMessage struct {
	Subject string
	HTML    string
	Text    string
}

func composeChallenge(kind ChallengeKind, code string, ttl time.Duration) challengeMessage {
	subject, heading, lead := "Verify Your Account - SecureAuth", "Welcome to SecureAuth!", "Your verification code is:"
	if kind == ChallengeReissue {
		subject, heading, lead = "New Verification Code - SecureAuth", "New Verification Code", "Your new verification code is:"
	}
	minutes := int(ttl / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	html := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<h2 style="color: #333; text-align: center;">%s</h2>
			<div style="background-color: #f9f9f9; border-radius: 5px; padding: 20px; margin: 20px 0;">
				<p style="font-size: 16px; color: #444;">%s</p>
				<h1 style="text-align: center; color: #007bff; letter-spacing: 5px; font-size: 32px; margin: 20px 0;">%s</h1>
				<p style="color: #666; font-size: 14px;">This code will expire in %d minutes.</p>
			</div>
			<p style="color: #888; font-size: 12px; text-align: center;">If you didn't request this code, please ignore this email.</p>
		</div>
	`, heading, lead, code, minutes)

	text := fmt.Sprintf("%s\n\n%s %s\nThis code will expire in %d minutes.\n", heading, lead, code, minutes)
	return challengeMessage{Subject: subject, HTML: html, Text: text}
}
