// Package email sends transactional mail through Resend. Services depend on
// the EmailSender interface, never on the Resend client.
package email

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v3"
)

type EmailSender interface {
	// SendPasswordReset mails a reset link carrying the plaintext token.
	SendPasswordReset(ctx context.Context, toEmail, token string) error
	// SendClaimInvitation tells the owner of an approved claim that an
	// account was created for them and links to the set-password page.
	SendClaimInvitation(ctx context.Context, toEmail, username, serverName, token string) error
}

type resendSender struct {
	client    *resend.Client
	fromEmail string
	appURL    string
}

func NewResendSender(apiKey, fromEmail, appURL string) EmailSender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    strings.TrimRight(appURL, "/"),
	}
}

var layout = template.Must(template.New("mail").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#111827;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="padding:40px 0;">
    <tr><td align="center">
      <table width="480" cellpadding="0" cellspacing="0" style="background-color:#1f2937;border-radius:8px;padding:40px;">
        <tr><td>
          <h2 style="color:#f9fafb;font-size:18px;margin:0 0 24px 0;">{{.Title}}</h2>
          <p style="color:#d1d5db;font-size:15px;line-height:1.6;margin:0 0 24px 0;">{{.Body}}</p>
          <p style="margin:0 0 24px 0;">
            <a href="{{.Link}}" style="background-color:#16a34a;border-radius:6px;padding:12px 32px;color:#ffffff;text-decoration:none;font-weight:600;">{{.Button}}</a>
          </p>
          <p style="color:#9ca3af;font-size:13px;line-height:1.6;margin:0;">{{.Footer}}</p>
          <p style="color:#6b7280;font-size:13px;word-break:break-all;">{{.Link}}</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

type mailContent struct {
	Title, Body, Button, Link, Footer string
}

func render(c mailContent) (string, error) {
	var b strings.Builder
	if err := layout.Execute(&b, c); err != nil {
		return "", fmt.Errorf("failed to render email: %w", err)
	}
	return b.String(), nil
}

func (s *resendSender) link(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.appURL, url.QueryEscape(token))
}

func (s *resendSender) send(ctx context.Context, to, subject string, c mailContent) error {
	html, err := render(c)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Server Directory <%s>", s.fromEmail),
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send %q email: %w", subject, err)
	}
	return nil
}

func (s *resendSender) SendPasswordReset(ctx context.Context, toEmail, token string) error {
	return s.send(ctx, toEmail, "Reset your password", mailContent{
		Title:  "Password reset request",
		Body:   "We received a request to reset your password. Use the button below to choose a new one.",
		Button: "Reset password",
		Link:   s.link(token),
		Footer: "This link expires in 20 minutes. If you did not ask for a reset you can ignore this email.",
	})
}

func (s *resendSender) SendClaimInvitation(ctx context.Context, toEmail, username, serverName, token string) error {
	return s.send(ctx, toEmail, "Your server claim was approved", mailContent{
		Title:  "Welcome, " + username,
		Body:   "Your claim for " + serverName + " was approved and an account was created for you. Set a password to start managing your listing.",
		Button: "Set password",
		Link:   s.link(token),
		Footer: "This link expires in 7 days.",
	})
}
