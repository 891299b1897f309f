package auth

import (
	"context"
	"net/url"
	"strings"
)

// LogNotifier is the default Notifier. It logs the account links instead
// of delivering them.
type LogNotifier struct {
	baseURL string
	logger  Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier builds links against frontendURL
func NewLogNotifier(frontendURL string, logger Logger) *LogNotifier {
	return &LogNotifier{
		baseURL: strings.TrimRight(frontendURL, "/"),
		logger:  normalizeLogger(logger),
	}
}

// VerificationLink returns the link a user follows to verify their email
func (n *LogNotifier) VerificationLink(token string) string {
	return n.baseURL + "/verify-email?token=" + url.QueryEscape(token)
}

// ResetLink returns the link a user follows to reset their password
func (n *LogNotifier) ResetLink(token string) string {
	return n.baseURL + "/reset-password?token=" + url.QueryEscape(token)
}

func (n *LogNotifier) SendVerificationEmail(ctx context.Context, email, username, token string) error {
	n.logger.Info("sending verification email", "to", email, "username", username, "link", n.VerificationLink(token))
	return nil
}

func (n *LogNotifier) SendPasswordResetEmail(ctx context.Context, email, username, token string) error {
	n.logger.Info("sending password reset email", "to", email, "username", username, "link", n.ResetLink(token))
	return nil
}
