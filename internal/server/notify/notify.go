// Package notify delivers account mail: an SMTP sender, a log-only sender
// for development, and an async dispatcher that keeps delivery off the
// request path.
package notify

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/comicvault/internal/logging"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier sends a message. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationMessage renders the account verification mail.
func VerificationMessage(to, username, link string) Message {
	return Message{
		To:      to,
		Subject: "Verify your account",
		Body:    fmt.Sprintf("Hello %s,\n\nPlease click this link to verify your account:\n%s\n\nThanks!", username, link),
	}
}

// LogNotifier writes messages to the logger instead of sending them.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.Info(ctx, "mail not sent (log notifier)", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
