package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"ppmkconnect-core/internal/domain"
	"ppmkconnect-core/internal/logger"
)

// SendGridNotifier delivers notifications by email. Notifications
// without a recipient email are skipped.
type SendGridNotifier struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewSendGridNotifier(apiKey, fromEmail, fromName string) *SendGridNotifier {
	return &SendGridNotifier{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (n *SendGridNotifier) Notify(ctx context.Context, note domain.Notification) {
	if note.RecipientEmail == "" {
		return
	}
	from := mail.NewEmail(n.fromName, n.fromEmail)
	recipient := mail.NewEmail("", note.RecipientEmail)
	htmlContent := fmt.Sprintf("<p>%s</p>", note.Message)
	message := mail.NewSingleEmail(from, note.Title, recipient, note.Message, htmlContent)

	client := sendgrid.NewSendClient(n.apiKey)
	response, err := client.Send(message)
	if err != nil {
		logger.Error("failed to send notification email", "recipient", note.RecipientEmail, "error", err)
		return
	}
	if response.StatusCode >= 400 {
		logger.Error("sendgrid rejected notification email", "recipient", note.RecipientEmail, "status", response.StatusCode)
	}
}
