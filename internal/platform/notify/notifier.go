package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// RecipientSource supplies the current broadcast list. The identity
// service implements it with the active accounts that have an address.
type RecipientSource interface {
	EmailRecipients(ctx context.Context) ([]string, error)
}

// Notifier broadcasts a notification mail to all staff. It appends the
// system URL footer so every mail links back to the calendar.
type Notifier struct {
	sender     Sender
	recipients RecipientSource
	systemURL  string
	logger     zerolog.Logger
}

func NewNotifier(sender Sender, recipients RecipientSource, systemURL string, logger zerolog.Logger) *Notifier {
	return &Notifier{
		sender:     sender,
		recipients: recipients,
		systemURL:  systemURL,
		logger:     logger,
	}
}

// Notify sends the message to every staff address. Errors are logged, not
// returned: notification must never fail the mutation that triggered it.
func (n *Notifier) Notify(ctx context.Context, subject, text, html string) {
	to, err := n.recipients.EmailRecipients(ctx)
	if err != nil {
		n.logger.Error().Err(err).Msg("resolve mail recipients")
		return
	}
	if len(to) == 0 {
		n.logger.Debug().Str("subject", subject).Msg("no mail recipients")
		return
	}

	if n.systemURL != "" {
		text += "\n\nSystem URL: " + n.systemURL
		html += `<p>System URL: <a href="` + n.systemURL + `">` + n.systemURL + `</a></p>`
	}

	if err := n.sender.Send(ctx, to, subject, text, html); err != nil {
		n.logger.Error().Err(err).Str("subject", subject).Msg("mail delivery failed")
		return
	}
	n.logger.Info().Str("subject", subject).Int("recipients", len(to)).Msg("notification mail sent")
}
