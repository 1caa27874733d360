package ports

import "context"

// Mailer delivers notification emails. The concrete provider is chosen once at
// startup from configuration.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
