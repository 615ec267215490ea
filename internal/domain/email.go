package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// SelectionSummaryEmailData holds data for the organizer's selection outcome email.
type SelectionSummaryEmailData struct {
	Email         string
	EventTitle    string
	EventID       string
	Selected      int
	Capacity      int
	WaitlistLeft  int
	RespondBy     string // formatted expiry of the first-round invitations
	IsReplacement bool
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendSelectionSummary(ctx context.Context, data *SelectionSummaryEmailData) error
}
