package services

import (
	"context"
	"fmt"
	"log"

	"eventease/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendSelectionSummary tells the organizer how a draw went, using the "selection_summary" template.
func (s *emailService) SendSelectionSummary(ctx context.Context, data *domain.SelectionSummaryEmailData) error {
	if data == nil {
		return fmt.Errorf("selection summary data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("selection_summary", data)
	if err != nil {
		return fmt.Errorf("failed to render selection_summary template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send selection summary email: %w", err)
	}
	log.Printf("[EMAIL] Selection summary for event %s sent to %s", data.EventID, data.Email)
	return nil
}
