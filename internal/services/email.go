package services

import (
	"context"
	"fmt"

	"eventboard/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
}

func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer}
}

// SendRequestDecision renders the request_decision template set and mails
// the outcome to the requester.
func (s *emailService) SendRequestDecision(ctx context.Context, data *domain.RequestDecisionEmailData) error {
	if data == nil {
		return fmt.Errorf("request decision data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("request_decision", data)
	if err != nil {
		return fmt.Errorf("render request_decision template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send request decision email: %w", err)
	}
	return nil
}
