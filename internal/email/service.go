package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/clinicq/queue-api/internal/model"
	"github.com/clinicq/queue-api/pkg/logger"
)

// Config holds SMTP settings for outbound mail.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Service sends patient-facing email. Only patients who gave an address at
// booking time get mail; everyone else relies on the live queue view.
type Service interface {
	SendDelayNotice(notice *model.DelayNotice) error
	Send(to, subject, body string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewService(cfg Config, l *logger.Logger) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: l,
	}
}

func (s *smtpService) SendDelayNotice(notice *model.DelayNotice) error {
	if notice.PatientEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Update on your visit to %s", notice.DoctorName)
	body := fmt.Sprintf(
		"Hello %s,<br><br>%s has not arrived at the clinic yet. "+
			"Your token <b>%s</b> is still valid and your place in the queue is unchanged. "+
			"We will keep you posted.<br><br>Thank you for your patience.",
		notice.PatientName, notice.DoctorName, notice.TokenNumber)

	return s.Send(notice.PatientEmail, subject, body)
}

func (s *smtpService) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	if s.logger != nil {
		s.logger.Info("email sent", "to", to, "subject", subject)
	}
	return nil
}
