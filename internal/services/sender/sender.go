// Package sender формирует и отправляет письма об оплате счетов.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/lib/smtp"
	"github.com/magabrotheeeer/saas-billing/internal/metrics"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Service отправляет письма через SMTP транспорт.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// SendBillingNotification разбирает уведомление из очереди и отправляет письмо получателю.
func (s *Service) SendBillingNotification(body []byte) error {
	const op = "sender.SendBillingNotification"
	log := s.log.With(sl.Op(op))

	var n models.BillingNotification
	if err := json.Unmarshal(body, &n); err != nil {
		log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if n.Email == "" {
		return fmt.Errorf("%s: notification %s has no recipient", op, n.InvoiceID)
	}

	subject, text, err := compose(n)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err = s.sendEmail([]string{n.Email}, subject, text)
	metrics.NotificationsTotal.WithLabelValues("sent", metrics.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("billing notification sent", slog.String("kind", n.Kind), slog.String("invoice_id", n.InvoiceID))
	return nil
}

func compose(n models.BillingNotification) (string, string, error) {
	amount := formatAmount(n.AmountCents, n.Currency)
	var subject, text string
	switch n.Kind {
	case models.NotificationPaymentSucceeded:
		subject = "Оплата подписки прошла успешно"
		text = fmt.Sprintf("Здравствуйте!\n\nМы получили оплату по счёту %s на сумму %s.\nСпасибо, что остаётесь с нами.", n.InvoiceID, amount)
	case models.NotificationPaymentFailed:
		subject = "Не удалось оплатить подписку"
		text = fmt.Sprintf("Здравствуйте!\n\nОплата по счёту %s на сумму %s не прошла.\nПожалуйста, обновите способ оплаты, чтобы сохранить доступ.", n.InvoiceID, amount)
	default:
		return "", "", fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	if n.HostedInvoiceURL != "" {
		text += "\n\nСчёт: " + n.HostedInvoiceURL
	}
	return subject, text, nil
}

func formatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.GetSMTPUser()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	return nil
}
