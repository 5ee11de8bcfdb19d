package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	"net/mail"
	"net/smtp"

	"github.com/Dosada05/tournament-engine/models"
)

// SMTPSettings - параметры почтового сервера.
type SMTPSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

var decisionTemplate = template.Must(template.New("decision").Parse(`<p>Здравствуйте, {{.DisplayName}}!</p>
{{if .Approved}}<p>Ваша заявка на турнир одобрена. Номер посева будет виден в сетке после старта.</p>
{{else}}<p>К сожалению, ваша заявка на турнир отклонена.</p>
{{end}}<p>Идентификатор заявки: {{.ParticipantID}}</p>
`))

// EmailNotifier отправляет решение по заявке письмом, если контакт участника - email.
// Остальные контакты передаются fallback.
type EmailNotifier struct {
	cfg      SMTPSettings
	fallback Notifier
	logger   *slog.Logger
	send     func(to, subject, body string) error
}

func NewEmailNotifier(cfg SMTPSettings, fallback Notifier, logger *slog.Logger) *EmailNotifier {
	n := &EmailNotifier{cfg: cfg, fallback: fallback, logger: logger}
	n.send = n.sendEmail
	return n
}

func (n *EmailNotifier) NotifyDecision(ctx context.Context, notice models.DecisionNotice) error {
	address, ok := emailAddress(notice.Contact)
	if !ok {
		if n.fallback != nil {
			return n.fallback.NotifyDecision(ctx, notice)
		}
		return nil
	}

	subject, body, err := renderDecision(notice)
	if err != nil {
		return err
	}
	if err := n.send(address, subject, body); err != nil {
		return fmt.Errorf("failed to email decision to %s: %w", address, err)
	}
	n.logger.InfoContext(ctx, "decision email sent",
		slog.String("participant_id", notice.ParticipantID.String()), slog.String("decision", string(notice.Decision)))
	return nil
}

func emailAddress(contact *string) (string, bool) {
	if contact == nil {
		return "", false
	}
	addr, err := mail.ParseAddress(*contact)
	if err != nil {
		return "", false
	}
	return addr.Address, true
}

func renderDecision(notice models.DecisionNotice) (string, string, error) {
	subject := "Заявка на турнир отклонена"
	if notice.Decision == models.DecisionApproved {
		subject = "Заявка на турнир одобрена"
	}

	data := struct {
		DisplayName   string
		ParticipantID string
		Approved      bool
	}{
		DisplayName:   notice.DisplayName,
		ParticipantID: notice.ParticipantID.String(),
		Approved:      notice.Decision == models.DecisionApproved,
	}
	var body bytes.Buffer
	if err := decisionTemplate.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("ошибка выполнения шаблона письма: %w", err)
	}
	return subject, body.String(), nil
}

func (n *EmailNotifier) sendEmail(to, subject, body string) error {
	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)

	msg := []byte("To: " + to + "\r\n" +
		"From: " + n.cfg.From + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	tlsconfig := &tls.Config{ServerName: n.cfg.Host}

	var client *smtp.Client
	if n.cfg.Port == 465 {
		// Прямое TLS-соединение
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("ошибка TLS соединения: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, n.cfg.Host)
		if err != nil {
			return fmt.Errorf("ошибка создания SMTP клиента: %w", err)
		}
	} else {
		// STARTTLS
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("ошибка соединения SMTP: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("ошибка команды STARTTLS: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("ошибка аутентификации SMTP: %w", err)
	}
	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("ошибка MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("ошибка RCPT TO: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("ошибка команды DATA: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("ошибка записи сообщения: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия DATA: %w", err)
	}
	return nil
}
