package email

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strconv"

	"github.com/rs/zerolog"
)

// TemplateFields carries the values substituted into notification templates
type TemplateFields struct {
	StudentName   string
	ComponentName string
	Quantity      int
	Reason        string
	MentorName    string
}

// EmailService defines the interface for lending notifications. Every send
// succeeds or fails independently; callers never block a lifecycle commit
// on these results.
type EmailService interface {
	SendRequestReceived(toEmail string, fields TemplateFields) error
	SendRequestApproved(toEmail string, fields TemplateFields) error
	SendRequestRejected(toEmail string, fields TemplateFields) error
	SendRequestReturned(toEmail string, fields TemplateFields) error
	SendHTML(toEmail, subject, htmlBody string) error
}

// SMTPConfig holds configuration for the SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool
}

// EmailServiceImpl implements EmailService over SMTP
type EmailServiceImpl struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewEmailService creates a new EmailService
func NewEmailService(config SMTPConfig, logger zerolog.Logger) EmailService {
	return &EmailServiceImpl{
		config: config,
		logger: logger,
	}
}

// SendRequestReceived notifies a mentor that a new borrow request arrived
func (s *EmailServiceImpl) SendRequestReceived(toEmail string, fields TemplateFields) error {
	subject := "New Component Request Received"
	body := fmt.Sprintf(`
		<h2>New Component Request</h2>
		<p>A new component request has been submitted:</p>
		<ul>
			<li><strong>Student:</strong> %s</li>
			<li><strong>Component:</strong> %s</li>
			<li><strong>Quantity:</strong> %d</li>
			<li><strong>Reason:</strong> %s</li>
		</ul>
		<p>Please review and approve or reject the request in the dashboard.</p>
	`, fields.StudentName, fields.ComponentName, fields.Quantity, fields.Reason)

	return s.SendHTML(toEmail, subject, body)
}

// SendRequestApproved notifies a student that their request was approved
func (s *EmailServiceImpl) SendRequestApproved(toEmail string, fields TemplateFields) error {
	subject := "Your Component Request Has Been Approved"
	body := fmt.Sprintf(`
		<h2>Request Approved</h2>
		<p>Great news! Your component request has been approved by %s.</p>
		<ul>
			<li><strong>Component:</strong> %s</li>
			<li><strong>Quantity:</strong> %d</li>
		</ul>
		<p>Please pick up your component from the lab.</p>
	`, fields.MentorName, fields.ComponentName, fields.Quantity)

	return s.SendHTML(toEmail, subject, body)
}

// SendRequestRejected notifies a student that their request was rejected
func (s *EmailServiceImpl) SendRequestRejected(toEmail string, fields TemplateFields) error {
	subject := "Your Component Request Has Been Rejected"
	body := fmt.Sprintf(`
		<h2>Request Rejected</h2>
		<p>Unfortunately, your component request has been rejected by %s.</p>
		<ul>
			<li><strong>Component:</strong> %s</li>
			<li><strong>Quantity:</strong> %d</li>
		</ul>
		<p>Please contact the mentor for more information.</p>
	`, fields.MentorName, fields.ComponentName, fields.Quantity)

	return s.SendHTML(toEmail, subject, body)
}

// SendRequestReturned confirms a component return to the student
func (s *EmailServiceImpl) SendRequestReturned(toEmail string, fields TemplateFields) error {
	subject := "Component Return Confirmation"
	body := fmt.Sprintf(`
		<h2>Component Return Confirmed</h2>
		<p>Your component has been marked as returned:</p>
		<ul>
			<li><strong>Component:</strong> %s</li>
			<li><strong>Quantity:</strong> %d</li>
		</ul>
		<p>Thank you for returning the component on time.</p>
	`, fields.ComponentName, fields.Quantity)

	return s.SendHTML(toEmail, subject, body)
}

// SendHTML sends an HTML email
func (s *EmailServiceImpl) SendHTML(toEmail, subject, htmlBody string) error {
	// If credentials are not configured, log the email instead of sending.
	// Lets development environments run without an SMTP account.
	if s.config.Username == "" || s.config.Password == "" {
		s.logger.Warn().
			Str("toEmail", toEmail).
			Str("subject", subject).
			Msg("SMTP credentials not configured - email not sent")
		return nil
	}

	auth := smtp.PlainAuth(
		"",
		s.config.Username,
		s.config.Password,
		s.config.Host,
	)

	headers := make(map[string]string)
	headers["From"] = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	headers["To"] = toEmail
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	message := ""
	for key, value := range headers {
		message += fmt.Sprintf("%s: %s\r\n", key, value)
	}
	message += "\r\n" + htmlBody

	serverAddress := s.config.Host + ":" + strconv.Itoa(s.config.Port)

	if s.config.UseTLS {
		tlsConfig := &tls.Config{
			InsecureSkipVerify: true,
			ServerName:         s.config.Host,
		}

		conn, err := tls.Dial("tcp", serverAddress, tlsConfig)
		if err != nil {
			s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to connect to SMTP server")
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, s.config.Host)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to create SMTP client")
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
		defer client.Quit()

		if err = client.Auth(auth); err != nil {
			s.logger.Error().Err(err).Msg("SMTP authentication failed")
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}

		if err = client.Mail(s.config.FromEmail); err != nil {
			return fmt.Errorf("failed to set sender: %w", err)
		}
		if err = client.Rcpt(toEmail); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}

		w, err := client.Data()
		if err != nil {
			return fmt.Errorf("failed to get data writer: %w", err)
		}
		if _, err = w.Write([]byte(message)); err != nil {
			return fmt.Errorf("failed to write email message: %w", err)
		}
		if err = w.Close(); err != nil {
			return fmt.Errorf("failed to close data writer: %w", err)
		}

		return nil
	}

	err := smtp.SendMail(
		serverAddress,
		auth,
		s.config.FromEmail,
		[]string{toEmail},
		[]byte(message),
	)
	if err != nil {
		s.logger.Error().Err(err).Str("server", serverAddress).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
