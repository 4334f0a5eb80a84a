package services

import (
	"fmt"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailService struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	appURL    string
}

func NewEmailService() *EmailService {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	fromEmail := os.Getenv("SENDGRID_NOTIFICATIONS_FROM_EMAIL")
	fromName := os.Getenv("SENDGRID_FROM_NAME")
	appURL := os.Getenv("APP_URL")

	client := sendgrid.NewSendClient(apiKey)

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		fromName:  fromName,
		appURL:    appURL,
	}
}

// SendNotificationEmail delivers a notification by email
func (s *EmailService) SendNotificationEmail(toEmail, toName, title, message string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)

	plainContent := message
	htmlContent := fmt.Sprintf("<p>%s</p><p><a href=\"%s/notifications\">View your notifications</a></p>", message, s.appURL)

	msg := mail.NewSingleEmail(from, title, to, plainContent, htmlContent)
	response, err := s.client.Send(msg)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email to %s: %d", toEmail, response.StatusCode)
	}
	return nil
}

// SendWelcomeEmail greets a newly registered user
func (s *EmailService) SendWelcomeEmail(toEmail, username string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(username, toEmail)
	subject := "Welcome to NetTrack"
	plainContent := fmt.Sprintf("Hello %s, your account is ready. Add your first testnet and we'll keep track of the deadlines for you.", username)
	htmlContent := fmt.Sprintf("<p>Hello %s,</p><p>Your account is ready. Add your first testnet and we'll keep track of the deadlines for you.</p>", username)

	msg := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	_, err := s.client.Send(msg)
	return err
}

// SendPasswordResetEmail sends the single-use reset link
func (s *EmailService) SendPasswordResetEmail(toEmail, username, token string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(username, toEmail)
	subject := "Reset your NetTrack password"
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, token)

	plainContent := fmt.Sprintf("Hello %s, a password reset was requested for your account. Use this link within one hour: %s. If you didn't request it, ignore this email.", username, resetURL)
	htmlContent := fmt.Sprintf("<p>Hello %s,</p><p>A password reset was requested for your account. The link below is valid for one hour:</p><p><a href=\"%s\">Reset password</a></p><p>If you didn't request it, ignore this email.</p>", username, resetURL)

	msg := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	response, err := s.client.Send(msg)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send email to %s: %d", toEmail, response.StatusCode)
	}
	return nil
}
