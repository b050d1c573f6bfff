package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"os"
	"strings"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/ezyba/payment_api/dto"
	"github.com/ezyba/payment_api/shared"
)

type EmailService struct {
	context.DefaultService

	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string
	supportEmail string
	companyName  string

	notificationEmails []string

	templates map[string]*template.Template
}

const EMAIL_SVC = "email_svc"

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func (svc *EmailService) Configure(ctx *context.Context) error {
	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = os.Getenv("SMTP_PORT")
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")
	svc.fromEmail = os.Getenv("SENDER_EMAIL")
	svc.fromName = os.Getenv("SENDER_NAME")
	svc.supportEmail = os.Getenv("SUPPORT_EMAIL")
	svc.companyName = os.Getenv("COMPANY_NAME")

	if svc.smtpPort == "" {
		svc.smtpPort = "587"
	}
	if svc.fromName == "" {
		svc.fromName = "Ezyba"
	}
	if svc.companyName == "" {
		svc.companyName = "Ezyba"
	}

	for _, email := range strings.Split(os.Getenv("NOTIFICATION_EMAILS"), ",") {
		email = strings.TrimSpace(email)
		if email != "" {
			svc.notificationEmails = append(svc.notificationEmails, email)
		}
	}

	svc.templates = make(map[string]*template.Template)

	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	err := svc.loadTemplates()
	if err != nil {
		log.WithError(err).Error("Failed to load email templates")
		// Don't fail startup, just log the error
	}

	return nil
}

const paymentConfirmationHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Payment Confirmation - {{.CompanyName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #059669; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .details { background-color: white; padding: 15px; border-radius: 5px; margin: 15px 0; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Payment Confirmed</h1>
        </div>
        <div class="content">
            <h2>Hi {{.Name}},</h2>
            <p>Thank you! We received your payment. Here are the details:</p>
            <div class="details">
                <strong>Amount:</strong> {{.AmountDisplay}}<br>
                <strong>Type:</strong> {{.PaymentType}}<br>
                <strong>Reference:</strong> {{.PaymentID}}
            </div>
            <p>If anything looks wrong, contact us at <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a>.</p>
        </div>
        <div class="footer">
            <p>&copy; 2025 {{.CompanyName}}. All rights reserved.</p>
        </div>
    </div>
</body>
</html>
`

const paymentFailureHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Payment Issue - {{.CompanyName}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #DC2626; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Payment Could Not Be Completed</h1>
        </div>
        <div class="content">
            <h2>Hi {{.Name}},</h2>
            <p>Unfortunately your payment of {{.AmountDisplay}} could not be processed. No charge was made.</p>
            <p>You can try again at any time. If the problem persists, contact us at <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a>.</p>
        </div>
        <div class="footer">
            <p>&copy; 2025 {{.CompanyName}}. All rights reserved.</p>
        </div>
    </div>
</body>
</html>
`

type paymentEmailData struct {
	CompanyName   string
	Name          string
	AmountDisplay string
	PaymentType   string
	PaymentID     string
	SupportEmail  string
}

func (svc *EmailService) loadTemplates() error {
	var err error

	svc.templates["payment_confirmation"], err = template.New("payment_confirmation").Parse(paymentConfirmationHTML)
	if err != nil {
		return fmt.Errorf("failed to parse payment confirmation template: %v", err)
	}

	svc.templates["payment_failure"], err = template.New("payment_failure").Parse(paymentFailureHTML)
	if err != nil {
		return fmt.Errorf("failed to parse payment failure template: %v", err)
	}

	return nil
}

// SendPaymentConfirmation notifies the customer and the configured admin
// list about a payment attempt. Failures here never fail the payment.
func (svc *EmailService) SendPaymentConfirmation(req dto.PaymentRequest, paymentID string, success bool) error {
	if svc.smtpHost == "" {
		log.Warn("SMTP not configured, skipping payment email")
		return nil
	}

	data := paymentEmailData{
		CompanyName:   svc.companyName,
		Name:          req.Name,
		AmountDisplay: formatAmount(req.Amount, req.Currency),
		PaymentType:   req.PaymentType,
		PaymentID:     paymentID,
		SupportEmail:  svc.supportEmail,
	}

	templateName := "payment_confirmation"
	subject := fmt.Sprintf("Payment Confirmation - %s", svc.companyName)
	if !success {
		templateName = "payment_failure"
		subject = fmt.Sprintf("Payment Issue - %s", svc.companyName)
	}

	if err := svc.sendTemplateEmail(req.Email, subject, templateName, data); err != nil {
		return err
	}

	svc.notifyAdmins(req, paymentID, success)
	return nil
}

func (svc *EmailService) notifyAdmins(req dto.PaymentRequest, paymentID string, success bool) {
	if len(svc.notificationEmails) == 0 {
		return
	}

	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}

	body := fmt.Sprintf("Payment %s\nCustomer: %s <%s>\nAmount: %s\nType: %s\nReference: %s\n",
		status, req.Name, req.Email, formatAmount(req.Amount, req.Currency), req.PaymentType, paymentID)

	subject := fmt.Sprintf("[%s] Payment %s - %s", svc.companyName, status, req.Email)
	for _, admin := range svc.notificationEmails {
		if err := svc.SendPlainEmail(admin, subject, body); err != nil {
			log.WithError(err).WithField("to", admin).Error("Failed to send admin notification")
		}
	}
}

func formatAmount(minorUnits int64, currency string) string {
	symbol := "$"
	if currency == shared.CurrencyBRL {
		symbol = "R$"
	}
	return fmt.Sprintf("%s%.2f %s", symbol, float64(minorUnits)/100, strings.ToUpper(currency))
}

func (svc *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	tmpl, exists := svc.templates[templateName]
	if !exists {
		return fmt.Errorf("template %s not found", templateName)
	}

	var body bytes.Buffer
	err := tmpl.Execute(&body, data)
	if err != nil {
		return fmt.Errorf("failed to execute template: %v", err)
	}

	return svc.sendEmail(to, subject, body.String())
}

func (svc *EmailService) sendEmail(to, subject, body string) error {
	if svc.smtpHost == "" {
		return fmt.Errorf("SMTP not configured")
	}

	auth := smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		svc.fromName, svc.fromEmail, to, subject, body))

	err := smtp.SendMail(
		svc.smtpHost+":"+svc.smtpPort,
		auth,
		svc.fromEmail,
		[]string{to},
		msg,
	)

	if err != nil {
		log.WithError(err).WithFields(log.Fields{"to": to, "subject": subject}).Error("Failed to send email")
		return fmt.Errorf("failed to send email: %v", err)
	}

	log.WithFields(log.Fields{"to": to, "subject": subject}).Info("Email sent successfully")
	return nil
}

func (svc *EmailService) SendPlainEmail(to, subject, body string) error {
	if svc.smtpHost == "" {
		log.Warn("SMTP not configured, skipping email")
		return nil
	}

	auth := smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		svc.fromName, svc.fromEmail, to, subject, body))

	err := smtp.SendMail(
		svc.smtpHost+":"+svc.smtpPort,
		auth,
		svc.fromEmail,
		[]string{to},
		msg,
	)

	if err != nil {
		log.WithError(err).WithFields(log.Fields{"to": to, "subject": subject}).Error("Failed to send plain email")
		return fmt.Errorf("failed to send email: %v", err)
	}

	return nil
}
