package mailer

import (
	"github.com/betonova/readymix-crm/pkg/logger"
)

// DevMailer logs mail instead of sending it.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev", nil
}

func (d *DevMailer) SendInquiryAlert(inbox, name, email, phone, message string) error {
	logger.Info("[DEV MAIL] New inquiry",
		"to", inbox,
		"from_name", name,
		"from_email", email,
		"phone", phone,
		"message", message,
	)
	return nil
}

var _ Service = (*DevMailer)(nil)
