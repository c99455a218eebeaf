package mailer

// Service sends transactional mail. Implementations: MailerSend, SMTP, Dev.
type Service interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendInquiryAlert(inbox, name, email, phone, message string) error
}
