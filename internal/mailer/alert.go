package mailer

import (
	"fmt"
	"html"
	"strings"
)

func inquiryAlertBody(name, email, phone, message string) (subject, text, htmlBody string) {
	subject = fmt.Sprintf("New inquiry from %s", name)

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nEmail: %s\n", name, email)
	if phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", phone)
	}
	fmt.Fprintf(&b, "\n%s\n", message)
	text = b.String()

	htmlBody = fmt.Sprintf(
		`<p><b>%s</b> &lt;%s&gt; %s</p><blockquote>%s</blockquote>`,
		html.EscapeString(name),
		html.EscapeString(email),
		html.EscapeString(phone),
		html.EscapeString(message),
	)
	return subject, text, htmlBody
}
