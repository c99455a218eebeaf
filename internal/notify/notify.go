package notify

import (
	"encoding/json"

	"github.com/betonova/readymix-crm/internal/mailer"
	"github.com/betonova/readymix-crm/pkg/events"
	"github.com/betonova/readymix-crm/pkg/logger"
)

// Notifier mails the sales inbox about new inquiries. It consumes the event
// bus on a queue group so only one replica sends each alert.
type Notifier struct {
	mail  mailer.Service
	inbox string
	unsub events.Unsubscribe
}

func Start(bus events.Subscriber, mail mailer.Service, inbox string) (*Notifier, error) {
	n := &Notifier{mail: mail, inbox: inbox}

	unsub, err := bus.QueueSubscribe(events.InquiryReceived, "notify", n.handleInquiry)
	if err != nil {
		return nil, err
	}
	n.unsub = unsub
	return n, nil
}

func (n *Notifier) handleInquiry(msg *events.Message) {
	var ev events.InquiryReceivedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("Discarding malformed inquiry event", "error", err)
		return
	}

	if err := n.mail.SendInquiryAlert(n.inbox, ev.Name, ev.Email, ev.Phone, ev.Message); err != nil {
		logger.Error("Failed to send inquiry alert", "inquiry_id", ev.InquiryID, "error", err)
		return
	}
	logger.Info("Inquiry alert sent", "inquiry_id", ev.InquiryID, "inbox", n.inbox)
}

func (n *Notifier) Close() error {
	if n.unsub != nil {
		return n.unsub()
	}
	return nil
}
