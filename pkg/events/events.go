package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/betonova/readymix-crm/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) (Unsubscribe, error)
	QueueSubscribe(subject, queue string, handler func(msg *Message)) (Unsubscribe, error)
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

// Unsubscribe detaches a subscription. Safe to call more than once.
type Unsubscribe func() error

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) (Unsubscribe, error) {
	sub, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return wrapUnsubscribe(sub), nil
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) (Unsubscribe, error) {
	sub, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return wrapUnsubscribe(sub), nil
}

func wrapUnsubscribe(sub *nats.Subscription) Unsubscribe {
	return func() error {
		if !sub.IsValid() {
			return nil
		}
		return sub.Unsubscribe()
	}
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects
const (
	// Document-store change notifications; suffixed with the collection name.
	DocsChangedPrefix = "docs.changed."

	// Back-office events
	InquiryReceived = "inquiry.received"
	OrderCreated    = "order.created"
	OrderUpdated    = "order.updated"
	OrderDeleted    = "order.deleted"
)

func DocsChanged(collection string) string {
	return DocsChangedPrefix + collection
}

// Event payloads
type DocsChangedEvent struct {
	Collection string    `json:"collection"`
	DocumentID string    `json:"document_id"`
	Op         string    `json:"op"` // create, update, delete
	OccurredAt time.Time `json:"occurred_at"`
}

type InquiryReceivedEvent struct {
	InquiryID  string    `json:"inquiry_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

type OrderEvent struct {
	OrderID       string    `json:"order_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}
