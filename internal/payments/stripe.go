package payments

import (
	"context"
	"errors"
	"fmt"
	"math"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/betonova/readymix-crm/internal/domain"
	"github.com/betonova/readymix-crm/pkg/config"
)

// ErrDisabled is returned when no Stripe key is configured.
var ErrDisabled = errors.New("payments disabled (missing STRIPE_SECRET_KEY)")

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"` // minor units
	Currency     string `json:"currency"`
}

// Client creates payment intents for orders. No webhooks or capture flow;
// the dashboard hands the client secret to the customer-facing checkout.
type Client struct {
	currency string
	enabled  bool
}

func NewClient(cfg config.StripeConfig) *Client {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &Client{
		currency: cfg.Currency,
		enabled:  cfg.SecretKey != "",
	}
}

// CreateOrderIntent opens a payment intent over the order's estimated value.
func (c *Client) CreateOrderIntent(ctx context.Context, order domain.Order) (*Intent, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}

	amount := int64(math.Round(order.EstimatedValue * 100))
	if amount <= 0 {
		return nil, fmt.Errorf("order %s has no estimated value", order.ID)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(c.currency),
	}
	params.Context = ctx
	params.AddMetadata("order_id", order.ID)
	params.AddMetadata("customer_email", order.CustomerEmail)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       amount,
		Currency:     c.currency,
	}, nil
}
