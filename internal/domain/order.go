package domain

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled:
		return OrderStatus(s), true
	default:
		return "", false
	}
}

// Order is an admin-managed sales record, optionally derived from an inquiry.
// There is no public creation path for orders.
type Order struct {
	ID            string `json:"id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone,omitempty"`

	ProjectType  string  `json:"project_type"`
	Quantity     float64 `json:"quantity"` // cubic meters
	Area         string  `json:"area"`
	Location     string  `json:"location"`
	Requirements string  `json:"requirements"`

	DeliveryDate   *time.Time  `json:"delivery_date,omitempty"`
	EstimatedValue float64     `json:"estimated_value"`
	Status         OrderStatus `json:"status"`
	Priority       Priority    `json:"priority"`
	Notes          string      `json:"notes,omitempty"`
	AssignedTo     string      `json:"assigned_to,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderDraft carries the caller-supplied fields of a new order. Status,
// priority and timestamps are never taken from the caller.
type OrderDraft struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone,omitempty"`

	ProjectType  string  `json:"project_type"`
	Quantity     float64 `json:"quantity"`
	Area         string  `json:"area"`
	Location     string  `json:"location"`
	Requirements string  `json:"requirements"`

	DeliveryDate   *time.Time `json:"delivery_date,omitempty"`
	EstimatedValue float64    `json:"estimated_value"`
	Notes          string     `json:"notes,omitempty"`
	AssignedTo     string     `json:"assigned_to,omitempty"`
}

// OrderPatch is a partial update; nil fields are left untouched.
type OrderPatch struct {
	CustomerName  *string `json:"customer_name,omitempty"`
	CustomerEmail *string `json:"customer_email,omitempty"`
	CustomerPhone *string `json:"customer_phone,omitempty"`

	ProjectType  *string  `json:"project_type,omitempty"`
	Quantity     *float64 `json:"quantity,omitempty"`
	Area         *string  `json:"area,omitempty"`
	Location     *string  `json:"location,omitempty"`
	Requirements *string  `json:"requirements,omitempty"`

	DeliveryDate   *time.Time   `json:"delivery_date,omitempty"`
	EstimatedValue *float64     `json:"estimated_value,omitempty"`
	Status         *OrderStatus `json:"status,omitempty"`
	Priority       *Priority    `json:"priority,omitempty"`
	Notes          *string      `json:"notes,omitempty"`
	AssignedTo     *string      `json:"assigned_to,omitempty"`
}

func (p OrderPatch) Fields() map[string]any {
	out := map[string]any{}
	if p.CustomerName != nil {
		out["customer_name"] = *p.CustomerName
	}
	if p.CustomerEmail != nil {
		out["customer_email"] = *p.CustomerEmail
	}
	if p.CustomerPhone != nil {
		out["customer_phone"] = *p.CustomerPhone
	}
	if p.ProjectType != nil {
		out["project_type"] = *p.ProjectType
	}
	if p.Quantity != nil {
		out["quantity"] = *p.Quantity
	}
	if p.Area != nil {
		out["area"] = *p.Area
	}
	if p.Location != nil {
		out["location"] = *p.Location
	}
	if p.Requirements != nil {
		out["requirements"] = *p.Requirements
	}
	if p.DeliveryDate != nil {
		out["delivery_date"] = p.DeliveryDate.UTC().Format(time.RFC3339Nano)
	}
	if p.EstimatedValue != nil {
		out["estimated_value"] = *p.EstimatedValue
	}
	if p.Status != nil {
		out["status"] = string(*p.Status)
	}
	if p.Priority != nil {
		out["priority"] = string(*p.Priority)
	}
	if p.Notes != nil {
		out["notes"] = *p.Notes
	}
	if p.AssignedTo != nil {
		out["assigned_to"] = *p.AssignedTo
	}
	return out
}
