package domain

import "time"

type InquiryStatus string

const (
	InquiryNotContacted InquiryStatus = "not_contacted"
	InquiryContacted    InquiryStatus = "contacted"
	InquiryInProgress   InquiryStatus = "in_progress"
	InquiryCompleted    InquiryStatus = "completed"
)

func ParseInquiryStatus(s string) (InquiryStatus, bool) {
	switch InquiryStatus(s) {
	case InquiryNotContacted, InquiryContacted, InquiryInProgress, InquiryCompleted:
		return InquiryStatus(s), true
	default:
		return "", false
	}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), true
	default:
		return "", false
	}
}

// Inquiry is a customer message submitted through the public contact form.
type Inquiry struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Phone    string        `json:"phone,omitempty"`
	Message  string        `json:"message"`
	Status   InquiryStatus `json:"status"`
	Priority Priority      `json:"priority"`
	Notes    string        `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InquirySubmission carries the caller-supplied fields of a new inquiry.
// Status, priority and timestamps are never taken from the caller.
type InquirySubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
}

// InquiryPatch is a partial update; nil fields are left untouched.
type InquiryPatch struct {
	Name     *string        `json:"name,omitempty"`
	Email    *string        `json:"email,omitempty"`
	Phone    *string        `json:"phone,omitempty"`
	Message  *string        `json:"message,omitempty"`
	Status   *InquiryStatus `json:"status,omitempty"`
	Priority *Priority      `json:"priority,omitempty"`
	Notes    *string        `json:"notes,omitempty"`
}

// Fields renders the patch as document fields for a merge update.
func (p InquiryPatch) Fields() map[string]any {
	out := map[string]any{}
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.Email != nil {
		out["email"] = *p.Email
	}
	if p.Phone != nil {
		out["phone"] = *p.Phone
	}
	if p.Message != nil {
		out["message"] = *p.Message
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
	return out
}
