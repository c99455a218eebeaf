package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/betonova/readymix-crm/internal/domain"
	"github.com/betonova/readymix-crm/internal/http/response"
	"github.com/betonova/readymix-crm/pkg/events"
	"github.com/betonova/readymix-crm/pkg/logger"
)

// SubmitContact handles the public contact form. No session required.
func (h *Handlers) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var sub domain.InquirySubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	id, err := h.public.Inquiries.Submit(r.Context(), sub)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	event := events.InquiryReceivedEvent{
		InquiryID:  id,
		Name:       sub.Name,
		Email:      sub.Email,
		Phone:      sub.Phone,
		Message:    sub.Message,
		ReceivedAt: time.Now().UTC(),
	}
	if err := h.bus.Publish(r.Context(), events.InquiryReceived, event); err != nil {
		logger.ErrorContext(r.Context(), "Failed to publish inquiry event", "inquiry_id", id, "error", err)
	}

	response.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}
