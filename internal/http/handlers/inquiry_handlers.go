package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/betonova/readymix-crm/internal/domain"
	"github.com/betonova/readymix-crm/internal/http/middleware"
	"github.com/betonova/readymix-crm/internal/http/response"
)

type inquiryListResponse struct {
	Inquiries []domain.Inquiry `json:"inquiries"`
	Loading   bool             `json:"loading"`
	Error     string           `json:"error,omitempty"`
}

// ListInquiries returns the session's live inquiry list, newest first.
// ?refresh=1 forces a one-shot re-fetch.
func (h *Handlers) ListInquiries(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)

	if r.URL.Query().Get("refresh") == "1" {
		if err := sess.Inquiries.Refresh(r.Context()); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	response.WriteJSON(w, http.StatusOK, inquiryListResponse{
		Inquiries: sess.Inquiries.All(),
		Loading:   sess.Inquiries.Loading(),
		Error:     sess.Inquiries.Err(),
	})
}

func (h *Handlers) UpdateInquiry(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)
	id := chi.URLParam(r, "id")

	var patch domain.InquiryPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if patch.Status != nil {
		if _, ok := domain.ParseInquiryStatus(string(*patch.Status)); !ok {
			response.BadRequest(w, "Invalid status value")
			return
		}
	}
	if patch.Priority != nil {
		if _, ok := domain.ParsePriority(string(*patch.Priority)); !ok {
			response.BadRequest(w, "Invalid priority value")
			return
		}
	}

	if err := sess.Inquiries.Update(r.Context(), id, patch); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteInquiry(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)
	id := chi.URLParam(r, "id")

	if err := sess.Inquiries.Remove(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StreamInquiries pushes the inquiry list over SSE on every change.
func (h *Handlers) StreamInquiries(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)
	streamSnapshots(w, r, sess.Inquiries.Subscribe)
}
