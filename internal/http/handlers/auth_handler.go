package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/betonova/readymix-crm/internal/app"
	"github.com/betonova/readymix-crm/internal/domain"
	"github.com/betonova/readymix-crm/internal/http/middleware"
	"github.com/betonova/readymix-crm/internal/http/response"
	"github.com/betonova/readymix-crm/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string           `json:"token"`
	User  *domain.Identity `json:"user"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	token, identity, err := h.registry.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, app.ErrInvalidLogin) {
		response.Unauthorized(w, "invalid email or password")
		return
	}
	if err != nil {
		var fault *store.BackendFault
		if errors.As(err, &fault) {
			response.BackendFault(w, fault.Error())
			return
		}
		response.InternalError(w, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, loginResponse{Token: token, User: identity})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.Logout(r.Context(), middleware.Token(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)
	identity := sess.Auth.Identity()
	if identity == nil {
		response.Unauthorized(w, "signed out")
		return
	}
	response.WriteJSON(w, http.StatusOK, identity)
}
