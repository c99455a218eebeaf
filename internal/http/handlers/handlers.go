package handlers

import (
	"errors"
	"net/http"

	"github.com/betonova/readymix-crm/internal/app"
	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/internal/http/response"
	"github.com/betonova/readymix-crm/internal/payments"
	"github.com/betonova/readymix-crm/internal/store"
	"github.com/betonova/readymix-crm/pkg/events"
)

type Handlers struct {
	registry *app.Registry
	public   *app.Session
	bus      events.Publisher
	payments *payments.Client
}

func New(registry *app.Registry, public *app.Session, bus events.Publisher, pay *payments.Client) *Handlers {
	return &Handlers{
		registry: registry,
		public:   public,
		bus:      bus,
		payments: pay,
	}
}

// writeStoreError maps the store error taxonomy onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	var validation *store.ValidationError
	if errors.As(err, &validation) {
		response.BadRequest(w, validation.Error())
		return
	}

	var authRequired *store.AuthRequiredError
	if errors.As(err, &authRequired) {
		response.Unauthorized(w, authRequired.Error())
		return
	}

	if errors.Is(err, backend.ErrNotFound) {
		response.NotFound(w, "not found")
		return
	}

	var fault *store.BackendFault
	if errors.As(err, &fault) {
		response.BackendFault(w, fault.Error())
		return
	}

	response.InternalError(w, err.Error())
}
