// Package api exposes the order engine over a thin JSON HTTP surface. It
// only decodes requests, delegates to the domain services, and maps typed
// domain errors to status codes; no business logic lives here.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/dinehall/orderd/internal/domain/catalog"
	"github.com/dinehall/orderd/internal/domain/order"
	"github.com/dinehall/orderd/internal/domain/table"
)

// Handler holds the domain services the HTTP surface delegates to.
type Handler struct {
	orders  *order.Service
	queries *order.Queries
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders *order.Service, queries *order.Queries) *Handler {
	return &Handler{orders: orders, queries: queries}
}

// Register wires all API routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("POST /api/public/orders", h.createCustomerOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", h.updateStatus)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("GET /api/orders/number/{number}", h.getOrderByNumber)
	mux.HandleFunc("GET /api/kitchen/orders", h.kitchenOrders)
	mux.HandleFunc("GET /api/stats", h.stats)
}

// errorBody is the uniform error response shape.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Code: code, Message: msg})
}

// writeError maps typed domain errors to HTTP status codes. Unknown errors
// are logged and answered with an opaque 500: internal storage error text is
// never leaked to callers.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tableNotFound *table.NotFoundError
		tableBusy     *table.UnavailableError
		itemGone      *catalog.MenuItemUnavailableError
		badModifier   *catalog.InvalidModifierError
		badQuantity   *catalog.InvalidQuantityError
		badTransition *order.InvalidTransitionError
		badAmount     *order.InvalidAmountError
	)

	switch {
	case errors.As(err, &tableNotFound), errors.Is(err, order.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrEmptyItems):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &itemGone), errors.As(err, &badModifier),
		errors.As(err, &badQuantity), errors.As(err, &badAmount):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &tableBusy), errors.As(err, &badTransition),
		errors.Is(err, order.ErrNumberAllocation):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
