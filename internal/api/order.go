package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dinehall/orderd/internal/domain/catalog"
	"github.com/dinehall/orderd/internal/domain/order"
)

type lineRequest struct {
	MenuItemID  string   `json:"menu_item_id"`
	Quantity    int      `json:"quantity"`
	ModifierIDs []string `json:"modifier_ids,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

type createOrderRequest struct {
	RestaurantID string        `json:"restaurant_id"`
	TableID      string        `json:"table_id"`
	Items        []lineRequest `json:"items"`
	Notes        string        `json:"notes,omitempty"`
}

type createCustomerOrderRequest struct {
	TableCode string        `json:"table_code"`
	Items     []lineRequest `json:"items"`
	Notes     string        `json:"notes,omitempty"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

type lineModifierResponse struct {
	ModifierID string          `json:"modifier_id"`
	Price      decimal.Decimal `json:"price"`
}

type lineResponse struct {
	MenuItemID string                 `json:"menu_item_id"`
	Price      decimal.Decimal        `json:"price"`
	Quantity   int                    `json:"quantity"`
	Notes      string                 `json:"notes,omitempty"`
	Modifiers  []lineModifierResponse `json:"modifiers,omitempty"`
}

type orderResponse struct {
	ID            string          `json:"id"`
	Number        string          `json:"order_number"`
	RestaurantID  string          `json:"restaurant_id"`
	TableID       string          `json:"table_id"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Notes         string          `json:"notes,omitempty"`
	Lines         []lineResponse  `json:"lines"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// customerOrderResponse is the reduced shape customer trackers see.
type customerOrderResponse struct {
	Number           string          `json:"order_number"`
	Status           string          `json:"status"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	EstimatedMinutes int             `json:"estimated_minutes"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		RestaurantID: req.RestaurantID,
		TableID:      req.TableID,
		Lines:        toRequestedLines(req.Items),
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) createCustomerOrder(w http.ResponseWriter, r *http.Request) {
	var req createCustomerOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.CreateByCode(r.Context(), order.CreateByCodeRequest{
		TableCode: req.TableCode,
		Lines:     toRequestedLines(req.Items),
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, customerOrderResponse{
		Number:           o.Number,
		Status:           string(o.Status),
		TotalAmount:      o.TotalAmount,
		EstimatedMinutes: o.EstimateMinutes(),
	})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), order.UpdateStatusRequest{
		OrderID: r.PathValue("id"),
		Status:  order.Status(req.Status),
		Notes:   req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func toRequestedLines(items []lineRequest) []catalog.RequestedLine {
	lines := make([]catalog.RequestedLine, len(items))
	for i, it := range items {
		lines[i] = catalog.RequestedLine{
			MenuItemID:  it.MenuItemID,
			Quantity:    it.Quantity,
			ModifierIDs: it.ModifierIDs,
			Notes:       it.Notes,
		}
	}
	return lines
}

func toOrderResponse(o *order.Order) orderResponse {
	lines := make([]lineResponse, len(o.Lines))
	for i, l := range o.Lines {
		mods := make([]lineModifierResponse, len(l.Modifiers))
		for j, m := range l.Modifiers {
			mods[j] = lineModifierResponse{ModifierID: m.ModifierID, Price: m.Price}
		}
		lines[i] = lineResponse{
			MenuItemID: l.MenuItemID,
			Price:      l.Price,
			Quantity:   l.Quantity,
			Notes:      l.Notes,
			Modifiers:  mods,
		}
	}
	return orderResponse{
		ID:            o.ID,
		Number:        o.Number,
		RestaurantID:  o.RestaurantID,
		TableID:       o.TableID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		TotalAmount:   o.TotalAmount,
		Notes:         o.Notes,
		Lines:         lines,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
