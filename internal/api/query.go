package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dinehall/orderd/internal/domain/order"
)

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.queries.ByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}

	o, err := h.queries.ByNumber(r.Context(), restaurantID, r.PathValue("number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	restaurantID := q.Get("restaurant_id")
	if restaurantID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}

	f := order.Filter{
		RestaurantID: restaurantID,
		TableID:      q.Get("table_id"),
		Status:       order.Status(q.Get("status")),
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		f.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid to timestamp")
			return
		}
		f.To = t
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	orders, err := h.queries.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) kitchenOrders(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}

	orders, err := h.queries.Kitchen(r.Context(), restaurantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

type statsResponse struct {
	TodayOrders  int             `json:"today_orders"`
	ActiveOrders int             `json:"active_orders"`
	TodayRevenue decimal.Decimal `json:"today_revenue"`
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	if restaurantID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "restaurant_id is required")
		return
	}

	st, err := h.queries.Stats(r.Context(), restaurantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		TodayOrders:  st.TodayOrders,
		ActiveOrders: st.ActiveOrders,
		TodayRevenue: st.TodayRevenue,
	})
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}
