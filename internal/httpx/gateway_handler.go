package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/gateway"
	"github.com/ariefcatur/go-mixpay-gateway.git/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Payments interface {
	HandleCallback(ctx context.Context, providerOrderID, payeeID string) (gateway.Result, error)
	ProcessPayment(ctx context.Context, orderID string) (string, error)
}

type AssetCatalog interface {
	Supports(ctx context.Context, currency string) bool
	SettlementAssets(ctx context.Context) map[string]string
}

type NoteLister interface {
	ListNotes(ctx context.Context, orderID string) ([]orders.Note, error)
}

type GatewayHandler struct {
	Payments     Payments
	Assets       AssetCatalog
	Notes        NoteLister
	CallbackPath string // default /mixpay/callback
	Currency     string // mata uang toko, dipakai kalau query currency kosong
	Logger       *slog.Logger
}

// CallbackReq is the body MixPay posts to the callback URL.
type CallbackReq struct {
	OrderID string `json:"orderId"`
	PayeeID string `json:"payeeId"`
}

type CallbackResp struct {
	Code string `json:"code"`
}

type PayResp struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect"`
}

type AvailabilityResp struct {
	Enabled bool `json:"enabled"`
}

func (h *GatewayHandler) Register(r chi.Router) {
	path := h.CallbackPath
	if path == "" {
		path = "/mixpay/callback"
	}
	r.Post(path, h.callback)
	r.Post("/orders/{id}/pay", h.pay)
	if h.Notes != nil {
		r.Get("/orders/{id}/notes", h.listNotes)
	}
	r.Get("/gateway/availability", h.availability)
	r.Get("/assets/settlement", h.settlementAssets)
}

func (h *GatewayHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// traceContext membawa request id (X-Request-Id) sebagai trace id event.
func traceContext(r *http.Request) context.Context {
	return gateway.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gateway.ErrInvalidAmount),
		errors.Is(err, gateway.ErrOrderExpired),
		errors.Is(err, gateway.ErrOrderNotPayable),
		errors.Is(err, orders.ErrUnknownStatus):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// callback: hanya SUCCESS yang dibalas 200; selain itu 500 supaya MixPay kirim ulang.
func (h *GatewayHandler) callback(w http.ResponseWriter, r *http.Request) {
	var req CallbackReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger().WarnContext(r.Context(), "callback: invalid json", "err", err)
		writeJSON(w, http.StatusInternalServerError, CallbackResp{Code: string(gateway.OutcomeFail)})
		return
	}

	ctx, cancel := context.WithTimeout(traceContext(r), 10*time.Second)
	defer cancel()

	res, err := h.Payments.HandleCallback(ctx, req.OrderID, req.PayeeID)
	if err != nil {
		h.logger().WarnContext(ctx, "callback failed", "order_id", req.OrderID, "err", err)
	}
	if err == nil && res.Outcome == gateway.OutcomeSuccess {
		writeJSON(w, http.StatusOK, CallbackResp{Code: string(gateway.OutcomeSuccess)})
		return
	}
	writeJSON(w, http.StatusInternalServerError, CallbackResp{Code: string(gateway.OutcomeFail)})
}

func (h *GatewayHandler) pay(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(traceContext(r), 10*time.Second)
	defer cancel()

	redirect, err := h.Payments.ProcessPayment(ctx, orderID)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			h.logger().ErrorContext(ctx, "process payment", "order_id", orderID, "err", err)
		}
		writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, PayResp{Result: "success", Redirect: redirect})
}

func (h *GatewayHandler) availability(w http.ResponseWriter, r *http.Request) {
	currency := strings.TrimSpace(r.URL.Query().Get("currency"))
	if currency == "" {
		currency = h.Currency
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	writeJSON(w, http.StatusOK, AvailabilityResp{Enabled: currency != "" && h.Assets.Supports(ctx, currency)})
}

func (h *GatewayHandler) settlementAssets(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	writeJSON(w, http.StatusOK, h.Assets.SettlementAssets(ctx))
}

func (h *GatewayHandler) listNotes(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	notes, err := h.Notes.ListNotes(ctx, orderID)
	if err != nil {
		h.logger().ErrorContext(ctx, "list order notes", "order_id", orderID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list notes failed"})
		return
	}
	if notes == nil {
		notes = []orders.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}
