package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shop24h/shop24h/internal/api"
)

// PaymentConfirmer applies a confirmed payment to the correlated order. It
// must be idempotent: callbacks may arrive redundantly or concurrently with
// the polling path.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, transID string, amount int64) error
}

// Server handles the processor's server-to-server callback.
type Server struct {
	client ZaloPay
	orders PaymentConfirmer
}

func NewServer(client ZaloPay, orders PaymentConfirmer) Server {
	return Server{client: client, orders: orders}
}

func (s Server) Register(mux *http.ServeMux) {
	mux.Handle("POST /payments/gateway/callback", s.callbackHandler())
}

// callbackHandler replies with the gateway's {return_code, return_message}
// contract. A bad mac is rejected without mutating any state.
func (s Server) callbackHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Data string `json:"data"`
			Mac  string `json:"mac"`
		}
		if err := api.ParseJSON(r, &body); err != nil {
			api.WriteJSON(w, callbackResponse{-1, "could not parse body"}, http.StatusOK)
			return
		}

		if !s.client.VerifyCallback(body.Data, body.Mac) {
			slog.WarnContext(r.Context(), "rejected gateway callback with bad mac")
			api.WriteJSON(w, callbackResponse{-1, "mac not equal"}, http.StatusOK)
			return
		}

		var payload struct {
			AppTransID string `json:"app_trans_id"`
			Amount     int64  `json:"amount"`
		}
		if err := json.Unmarshal([]byte(body.Data), &payload); err != nil {
			api.WriteJSON(w, callbackResponse{0, "invalid callback data"}, http.StatusOK)
			return
		}

		if err := s.orders.ConfirmPayment(r.Context(), payload.AppTransID, payload.Amount); err != nil {
			slog.ErrorContext(r.Context(), "could not apply gateway callback",
				"trans_id", payload.AppTransID, "error", err)
			api.WriteJSON(w, callbackResponse{0, err.Error()}, http.StatusOK)
			return
		}

		api.WriteJSON(w, callbackResponse{1, "success"}, http.StatusOK)
	})
}

type callbackResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
}
