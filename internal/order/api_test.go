package order

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, f *fixture, method, target, body string, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	NewServer(f.service).Register(mux)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != uuid.Nil {
		req.Header.Set("X-User-ID", userID.String())
	}
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)
	return resp
}

func TestServer_CreateOrder(t *testing.T) {
	f := setup(t)
	userID := uuid.New()

	body := `{
		"customerInfo": {"fullName": "Nguyen Van A", "phone": "0900000000", "address": "1 Le Loi, HCMC"},
		"shippingOption": "express-shipping",
		"paymentMethod": "ZALOPAY"
	}`
	resp := serve(t, f, http.MethodPost, "/orders", body, userID)

	require.Equal(t, http.StatusCreated, resp.Code)

	var payload struct {
		Data response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, StatusUnpaid, payload.Data.Status)
	assert.Equal(t, int64(70000), payload.Data.ShippingFee)
	assert.NotEmpty(t, payload.Data.PaymentURL)
	assert.NotNil(t, payload.Data.PaymentExpiredAt)
}

func TestServer_CreateOrder_MissingUser(t *testing.T) {
	f := setup(t)
	resp := serve(t, f, http.MethodPost, "/orders", `{}`, uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestServer_CreateOrder_BadRequest(t *testing.T) {
	f := setup(t)
	body := `{
		"customerInfo": {"fullName": "Nguyen Van A", "phone": "0900000000", "address": "1 Le Loi, HCMC"},
		"shippingOption": "express-shipping",
		"paymentMethod": "BITCOIN"
	}`
	resp := serve(t, f, http.MethodPost, "/orders", body, uuid.New())

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "INVALID_REQUEST")
}

func TestServer_GetOrder(t *testing.T) {
	f := setup(t)
	userID := uuid.New()
	o, err := f.service.Create(t.Context(), userID, validRequest(MethodCashOnDelivery))
	require.NoError(t, err)

	resp := serve(t, f, http.MethodGet, "/orders/"+o.OrderCode, "", userID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), o.OrderCode)

	// Another user's order reads as missing.
	resp = serve(t, f, http.MethodGet, "/orders/"+o.OrderCode, "", uuid.New())
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "ORDER_NOT_FOUND")
}

func TestServer_ListOrders(t *testing.T) {
	f := setup(t)
	userID := uuid.New()
	_, err := f.service.Create(t.Context(), userID, validRequest(MethodCashOnDelivery))
	require.NoError(t, err)
	online, err := f.service.Create(t.Context(), userID, validRequest(MethodZaloPay))
	require.NoError(t, err)

	resp := serve(t, f, http.MethodGet, "/orders?status=UNPAID", "", userID)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Data []response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Len(t, payload.Data, 1)
	assert.Equal(t, online.OrderCode, payload.Data[0].OrderCode)
}

func TestServer_ShippingOptions(t *testing.T) {
	f := setup(t)
	resp := serve(t, f, http.MethodGet, "/orders/shipping-options", "", uuid.Nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "express-shipping")
	assert.Contains(t, resp.Body.String(), "free-shipping")
}

func TestServer_Cancellation_Conflict(t *testing.T) {
	f := setup(t)
	userID := uuid.New()
	o, err := f.service.Create(t.Context(), userID, validRequest(MethodCashOnDelivery))
	require.NoError(t, err)

	o.Status = StatusShipped
	require.NoError(t, f.store.Update(t.Context(), o))

	resp := serve(t, f, http.MethodPost, "/orders/"+o.OrderCode+"/cancellation", `{"reason":"too late"}`, userID)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "CONFLICT")
}

func TestServer_PaymentRetry(t *testing.T) {
	f := setup(t)
	userID := uuid.New()
	o, err := f.service.Create(t.Context(), userID, validRequest(MethodZaloPay))
	require.NoError(t, err)

	resp := serve(t, f, http.MethodPost, "/orders/"+o.OrderCode+"/payment-retry", "", userID)
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Data paymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, o.Payment.TransID, payload.Data.TransID)
	assert.NotEmpty(t, payload.Data.PaymentURL)
}

func TestServer_ChangePaymentMethod(t *testing.T) {
	f := setup(t)
	userID := uuid.New()
	o, err := f.service.Create(t.Context(), userID, validRequest(MethodZaloPay))
	require.NoError(t, err)

	resp := serve(t, f, http.MethodPatch, "/orders/"+o.OrderCode+"/payment-method", `{"paymentMethod":"CASH_ON_DELIVERY"}`, userID)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"paymentMethod":"CASH_ON_DELIVERY"`)

	resp = serve(t, f, http.MethodPatch, "/orders/"+o.OrderCode+"/payment-method", `{"paymentMethod":"CASH_ON_DELIVERY"}`, userID)
	assert.Equal(t, http.StatusConflict, resp.Code)
}
