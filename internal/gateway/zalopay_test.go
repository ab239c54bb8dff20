package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) Config {
	return Config{
		AppID:           "2554",
		Key1:            "request-key",
		Key2:            "callback-key",
		Endpoint:        endpoint + "/create",
		QueryEndpoint:   endpoint + "/query",
		CallbackURL:     "https://shop.local/payments/gateway/callback",
		RedirectBaseURL: "https://shop.local",
	}
}

func TestZaloPay_CreatePaymentRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/create", r.URL.Path)
		assert.Equal(t, "2554", r.Form.Get("app_id"))
		assert.Equal(t, "250115_1736935000000", r.Form.Get("app_trans_id"))
		assert.Equal(t, "150000", r.Form.Get("amount"))
		assert.Equal(t, "https://shop.local/payments/gateway/callback", r.Form.Get("callback_url"))

		// The mac must cover app_id|app_trans_id|app_user|amount|app_time|embed_data|item
		// signed with the request key.
		data := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
			r.Form.Get("app_id"), r.Form.Get("app_trans_id"), r.Form.Get("app_user"),
			r.Form.Get("amount"), r.Form.Get("app_time"), r.Form.Get("embed_data"), r.Form.Get("item"))
		h := hmac.New(sha256.New, []byte("request-key"))
		h.Write([]byte(data))
		assert.Equal(t, hex.EncodeToString(h.Sum(nil)), r.Form.Get("mac"))

		fmt.Fprint(w, `{"return_code":1,"return_message":"success","order_url":"https://sb-openapi.zalopay.vn/pay/abc"}`)
	}))
	defer server.Close()

	client := NewZaloPay(testConfig(server.URL), server.Client())
	paymentOrder, err := client.CreatePaymentRequest(context.Background(), PaymentRequest{
		TransID:      "250115_1736935000000",
		OrderCode:    "250115ABCD1234",
		CustomerName: "Nguyen Van A",
		Amount:       150000,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://sb-openapi.zalopay.vn/pay/abc", paymentOrder.RedirectURL)
}

func TestZaloPay_CreatePaymentRequest_Refused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"return_code":2,"return_message":"duplicated app_trans_id"}`)
	}))
	defer server.Close()

	client := NewZaloPay(testConfig(server.URL), server.Client())
	_, err := client.CreatePaymentRequest(context.Background(), PaymentRequest{TransID: "250115_1"})
	assert.ErrorIs(t, err, ErrGateway)
}

func TestZaloPay_QueryStatus(t *testing.T) {
	testCases := []struct {
		name       string
		returnCode int
		want       State
	}{
		{"paid", 1, StatePaid},
		{"failed", 2, StateFailed},
		{"processing", 3, StatePending},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/query", r.URL.Path)
				fmt.Fprintf(w, `{"return_code":%d,"amount":150000}`, tc.returnCode)
			}))
			defer server.Close()

			client := NewZaloPay(testConfig(server.URL), server.Client())
			status, err := client.QueryStatus(context.Background(), "250115_1736935000000")
			require.NoError(t, err)
			assert.Equal(t, tc.want, status.State)
			assert.Equal(t, int64(150000), status.Amount)
		})
	}
}

func TestZaloPay_QueryStatus_UnexpectedStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewZaloPay(testConfig(server.URL), server.Client())
	_, err := client.QueryStatus(context.Background(), "250115_1")
	assert.ErrorIs(t, err, ErrGateway)
}

func TestZaloPay_VerifyCallback(t *testing.T) {
	client := NewZaloPay(testConfig("http://unused"), nil)

	data := `{"app_trans_id":"250115_1736935000000","amount":150000}`
	h := hmac.New(sha256.New, []byte("callback-key"))
	h.Write([]byte(data))
	mac := hex.EncodeToString(h.Sum(nil))

	assert.True(t, client.VerifyCallback(data, mac))
	assert.False(t, client.VerifyCallback(data, "deadbeef"))
	assert.False(t, client.VerifyCallback(data+"x", mac))
}
