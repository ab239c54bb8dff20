package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shop24h/shop24h/internal/errorutil"
	"github.com/shop24h/shop24h/internal/timeutil"
)

type Config struct {
	AppID         string
	Key1          string
	Key2          string
	Endpoint      string
	QueryEndpoint string
	CallbackURL   string
	// RedirectBaseURL is the storefront origin the customer returns to after
	// paying.
	RedirectBaseURL string
}

// ZaloPay implements Client against the ZaloPay sandbox/production API.
type ZaloPay struct {
	config     Config
	httpClient *http.Client
}

func NewZaloPay(config Config, httpClient *http.Client) ZaloPay {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return ZaloPay{config: config, httpClient: httpClient}
}

func (c ZaloPay) CreatePaymentRequest(ctx context.Context, req PaymentRequest) (*PaymentOrder, error) {
	appTime := timeutil.Now().UnixMilli()

	embedData, err := json.Marshal(map[string]string{
		"redirecturl": fmt.Sprintf("%s/order/order-success/%s", c.config.RedirectBaseURL, req.OrderCode),
	})
	if err != nil {
		return nil, err
	}
	items := "[]"

	// mac input is app_id|app_trans_id|app_user|amount|app_time|embed_data|item.
	data := fmt.Sprintf("%s|%s|%s|%d|%d|%s|%s",
		c.config.AppID, req.TransID, req.CustomerName, req.Amount, appTime, embedData, items)

	form := url.Values{}
	form.Set("app_id", c.config.AppID)
	form.Set("app_user", req.CustomerName)
	form.Set("app_time", strconv.FormatInt(appTime, 10))
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("app_trans_id", req.TransID)
	form.Set("item", items)
	form.Set("embed_data", string(embedData))
	form.Set("description", fmt.Sprintf("Payment for the order #%s", req.OrderCode))
	form.Set("mac", sign(data, c.config.Key1))
	form.Set("bank_code", "")
	form.Set("callback_url", c.config.CallbackURL)

	var resp struct {
		ReturnCode    int    `json:"return_code"`
		ReturnMessage string `json:"return_message"`
		OrderURL      string `json:"order_url"`
	}
	if err := c.postForm(ctx, c.config.Endpoint, form, &resp); err != nil {
		return nil, err
	}

	if resp.ReturnCode != 1 {
		return nil, errorutil.Format("%w: create payment request refused: %s", ErrGateway, resp.ReturnMessage)
	}

	return &PaymentOrder{RedirectURL: resp.OrderURL}, nil
}

func (c ZaloPay) QueryStatus(ctx context.Context, transID string) (*TransactionStatus, error) {
	data := fmt.Sprintf("%s|%s|%s", c.config.AppID, transID, c.config.Key1)

	form := url.Values{}
	form.Set("app_id", c.config.AppID)
	form.Set("app_trans_id", transID)
	form.Set("mac", sign(data, c.config.Key1))

	var resp struct {
		ReturnCode    int    `json:"return_code"`
		ReturnMessage string `json:"return_message"`
		Amount        int64  `json:"amount"`
	}
	if err := c.postForm(ctx, c.config.QueryEndpoint, form, &resp); err != nil {
		return nil, err
	}

	status := &TransactionStatus{Amount: resp.Amount}
	switch resp.ReturnCode {
	case 1:
		status.State = StatePaid
	case 2:
		status.State = StateFailed
	default:
		status.State = StatePending
	}
	return status, nil
}

// VerifyCallback authenticates an inbound callback payload by recomputing
// its keyed hash with the callback key.
func (c ZaloPay) VerifyCallback(data, mac string) bool {
	expected := sign(data, c.config.Key2)
	return hmac.Equal([]byte(expected), []byte(mac))
}

func (c ZaloPay) postForm(ctx context.Context, endpoint string, form url.Values, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errorutil.Format("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errorutil.Format("%w: unexpected status %d", ErrGateway, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return errorutil.Format("%w: could not decode response: %v", ErrGateway, err)
	}
	return nil
}

func sign(data, key string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
