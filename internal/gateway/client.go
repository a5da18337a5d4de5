// Package gateway implements the outbound client for the hosted-payment
// provider. The provider takes a form-encoded init request, returns a hosted
// checkout page URL, and later calls back on the success/fail/cancel/ipn
// endpoints with the same tran_id.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/quillcart/bookstore/internal/domain/payment"
)

// Config holds the gateway credentials and endpoints.
type Config struct {
	// BaseURL is the provider's API root, e.g. https://sandbox.gateway.test.
	BaseURL string
	StoreID string
	// StorePassword authenticates the store; sent with every init request.
	StorePassword string
	// CallbackBaseURL is this service's public root, used to build the
	// success/fail/cancel/ipn URLs the provider redirects and posts to.
	CallbackBaseURL string
	Timeout         time.Duration
}

// Client talks to the hosted-payment provider over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ payment.Gateway = (*Client)(nil)

// NewClient creates a Client. A zero timeout defaults to 30 seconds; the
// provider is routinely slow.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// initResponse is the provider's session-init reply.
type initResponse struct {
	Status         string `json:"status"`
	GatewayPageURL string `json:"GatewayPageURL"`
	FailedReason   string `json:"failedreason"`
}

// CreateSession opens a hosted payment session and returns the redirect URL.
func (c *Client) CreateSession(ctx context.Context, req payment.SessionRequest) (string, error) {
	form := url.Values{}
	form.Set("store_id", c.cfg.StoreID)
	form.Set("store_passwd", c.cfg.StorePassword)
	form.Set("tran_id", req.TranID)
	form.Set("total_amount", req.Amount.StringFixed(2))
	form.Set("currency", "USD")
	form.Set("success_url", c.callbackURL("success", req.TranID))
	form.Set("fail_url", c.callbackURL("fail", req.TranID))
	form.Set("cancel_url", c.callbackURL("cancel", req.TranID))
	form.Set("ipn_url", c.cfg.CallbackBaseURL+"/payment/ipn")
	form.Set("cus_name", req.Customer.Name)
	form.Set("cus_email", req.Customer.Email)
	form.Set("cus_phone", req.Customer.Phone)
	form.Set("ship_name", req.Address.Name)
	form.Set("ship_add1", req.Address.Street)
	form.Set("ship_city", req.Address.City)
	form.Set("ship_postcode", req.Address.PostCode)
	form.Set("ship_country", req.Address.Country)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v4/session", strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "build init request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "call gateway")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("gateway returned HTTP %d", resp.StatusCode)
	}

	var body initResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "decode gateway response")
	}

	if !strings.EqualFold(body.Status, "SUCCESS") {
		reason := body.FailedReason
		if reason == "" {
			reason = "no reason given"
		}
		return "", errors.Errorf("gateway rejected session: %s", reason)
	}
	if body.GatewayPageURL == "" {
		return "", errors.New("gateway returned no redirect URL")
	}
	return body.GatewayPageURL, nil
}

func (c *Client) callbackURL(kind, tranID string) string {
	return c.cfg.CallbackBaseURL + "/payment/" + kind + "/" + tranID
}
