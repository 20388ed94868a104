package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	paymentgatewaytypes "github.com/perejack/globalvisaapplication/internal/core/datamodel/paymentgateway"
)

const (
	stkPushPath      = "/api/mpesa/stk-push-api"
	verificationPath = "/api/mpesa-verification-proxy"
)

type Config struct {
	BaseURL string
	APIKey  string
	TillID  string
	Timeout time.Duration
}

// Client talks to the SwiftPay M-Pesa gateway. It holds no state between calls.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	tillID     string
	logger     *slog.Logger
}

func NewClient(config Config, httpClient *http.Client, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		tillID:     config.TillID,
		logger:     logger,
	}
}

// InitiateSTKPush asks the gateway to send a PIN prompt to the payer's handset.
// The till id from Config is applied when the request leaves it empty.
func (c *Client) InitiateSTKPush(ctx context.Context, req *paymentgatewaytypes.STKPushRequest) (*paymentgatewaytypes.STKPushResponse, error) {
	if req.TillID == "" {
		req.TillID = c.tillID
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	c.logger.Info("sending stk push",
		"reference", req.Reference,
		"amount", req.Amount,
		"url", c.baseURL+stkPushPath)

	status, body, err := c.doRequest(ctx, stkPushPath, true, req)
	if err != nil {
		c.logger.Error("stk push request failed", "error", err, "reference", req.Reference)
		return nil, &TransportError{Op: "stk push", Err: err}
	}

	var resp paymentgatewaytypes.STKPushResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Error("stk push returned non-JSON body",
			"status_code", status,
			"body", truncate(body, 512))
		return nil, &TransportError{Op: "stk push", StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}

	if status < 200 || status > 299 || resp.Status == "error" {
		message := resp.Message
		if message == "" {
			message = fmt.Sprintf("Failed to initiate payment (%d)", status)
		}
		c.logger.Warn("stk push rejected by gateway",
			"status_code", status,
			"message", message,
			"reference", req.Reference)
		return nil, &GatewayRejectedError{StatusCode: status, Message: message}
	}

	if !resp.Success || resp.Data.CheckoutID == "" {
		c.logger.Warn("stk push response missing checkout id", "status_code", status, "body", truncate(body, 512))
		return nil, &GatewayRejectedError{StatusCode: status, Message: "Invalid response from payment gateway"}
	}

	c.logger.Info("stk push accepted",
		"checkout_id", resp.Data.CheckoutID,
		"reference", req.Reference)

	return &resp, nil
}

// CheckStatus queries the verification proxy once. Any decodable JSON body is returned
// regardless of HTTP status; classification is left to the caller.
func (c *Client) CheckStatus(ctx context.Context, checkoutID string) (*paymentgatewaytypes.StatusResponse, error) {
	if checkoutID == "" {
		return nil, fmt.Errorf("validation error: checkout id is required")
	}

	status, body, err := c.doRequest(ctx, verificationPath, false, paymentgatewaytypes.StatusRequest{CheckoutID: checkoutID})
	if err != nil {
		return nil, &TransportError{Op: "status check", Err: err}
	}

	var resp paymentgatewaytypes.StatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{Op: "status check", StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.logger.Debug("payment status check",
		"checkout_id", checkoutID,
		"status_code", status,
		"success", resp.Success,
		"payment_status", resp.RawStatus())

	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, path string, authorized bool, payload any) (int, []byte, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, buf)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authorized && c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
