package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/citytransit/bus-booking-backend/internal/config"
)

// OrderHandle is the gateway-side order a client completes payment against.
type OrderHandle struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // minor units (paise)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// PaymentGateway abstracts the payment provider so the booking flow can be
// tested against a fake and the provider swapped without touching bookings.
type PaymentGateway interface {
	// CreateOrder registers a payable order with the gateway. amountMinor is
	// in the currency's minor unit (paise for INR).
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*OrderHandle, error)

	// VerifySignature checks the client-supplied signature for a completed
	// payment against the gateway secret.
	VerifySignature(orderID, paymentID, signature string) bool

	// Refund reverses a captured payment and returns the gateway refund id.
	Refund(ctx context.Context, paymentID string, amountMinor int64) (string, error)

	// KeyID returns the public key id the client needs to open the payment UI.
	KeyID() string
}

// RazorpayGateway implements PaymentGateway against the Razorpay Orders API.
type RazorpayGateway struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// NewRazorpayGateway creates a new Razorpay gateway client
func NewRazorpayGateway(cfg *config.PaymentConfig, logger *logrus.Logger) *RazorpayGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayGateway{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayRefundRequest struct {
	Amount int64 `json:"amount"`
}

type razorpayRefundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder registers an order with Razorpay
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*OrderHandle, error) {
	if !g.IsConfigured() {
		return nil, fmt.Errorf("payment gateway not configured: missing key credentials")
	}
	if amountMinor < 100 {
		return nil, fmt.Errorf("order amount must be at least 100 minor units, got %d", amountMinor)
	}
	if currency == "" {
		currency = g.config.Currency
	}

	g.logger.WithFields(logrus.Fields{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}).Info("Creating gateway order")

	var order OrderHandle
	if err := g.post(ctx, "/v1/orders", razorpayOrderRequest{
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
	}, &order); err != nil {
		return nil, err
	}

	if order.ID == "" {
		return nil, fmt.Errorf("gateway returned order without an id")
	}

	g.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("Gateway order created")

	return &order, nil
}

// VerifySignature checks an HMAC-SHA256 signature over "orderID|paymentID"
// computed with the key secret, as the gateway's checkout returns it.
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(g.config.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// Refund reverses a captured payment
func (g *RazorpayGateway) Refund(ctx context.Context, paymentID string, amountMinor int64) (string, error) {
	if !g.IsConfigured() {
		return "", fmt.Errorf("payment gateway not configured: missing key credentials")
	}
	if paymentID == "" {
		return "", fmt.Errorf("payment id is required for refund")
	}

	g.logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"amount":     amountMinor,
	}).Info("Requesting gateway refund")

	var refund razorpayRefundResponse
	path := fmt.Sprintf("/v1/payments/%s/refund", paymentID)
	if err := g.post(ctx, path, razorpayRefundRequest{Amount: amountMinor}, &refund); err != nil {
		return "", err
	}

	if refund.ID == "" {
		return "", fmt.Errorf("gateway returned refund without an id")
	}

	g.logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"refund_id":  refund.ID,
		"status":     refund.Status,
	}).Info("Gateway refund accepted")

	return refund.ID, nil
}

// KeyID returns the public key id
func (g *RazorpayGateway) KeyID() string {
	return g.config.KeyID
}

// IsConfigured returns true if the gateway credentials are set
func (g *RazorpayGateway) IsConfigured() bool {
	return g.config.KeyID != "" && g.config.KeySecret != ""
}

// post sends an authenticated JSON request and decodes the response into out
func (g *RazorpayGateway) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.config.KeyID, g.config.KeySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.WithError(err).WithField("path", path).Error("Gateway call failed")
		return fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var gatewayErr razorpayErrorResponse
		if json.Unmarshal(body, &gatewayErr) == nil && gatewayErr.Error.Description != "" {
			return fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, gatewayErr.Error.Description)
		}
		return fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		g.logger.WithFields(logrus.Fields{
			"body":  string(body),
			"error": err.Error(),
		}).Error("Failed to parse gateway response")
		return fmt.Errorf("failed to parse gateway response: %w", err)
	}

	return nil
}
