package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citytransit/bus-booking-backend/internal/config"
)

func newTestGateway(baseURL string) *RazorpayGateway {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewRazorpayGateway(&config.PaymentConfig{
		Provider:  "razorpay",
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		BaseURL:   baseURL,
		Currency:  "INR",
		Timeout:   5 * time.Second,
	}, logger)
}

func signPayload(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestGatewayCreateOrder(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/orders", r.URL.Path)

			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "rzp_test_key", user)
			assert.Equal(t, "rzp_test_secret", pass)

			var req razorpayOrderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(45000), req.Amount)
			assert.Equal(t, "INR", req.Currency)
			assert.Equal(t, "booking_abc", req.Receipt)

			json.NewEncoder(w).Encode(OrderHandle{
				ID:       "order_test123",
				Amount:   req.Amount,
				Currency: req.Currency,
				Receipt:  req.Receipt,
				Status:   "created",
			})
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)

		order, err := gateway.CreateOrder(context.Background(), 45000, "INR", "booking_abc")
		require.NoError(t, err)
		assert.Equal(t, "order_test123", order.ID)
		assert.Equal(t, int64(45000), order.Amount)
		assert.Equal(t, "created", order.Status)
	})

	t.Run("Amount below minimum", func(t *testing.T) {
		gateway := newTestGateway("http://unused.invalid")

		order, err := gateway.CreateOrder(context.Background(), 99, "INR", "booking_abc")
		require.Error(t, err)
		assert.Nil(t, order)
		assert.Contains(t, err.Error(), "at least 100")
	})

	t.Run("Gateway error response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{
					"code":        "BAD_REQUEST_ERROR",
					"description": "The amount is invalid",
				},
			})
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)

		order, err := gateway.CreateOrder(context.Background(), 45000, "INR", "booking_abc")
		require.Error(t, err)
		assert.Nil(t, order)
		assert.Contains(t, err.Error(), "The amount is invalid")
	})

	t.Run("Missing credentials", func(t *testing.T) {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		gateway := NewRazorpayGateway(&config.PaymentConfig{BaseURL: "http://unused.invalid"}, logger)

		order, err := gateway.CreateOrder(context.Background(), 45000, "INR", "booking_abc")
		require.Error(t, err)
		assert.Nil(t, order)
		assert.Contains(t, err.Error(), "not configured")
	})
}

func TestGatewayVerifySignature(t *testing.T) {
	gateway := newTestGateway("http://unused.invalid")

	t.Run("Valid signature", func(t *testing.T) {
		sig := signPayload("rzp_test_secret", "order_test123", "pay_test456")
		assert.True(t, gateway.VerifySignature("order_test123", "pay_test456", sig))
	})

	t.Run("Wrong secret", func(t *testing.T) {
		sig := signPayload("some_other_secret", "order_test123", "pay_test456")
		assert.False(t, gateway.VerifySignature("order_test123", "pay_test456", sig))
	})

	t.Run("Signature for different payment", func(t *testing.T) {
		sig := signPayload("rzp_test_secret", "order_test123", "pay_other")
		assert.False(t, gateway.VerifySignature("order_test123", "pay_test456", sig))
	})

	t.Run("Tampered signature", func(t *testing.T) {
		sig := signPayload("rzp_test_secret", "order_test123", "pay_test456")
		tampered := "0" + sig[1:]
		if tampered == sig {
			tampered = "1" + sig[1:]
		}
		assert.False(t, gateway.VerifySignature("order_test123", "pay_test456", tampered))
	})

	t.Run("Empty fields rejected", func(t *testing.T) {
		assert.False(t, gateway.VerifySignature("", "pay_test456", "deadbeef"))
		assert.False(t, gateway.VerifySignature("order_test123", "", "deadbeef"))
		assert.False(t, gateway.VerifySignature("order_test123", "pay_test456", ""))
	})
}

func TestGatewayRefund(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payments/pay_test456/refund", r.URL.Path)

			var req razorpayRefundRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(45000), req.Amount)

			json.NewEncoder(w).Encode(razorpayRefundResponse{
				ID:     "rfnd_test789",
				Status: "processed",
			})
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)

		refundID, err := gateway.Refund(context.Background(), "pay_test456", 45000)
		require.NoError(t, err)
		assert.Equal(t, "rfnd_test789", refundID)
	})

	t.Run("Missing payment id", func(t *testing.T) {
		gateway := newTestGateway("http://unused.invalid")

		refundID, err := gateway.Refund(context.Background(), "", 45000)
		require.Error(t, err)
		assert.Empty(t, refundID)
	})

	t.Run("Gateway failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		gateway := newTestGateway(server.URL)

		refundID, err := gateway.Refund(context.Background(), "pay_test456", 45000)
		require.Error(t, err)
		assert.Empty(t, refundID)
		assert.Contains(t, err.Error(), "502")
	})
}
