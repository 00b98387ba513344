package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/payment"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"
)

func TestMercadoPagoClient_Charge(t *testing.T) {
	t.Run("決済要求を送信し結果を返す", func(t *testing.T) {
		var got map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/payments", r.URL.Path)
			assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
			assert.Equal(t, "order-1", r.Header.Get("X-Idempotency-Key"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id": 123456789, "status": "approved"}`))
		}))
		defer srv.Close()

		client := NewMercadoPagoClient(srv.URL, "token-123", time.Second)
		res, err := client.Charge(context.Background(), payment.ChargeRequest{
			OrderID:      "order-1",
			Amount:       90050,
			Description:  "チケット購入",
			PayerEmail:   "user@example.com",
			MethodID:     "visa",
			CardToken:    "card-tok",
			Installments: 1,
			RedirectURLs: payment.RedirectURLs{
				Success: "https://example.com/success",
			},
		})

		require.NoError(t, err)
		assert.Equal(t, "123456789", res.PaymentID)
		assert.Equal(t, "approved", res.Status)

		assert.Equal(t, 900.5, got["transaction_amount"])
		assert.Equal(t, "visa", got["payment_method_id"])
		assert.Equal(t, "order-1", got["external_reference"])
		assert.Equal(t, "card-tok", got["token"])
		redirects := got["redirect_urls"].(map[string]any)
		assert.Equal(t, "https://example.com/success?order_id=order-1", redirects["success"])
	})

	t.Run("非2xxは決済処理エラー", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"invalid card"}`))
		}))
		defer srv.Close()

		client := NewMercadoPagoClient(srv.URL, "token", time.Second)
		_, err := client.Charge(context.Background(), payment.ChargeRequest{OrderID: "order-1", Amount: 100})

		require.Error(t, err)
		assert.True(t, errors.Is(err, payment.ErrGatewayFailure))
		assert.Equal(t, apperror.ErrPaymentProcessing, apperror.KindOf(err))
	})

	t.Run("不正な応答は決済処理エラー", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer srv.Close()

		client := NewMercadoPagoClient(srv.URL, "token", time.Second)
		_, err := client.Charge(context.Background(), payment.ChargeRequest{OrderID: "order-1", Amount: 100})

		assert.ErrorIs(t, err, payment.ErrUnexpectedReply)
	})

	t.Run("接続失敗は決済処理エラー", func(t *testing.T) {
		client := NewMercadoPagoClient("http://127.0.0.1:1", "token", 200*time.Millisecond)
		_, err := client.Charge(context.Background(), payment.ChargeRequest{OrderID: "order-1", Amount: 100})

		require.Error(t, err)
		assert.Equal(t, apperror.ErrPaymentProcessing, apperror.KindOf(err))
	})
}

func TestMercadoPagoClient_Charge_IdempotencyKey(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("X-Idempotency-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 1, "status": "rejected"}`))
	}))
	defer srv.Close()

	client := NewMercadoPagoClient(srv.URL, "token-123", time.Second)
	for _, key := range []string{"order-1:attempt-1", "order-1:attempt-2"} {
		_, err := client.Charge(context.Background(), payment.ChargeRequest{
			OrderID:        "order-1",
			Amount:         100,
			IdempotencyKey: key,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"order-1:attempt-1", "order-1:attempt-2"}, got)
}

func TestMercadoPagoClient_GetPaymentAndRefund(t *testing.T) {
	var refunded bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/payments/42":
			w.Write([]byte(`{"id": 42, "status": "pending", "external_reference": "order-9"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/payments/42/refunds":
			refunded = true
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id": 1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewMercadoPagoClient(srv.URL, "token", time.Second)

	t.Run("決済状態を取得できる", func(t *testing.T) {
		info, err := client.GetPayment(context.Background(), "42")
		require.NoError(t, err)
		assert.Equal(t, "42", info.PaymentID)
		assert.Equal(t, payment.GatewayPending, info.Status)
		assert.Equal(t, "order-9", info.ExternalReference)
	})

	t.Run("返金できる", func(t *testing.T) {
		require.NoError(t, client.Refund(context.Background(), "42"))
		assert.True(t, refunded)
	})

	t.Run("存在しない決済はエラー", func(t *testing.T) {
		_, err := client.GetPayment(context.Background(), "404")
		assert.ErrorIs(t, err, payment.ErrGatewayFailure)
	})
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{90050, "900.50"},
		{100000, "1000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatAmount(tt.minor).String())
		})
	}
}

func TestMockGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("既定で承認しMOCK参照を返す", func(t *testing.T) {
		g := NewMockGateway()
		res, err := g.Charge(ctx, payment.ChargeRequest{OrderID: "order-1", Amount: 900})
		require.NoError(t, err)
		assert.Equal(t, payment.GatewayApproved, res.Status)
		assert.Contains(t, res.PaymentID, "MOCK-")

		info, err := g.GetPayment(ctx, res.PaymentID)
		require.NoError(t, err)
		assert.Equal(t, "order-1", info.ExternalReference)
	})

	t.Run("設定した状態を返す", func(t *testing.T) {
		g := NewMockGateway().WithStatus(payment.GatewayRejected)
		res, err := g.Charge(ctx, payment.ChargeRequest{OrderID: "order-1"})
		require.NoError(t, err)
		assert.Equal(t, payment.GatewayRejected, res.Status)
	})

	t.Run("返金を記録する", func(t *testing.T) {
		g := NewMockGateway()
		res, _ := g.Charge(ctx, payment.ChargeRequest{OrderID: "order-1"})
		require.NoError(t, g.Refund(ctx, res.PaymentID))
		assert.True(t, g.Refunded(res.PaymentID))

		info, _ := g.GetPayment(ctx, res.PaymentID)
		assert.Equal(t, payment.GatewayRefunded, info.Status)
	})
}
