package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/payment"
)

func TestPaymentHandler_Webhook(t *testing.T) {
	e := NewTestEcho()
	body := `{"type":"payment","data":{"id":"pay-1"}}`

	t.Run("生のボディと署名をそのまま渡す", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("HandleWebhook", mock.Anything, []byte(body), "sig-abc").Return(nil)

		c, rec := newContext(e, http.MethodPost, "/api/v1/payments/webhook", body, nil)
		c.Request().Header.Set("X-Signature", "sig-abc")

		require.NoError(t, NewPaymentHandler(mockService).Webhook(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("署名不正は400", func(t *testing.T) {
		mockService := new(MockOrderService)
		mockService.On("HandleWebhook", mock.Anything, []byte(body), "").Return(payment.ErrInvalidSignature)

		c, rec := newContext(e, http.MethodPost, "/api/v1/payments/webhook", body, nil)

		run(e, c, NewPaymentHandler(mockService).Webhook)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
