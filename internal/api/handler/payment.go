package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	headerSignature    = "X-Signature"
	maxWebhookBodySize = 64 << 10
)

// PaymentHandler は決済ゲートウェイからの通知を受ける
type PaymentHandler struct {
	service OrderServiceInterface
}

func NewPaymentHandler(s OrderServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: s}
}

// Webhook は決済通知を処理する
// 署名検証はボディの生バイト列に対して行うため Bind は使わない
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBodySize))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストボディを読み込めません")
	}
	if err := h.service.HandleWebhook(c.Request().Context(), body, c.Request().Header.Get(headerSignature)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}
