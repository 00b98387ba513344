package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type TicketHandler struct {
	service TicketServiceInterface
}

func NewTicketHandler(s TicketServiceInterface) *TicketHandler {
	return &TicketHandler{service: s}
}

type GateValidateRequest struct {
	Content string `json:"content" validate:"required"`
}

type GateValidateResponse struct {
	Valid   bool   `json:"valid"`
	OrderID string `json:"order_id,omitempty"`
	ShowID  string `json:"show_id,omitempty"`
	Message string `json:"message"`
}

// Validate は入場ゲートで読み取ったQRコードを検証する
// 不正なチケットもエラーではなく valid=false で返す
func (h *TicketHandler) Validate(c echo.Context) error {
	var req GateValidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	res, err := h.service.ValidateAtGate(c.Request().Context(), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, GateValidateResponse{
		Valid: res.Valid, OrderID: res.OrderID, ShowID: res.ShowID, Message: res.Message,
	})
}

// PNG は注文のチケットQRコード画像を返す
func (h *TicketHandler) PNG(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	png, err := h.service.RenderTicketPNG(c.Request().Context(), orderID, id.Requester())
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}
