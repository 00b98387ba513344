package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/cinema-ticketing/internal/application"
)

type OrderHandler struct {
	service OrderServiceInterface
}

func NewOrderHandler(s OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: s}
}

type ItemSelectionRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=100"`
}

type CreateOrderRequest struct {
	ReservationID string                 `json:"reservation_id" validate:"required,uuid"`
	Items         []ItemSelectionRequest `json:"items" validate:"omitempty,dive"`
	PromotionCode string                 `json:"promotion_code" validate:"omitempty,max=50"`
	Notes         string                 `json:"notes" validate:"omitempty,max=1000"`
}

// 窓口販売は保留中の予約か、上映と座席の直接指定のどちらか
type CreateBoxOfficeOrderRequest struct {
	ReservationID string                 `json:"reservation_id" validate:"required_without=ShowID,omitempty,uuid"`
	ShowID        string                 `json:"show_id" validate:"required_without=ReservationID,omitempty,uuid"`
	Seats         []SeatSelectionRequest `json:"seats" validate:"omitempty,dive"`
	Items         []ItemSelectionRequest `json:"items" validate:"omitempty,dive"`
	PromotionCode string                 `json:"promotion_code" validate:"omitempty,max=50"`
	PaymentMethod string                 `json:"payment_method" validate:"required,max=50"`
	Notes         string                 `json:"notes" validate:"omitempty,max=1000"`
}

type PayRequest struct {
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
	PayerEmail      string `json:"payer_email" validate:"required,email"`
	CardToken       string `json:"card_token"`
	Installments    int    `json:"installments" validate:"omitempty,min=1,max=24"`
}

func toItemSelections(reqs []ItemSelectionRequest) []application.ItemSelection {
	out := make([]application.ItemSelection, len(reqs))
	for i, r := range reqs {
		out[i] = application.ItemSelection{ItemID: r.ItemID, Quantity: r.Quantity}
	}
	return out
}

// Create は保留中の予約から注文を作成する
func (h *OrderHandler) Create(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	payer := id.UserID
	o, err := h.service.CreateOrder(c.Request().Context(), application.CreateOrderInput{
		ReservationID: req.ReservationID,
		PayerID:       &payer,
		Items:         toItemSelections(req.Items),
		PromotionCode: req.PromotionCode,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toOrderResponse(o))
}

// CreateBoxOffice は窓口で支払い済みの注文を作成する
func (h *OrderHandler) CreateBoxOffice(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req CreateBoxOfficeOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.ReservationID == "" && len(req.Seats) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "座席を指定してください")
	}
	o, err := h.service.CreateBoxOfficeOrder(c.Request().Context(), application.CreateBoxOfficeOrderInput{
		OperatorID:    id.UserID,
		ReservationID: req.ReservationID,
		ShowID:        req.ShowID,
		Seats:         toSeatSelections(req.Seats),
		Items:         toItemSelections(req.Items),
		PromotionCode: req.PromotionCode,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toOrderResponse(o))
}

func (h *OrderHandler) GetByID(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.service.GetOrder(c.Request().Context(), orderID, id.Requester())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	limit, offset := paging(c)
	orders, err := h.service.ListMyOrders(c.Request().Context(), id.UserID, limit, offset)
	if err != nil {
		return err
	}
	resp := make([]OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	return c.JSON(http.StatusOK, resp)
}

// Pay は決済ゲートウェイに支払いを要求する
func (h *OrderHandler) Pay(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req PayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.service.Pay(c.Request().Context(), orderID, id.Requester(), application.PayInput{
		PaymentMethodID: req.PaymentMethodID,
		PayerEmail:      req.PayerEmail,
		CardToken:       req.CardToken,
		Installments:    req.Installments,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PaymentResponse{
		Order:       toOrderResponse(out.Order),
		PaymentID:   out.PaymentID,
		Status:      out.Status,
		RedirectURL: out.RedirectURL,
	})
}

// Cancel は注文を取り消す（支払い済みなら返金）
func (h *OrderHandler) Cancel(c echo.Context) error {
	orderID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.service.CancelOrder(c.Request().Context(), orderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}
