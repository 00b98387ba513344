package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/cinema-ticketing/internal/api/middleware"
	"github.com/sanosuguru/cinema-ticketing/internal/application"
)

const headerIdempotencyKey = "Idempotency-Key"

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type SeatSelectionRequest struct {
	SeatID       string `json:"seat_id" validate:"required,uuid"`
	TicketTypeID string `json:"ticket_type_id" validate:"required,uuid"`
}

type CreateReservationRequest struct {
	ShowID         string                 `json:"show_id" validate:"required,uuid"`
	Seats          []SeatSelectionRequest `json:"seats" validate:"required,min=1,dive"`
	IdempotencyKey string                 `json:"idempotency_key" validate:"omitempty,max=255"`
}

func toSeatSelections(reqs []SeatSelectionRequest) []application.SeatSelection {
	out := make([]application.SeatSelection, len(reqs))
	for i, r := range reqs {
		out[i] = application.SeatSelection{SeatID: r.SeatID, TicketTypeID: r.TicketTypeID}
	}
	return out
}

// requireIdentity は認証済みの呼び出し元を返す
func requireIdentity(c echo.Context) (*middleware.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "認証が必要です")
	}
	return id, nil
}

// Create は座席を仮押さえする
// Idempotency-Key ヘッダーがあればボディより優先する
func (h *ReservationHandler) Create(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	key := req.IdempotencyKey
	if v := c.Request().Header.Get(headerIdempotencyKey); v != "" {
		key = v
	}

	owner := id.UserID
	r, err := h.service.CreateHold(c.Request().Context(), application.CreateHoldInput{
		ShowID: req.ShowID, OwnerID: &owner, Seats: toSeatSelections(req.Seats), IdempotencyKey: key,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

func (h *ReservationHandler) GetByID(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	reservationID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.service.GetReservation(c.Request().Context(), reservationID, id.Requester())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// ListMine は呼び出し元の予約一覧を返す
func (h *ReservationHandler) ListMine(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	limit, offset := paging(c)
	reservations, err := h.service.ListMyReservations(c.Request().Context(), id.UserID, limit, offset)
	if err != nil {
		return err
	}
	resp := make([]ReservationResponse, len(reservations))
	for i, r := range reservations {
		resp[i] = toReservationResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// Cancel は保留中の仮押さえを解放する
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := requireIdentity(c)
	if err != nil {
		return err
	}
	reservationID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.service.CancelReservation(c.Request().Context(), reservationID, id.Requester())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}
