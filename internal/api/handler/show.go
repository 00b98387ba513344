package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/cinema-ticketing/internal/application"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
)

type ShowHandler struct {
	service ShowServiceInterface
}

func NewShowHandler(s ShowServiceInterface) *ShowHandler {
	return &ShowHandler{service: s}
}

type SeatLayoutRequest struct {
	Row    string `json:"row" validate:"required,max=5"`
	Number int    `json:"number" validate:"required,min=1"`
	Type   string `json:"type" validate:"omitempty,oneof=STANDARD PREMIUM ACCESSIBLE"`
}

type CreateShowRequest struct {
	CinemaID  string              `json:"cinema_id" validate:"required,uuid"`
	MovieID   string              `json:"movie_id" validate:"required,uuid"`
	RoomID    string              `json:"room_id" validate:"required,uuid"`
	StartTime time.Time           `json:"start_time" validate:"required"`
	EndTime   time.Time           `json:"end_time" validate:"required,gtfield=StartTime"`
	Seats     []SeatLayoutRequest `json:"seats" validate:"omitempty,dive"`
}

type AvailableCountResponse struct {
	ShowID         string `json:"show_id"`
	AvailableCount int    `json:"available_count"`
}

func (h *ShowHandler) Create(c echo.Context) error {
	var req CreateShowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	layout := make([]application.SeatLayout, len(req.Seats))
	for i, s := range req.Seats {
		layout[i] = application.SeatLayout{Row: s.Row, Number: s.Number, Type: seat.Type(s.Type)}
	}
	sh, err := h.service.CreateShow(c.Request().Context(), application.CreateShowInput{
		CinemaID:  req.CinemaID,
		MovieID:   req.MovieID,
		RoomID:    req.RoomID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Seats:     layout,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toShowResponse(sh))
}

func (h *ShowHandler) GetByID(c echo.Context) error {
	showID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sh, err := h.service.GetShow(c.Request().Context(), showID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShowResponse(sh))
}

func (h *ShowHandler) Cancel(c echo.Context) error {
	showID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sh, err := h.service.CancelShow(c.Request().Context(), showID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShowResponse(sh))
}

// Seats は座席表（空席状況付き）を返す
func (h *ShowHandler) Seats(c echo.Context) error {
	showID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	seats, err := h.service.GetSeatMap(c.Request().Context(), showID)
	if err != nil {
		return err
	}
	resp := make([]SeatResponse, len(seats))
	for i, s := range seats {
		resp[i] = toSeatResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ShowHandler) CountAvailable(c echo.Context) error {
	showID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	count, err := h.service.CountAvailableSeats(c.Request().Context(), showID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AvailableCountResponse{ShowID: showID, AvailableCount: count})
}
