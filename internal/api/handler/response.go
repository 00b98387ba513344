package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/cinema-ticketing/internal/application"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/order"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/product"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/promotion"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/reservation"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/show"
)

type ReservationLineResponse struct {
	SeatID       string `json:"seat_id"`
	TicketTypeID string `json:"ticket_type_id"`
	Price        int64  `json:"price"`
}

type ReservationResponse struct {
	ID          string                    `json:"id"`
	CinemaID    string                    `json:"cinema_id"`
	ShowID      string                    `json:"show_id"`
	OwnerID     *string                   `json:"owner_id,omitempty"`
	Lines       []ReservationLineResponse `json:"lines"`
	Status      string                    `json:"status"`
	Total       int64                     `json:"total"`
	ExpiresAt   time.Time                 `json:"expires_at"`
	ConfirmedAt *time.Time                `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	lines := make([]ReservationLineResponse, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ReservationLineResponse{SeatID: l.SeatID, TicketTypeID: l.TicketTypeID, Price: l.Price}
	}
	return ReservationResponse{
		ID: r.ID, CinemaID: r.CinemaID, ShowID: r.ShowID, OwnerID: r.OwnerID,
		Lines: lines, Status: string(r.Status), Total: r.Total(),
		ExpiresAt: r.ExpiresAt, ConfirmedAt: r.ConfirmedAt, CreatedAt: r.CreatedAt,
	}
}

type OrderItemResponse struct {
	ItemID    string `json:"item_id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	CinemaID      string              `json:"cinema_id"`
	ReservationID string              `json:"reservation_id"`
	ShowID        string              `json:"show_id"`
	UserID        *string             `json:"user_id,omitempty"`
	OperatorID    *string             `json:"operator_id,omitempty"`
	Items         []OrderItemResponse `json:"items"`
	Subtotal      int64               `json:"subtotal"`
	Discount      int64               `json:"discount"`
	Tax           int64               `json:"tax"`
	Total         int64               `json:"total"`
	PromotionCode *string             `json:"promotion_code,omitempty"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	PaymentStatus string              `json:"payment_status"`
	Status        string              `json:"status"`
	Type          string              `json:"type"`
	TicketToken   *string             `json:"ticket_token,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// toOrderResponse はチケットトークンを有効な注文でのみ含める
func toOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ItemID: it.ItemID, Type: it.Type, Name: it.Name,
			Quantity: it.Quantity, UnitPrice: it.UnitPrice, Subtotal: it.Subtotal,
		}
	}
	return OrderResponse{
		ID: o.ID, CinemaID: o.CinemaID, ReservationID: o.ReservationID, ShowID: o.ShowID,
		UserID: o.UserID, OperatorID: o.OperatorID, Items: items,
		Subtotal: o.Subtotal, Discount: o.Discount, Tax: o.Tax, Total: o.Total,
		PromotionCode: o.PromotionCode, PaymentMethod: o.PaymentMethod,
		PaymentStatus: string(o.PaymentStatus), Status: string(o.Status), Type: string(o.Type),
		TicketToken: o.VisibleTicket(), Notes: o.Notes, PaidAt: o.PaidAt, CreatedAt: o.CreatedAt,
	}
}

type PaymentResponse struct {
	Order       OrderResponse `json:"order"`
	PaymentID   string        `json:"payment_id"`
	Status      string        `json:"status"`
	RedirectURL string        `json:"redirect_url"`
}

type ShowResponse struct {
	ID        string    `json:"id"`
	CinemaID  string    `json:"cinema_id"`
	MovieID   string    `json:"movie_id"`
	RoomID    string    `json:"room_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

func toShowResponse(s *show.Show) ShowResponse {
	return ShowResponse{
		ID: s.ID, CinemaID: s.CinemaID, MovieID: s.MovieID, RoomID: s.RoomID,
		StartTime: s.StartTime, EndTime: s.EndTime, Status: string(s.Status),
	}
}

type SeatResponse struct {
	ID        string `json:"id"`
	Row       string `json:"row"`
	Number    int    `json:"number"`
	Type      string `json:"type"`
	Available bool   `json:"available"`
}

func toSeatResponse(a application.SeatAvailability) SeatResponse {
	return SeatResponse{
		ID: a.Seat.ID, Row: a.Seat.Row, Number: a.Seat.Number,
		Type: string(a.Seat.Type), Available: a.Available,
	}
}

type TicketTypeResponse struct {
	ID       string `json:"id"`
	CinemaID string `json:"cinema_id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Active   bool   `json:"active"`
}

func toTicketTypeResponse(t *seat.TicketType) TicketTypeResponse {
	return TicketTypeResponse{ID: t.ID, CinemaID: t.CinemaID, Name: t.Name, Price: t.Price, Active: t.Active}
}

type ItemResponse struct {
	ID       string `json:"id"`
	CinemaID string `json:"cinema_id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Active   bool   `json:"active"`
}

func toItemResponse(it *product.Item) ItemResponse {
	return ItemResponse{
		ID: it.ID, CinemaID: it.CinemaID, Type: string(it.Type),
		Name: it.Name, Price: it.Price, Active: it.Active,
	}
}

type PromotionResponse struct {
	ID            string     `json:"id"`
	CinemaID      string     `json:"cinema_id"`
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue int64      `json:"discount_value"`
	StartsAt      *time.Time `json:"starts_at,omitempty"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	UsageLimit    *int       `json:"usage_limit,omitempty"`
	UsageCount    int        `json:"usage_count"`
	MinPurchase   int64      `json:"min_purchase"`
	Active        bool       `json:"active"`
}

func toPromotionResponse(p *promotion.Promotion) PromotionResponse {
	return PromotionResponse{
		ID: p.ID, CinemaID: p.CinemaID, Code: p.Code, Name: p.Name,
		DiscountType: string(p.DiscountType), DiscountValue: p.DiscountValue,
		StartsAt: p.StartsAt, EndsAt: p.EndsAt, UsageLimit: p.UsageLimit,
		UsageCount: p.UsageCount, MinPurchase: p.MinPurchase, Active: p.Active,
	}
}

// paging はクエリの limit / offset を読む（不正値は0として扱い、サービス側で既定値にする）
func paging(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}
