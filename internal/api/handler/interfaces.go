package handler

import (
	"context"

	"github.com/sanosuguru/cinema-ticketing/internal/application"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/order"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/product"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/promotion"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/reservation"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/show"
)

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	CreateHold(ctx context.Context, input application.CreateHoldInput) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, id string, requester *string) (*reservation.Reservation, error)
	ListMyReservations(ctx context.Context, ownerID string, limit, offset int) ([]*reservation.Reservation, error)
	CancelReservation(ctx context.Context, id string, requester *string) (*reservation.Reservation, error)
}

// OrderServiceInterface は注文サービスのインターフェース
type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, input application.CreateOrderInput) (*order.Order, error)
	CreateBoxOfficeOrder(ctx context.Context, input application.CreateBoxOfficeOrderInput) (*order.Order, error)
	Pay(ctx context.Context, orderID string, requester *string, input application.PayInput) (*application.PaymentOutcome, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
	CancelOrder(ctx context.Context, orderID string) (*order.Order, error)
	GetOrder(ctx context.Context, id string, requester *string) (*order.Order, error)
	ListMyOrders(ctx context.Context, userID string, limit, offset int) ([]*order.Order, error)
}

// TicketServiceInterface はチケットサービスのインターフェース
type TicketServiceInterface interface {
	ValidateAtGate(ctx context.Context, content string) (*application.GateResult, error)
	RenderTicketPNG(ctx context.Context, orderID string, requester *string) ([]byte, error)
}

// ShowServiceInterface は上映サービスのインターフェース
type ShowServiceInterface interface {
	CreateShow(ctx context.Context, input application.CreateShowInput) (*show.Show, error)
	GetShow(ctx context.Context, id string) (*show.Show, error)
	CancelShow(ctx context.Context, id string) (*show.Show, error)
	GetSeatMap(ctx context.Context, showID string) ([]application.SeatAvailability, error)
	CountAvailableSeats(ctx context.Context, showID string) (int, error)
}

// CatalogServiceInterface はカタログ管理サービスのインターフェース
type CatalogServiceInterface interface {
	CreateTicketType(ctx context.Context, input application.CreateTicketTypeInput) (*seat.TicketType, error)
	CreateItem(ctx context.Context, input application.CreateItemInput) (*product.Item, error)
	CreatePromotion(ctx context.Context, input application.CreatePromotionInput) (*promotion.Promotion, error)
	DeactivatePromotion(ctx context.Context, id string) (*promotion.Promotion, error)
	ListActivePromotions(ctx context.Context, cinemaID string) ([]*promotion.Promotion, error)
}

// PromotionServiceInterface はプロモーション検証のインターフェース
type PromotionServiceInterface interface {
	Validate(ctx context.Context, cinemaID, code string, subtotal int64) (*application.AppliedPromotion, error)
}
