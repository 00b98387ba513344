package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/order"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/logger"
)

// イベント名（ルーティングキー）
const (
	EventTicketIssued  = "ticket.issued"
	EventOrderRefunded = "order.refunded"
)

// EventPublisher はドメインイベントを外部へ配信する
type EventPublisher interface {
	Publish(ctx context.Context, routingKey, key string, payload any) error
}

// TicketIssuedEvent はチケット発行時に配信される
type TicketIssuedEvent struct {
	OrderID       string    `json:"order_id"`
	ReservationID string    `json:"reservation_id"`
	ShowID        string    `json:"show_id"`
	CinemaID      string    `json:"cinema_id"`
	UserID        *string   `json:"user_id,omitempty"`
	Total         int64     `json:"total"`
	Seats         []string  `json:"seats"`
	IssuedAt      time.Time `json:"issued_at"`
}

// OrderRefundedEvent は返金完了時に配信される
type OrderRefundedEvent struct {
	OrderID          string    `json:"order_id"`
	ReservationID    string    `json:"reservation_id"`
	CinemaID         string    `json:"cinema_id"`
	PaymentReference *string   `json:"payment_reference,omitempty"`
	Total            int64     `json:"total"`
	RefundedAt       time.Time `json:"refunded_at"`
}

func newOrderRefundedEvent(o *order.Order, refundedAt time.Time) OrderRefundedEvent {
	return OrderRefundedEvent{
		OrderID:          o.ID,
		ReservationID:    o.ReservationID,
		CinemaID:         o.CinemaID,
		PaymentReference: o.PaymentReference,
		Total:            o.Total,
		RefundedAt:       refundedAt,
	}
}

// publishBestEffort は配信に失敗してもログに残すだけにする
func publishBestEffort(ctx context.Context, p EventPublisher, routingKey, key string, payload any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, key, payload); err != nil {
		logger.Warn("イベント配信に失敗",
			zap.String("event", routingKey),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
