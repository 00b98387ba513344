package payment

import (
	"context"
	"strings"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/order"
)

// 決済ゲートウェイの状態語彙
const (
	GatewayApproved  = "approved"
	GatewayPending   = "pending"
	GatewayInProcess = "in_process"
	GatewayRejected  = "rejected"
	GatewayCancelled = "cancelled"
	GatewayRefunded  = "refunded"
)

// RedirectURLs は決済後の遷移先
type RedirectURLs struct {
	Success string
	Failure string
	Pending string
}

// ForStatus はゲートウェイの状態に対応する遷移先を返す
func (r RedirectURLs) ForStatus(status order.PaymentStatus) string {
	switch status {
	case order.PaymentPaid:
		return r.Success
	case order.PaymentPending:
		return r.Pending
	default:
		return r.Failure
	}
}

// ChargeRequest は決済要求
type ChargeRequest struct {
	OrderID      string
	Amount       int64
	Description  string
	PayerEmail   string
	MethodID     string
	CardToken    string
	Installments int
	RedirectURLs RedirectURLs
	// IdempotencyKey は決済の試行ごとに一意なキー。空の場合は注文IDを使う
	IdempotencyKey string
}

// ChargeResult は決済要求の結果
type ChargeResult struct {
	PaymentID string
	Status    string
}

// PaymentInfo はゲートウェイに記録された決済
type PaymentInfo struct {
	PaymentID         string
	Status            string
	ExternalReference string
}

// Gateway は外部決済ゲートウェイのインターフェース
type Gateway interface {
	// Charge は決済を要求する
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// GetPayment は決済の現在の状態を取得する
	GetPayment(ctx context.Context, paymentID string) (*PaymentInfo, error)

	// Refund は決済を全額返金する
	Refund(ctx context.Context, paymentID string) error
}

// MapStatus はゲートウェイの状態を注文の支払い状態に変換する
func MapStatus(gatewayStatus string) (order.PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(gatewayStatus)) {
	case GatewayApproved:
		return order.PaymentPaid, nil
	case GatewayPending, GatewayInProcess:
		return order.PaymentPending, nil
	case GatewayRejected, GatewayCancelled, GatewayRefunded:
		return order.PaymentFailed, nil
	default:
		return "", ErrUnknownStatus
	}
}
