// Package gateway は決済ゲートウェイのアダプタを提供する
package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/payment"
)

// MockGateway は外部と通信しない決済ゲートウェイ
//
// 既定ではすべての決済を承認する。
type MockGateway struct {
	mu       sync.Mutex
	status   string
	payments map[string]*payment.PaymentInfo
	refunded map[string]bool
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		status:   payment.GatewayApproved,
		payments: make(map[string]*payment.PaymentInfo),
		refunded: make(map[string]bool),
	}
}

// WithStatus は以降の決済で返す状態を設定する
func (g *MockGateway) WithStatus(status string) *MockGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = status
	return g
}

func (g *MockGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := "MOCK-" + uuid.New().String()
	g.payments[id] = &payment.PaymentInfo{
		PaymentID:         id,
		Status:            g.status,
		ExternalReference: req.OrderID,
	}
	return &payment.ChargeResult{PaymentID: id, Status: g.status}, nil
}

func (g *MockGateway) GetPayment(ctx context.Context, paymentID string) (*payment.PaymentInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	info, ok := g.payments[paymentID]
	if !ok {
		return nil, payment.ErrGatewayFailure
	}
	copied := *info
	return &copied, nil
}

func (g *MockGateway) Refund(ctx context.Context, paymentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if info, ok := g.payments[paymentID]; ok {
		info.Status = payment.GatewayRefunded
	}
	g.refunded[paymentID] = true
	return nil
}

// Refunded は返金済みかを返す
func (g *MockGateway) Refunded(paymentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refunded[paymentID]
}

var _ payment.Gateway = (*MockGateway)(nil)
