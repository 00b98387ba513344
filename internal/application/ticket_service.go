package application

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/order"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/ticket"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/logger"
)

var ErrTicketNotIssued = apperror.New(apperror.ErrInvalidState, "チケットはまだ発行されていません")

// QRRenderer はQRコード画像を生成する
type QRRenderer interface {
	PNG(content string) ([]byte, error)
}

// TicketService は入場ゲートでの検証とQRコード生成を行う
type TicketService struct {
	orderRepo order.Repository
	signer    *ticket.Signer
	qr        QRRenderer
}

func NewTicketService(or order.Repository, signer *ticket.Signer, qr QRRenderer) *TicketService {
	return &TicketService{orderRepo: or, signer: signer, qr: qr}
}

// GateResult は入場可否の判定結果
type GateResult struct {
	Valid   bool
	OrderID string
	ShowID  string
	Message string
}

// ValidateAtGate はQRコードの内容を検証する
// 署名が正しく、注文が支払い済みかつ有効で、上映が一致する場合のみ入場可
func (s *TicketService) ValidateAtGate(ctx context.Context, content string) (*GateResult, error) {
	claims, err := s.signer.Verify(content)
	if err != nil {
		return &GateResult{Valid: false, Message: err.Error()}, nil
	}
	result := &GateResult{OrderID: claims.OrderID, ShowID: claims.ShowID}

	o, err := s.orderRepo.GetByID(ctx, claims.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			result.Message = err.Error()
			return result, nil
		}
		return nil, err
	}

	switch {
	case o.IsCanceled():
		result.Message = order.ErrOrderCanceled.Error()
	case !o.IsPaid():
		result.Message = order.ErrOrderNotPaid.Error()
	case o.ShowID != claims.ShowID:
		result.Message = "チケットの上映が一致しません"
	default:
		result.Valid = true
		result.Message = "入場できます"
	}
	if !result.Valid {
		logger.Info("入場を拒否しました", zap.String("order_id", o.ID), zap.String("reason", result.Message))
	}
	return result, nil
}

// RenderTicketPNG は支払い済み注文のチケットをQRコード画像にする
func (s *TicketService) RenderTicketPNG(ctx context.Context, orderID string, requester *string) ([]byte, error) {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.AccessibleBy(requester) {
		return nil, order.ErrOrderNotFound
	}
	token := o.VisibleTicket()
	if token == nil {
		return nil, ErrTicketNotIssued
	}
	return s.qr.PNG(*token)
}
