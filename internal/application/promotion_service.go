package application

import (
	"context"
	"time"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/promotion"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
)

// PromotionService はプロモーションコードを評価する
type PromotionService struct {
	promotionRepo promotion.Repository
	now           func() time.Time
}

func NewPromotionService(pr promotion.Repository) *PromotionService {
	return &PromotionService{promotionRepo: pr, now: time.Now}
}

func (s *PromotionService) WithClock(now func() time.Time) *PromotionService {
	s.now = now
	return s
}

// AppliedPromotion は適用されたコードと割引額
type AppliedPromotion struct {
	Promotion *promotion.Promotion
	Discount  int64
}

// Evaluate は注文作成のトランザクション内でコードを検証し、利用回数を1増やす
// 行ロックを取るため、上限付きコードの同時利用で上限を超えない
func (s *PromotionService) Evaluate(ctx context.Context, tx transaction.Tx, cinemaID, code string, subtotal int64, now time.Time) (*AppliedPromotion, error) {
	p, err := s.promotionRepo.GetByCodeForUpdate(ctx, tx, cinemaID, promotion.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if err := p.Check(subtotal, now); err != nil {
		return nil, err
	}
	if err := s.promotionRepo.IncrementUsage(ctx, tx, p.ID); err != nil {
		return nil, err
	}
	p.UsageCount++
	return &AppliedPromotion{Promotion: p, Discount: p.Discount(subtotal)}, nil
}

// Validate は利用回数を変えずにコードを検証し、割引額を試算する
func (s *PromotionService) Validate(ctx context.Context, cinemaID, code string, subtotal int64) (*AppliedPromotion, error) {
	p, err := s.promotionRepo.GetByCode(ctx, cinemaID, promotion.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if err := p.Check(subtotal, s.now()); err != nil {
		return nil, err
	}
	return &AppliedPromotion{Promotion: p, Discount: p.Discount(subtotal)}, nil
}
