package promotion

import (
	"strings"
	"time"
)

// DiscountType は割引の種別を表す
type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

// Promotion はプロモーションコードを表す
type Promotion struct {
	ID            string
	CinemaID      string
	Code          string
	Name          string
	DiscountType  DiscountType
	DiscountValue int64
	StartsAt      *time.Time
	EndsAt        *time.Time
	UsageLimit    *int
	UsageCount    int
	MinPurchase   int64
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeCode はコードを比較用の形式にする
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewPromotion は新しいプロモーションを作成する
func NewPromotion(cinemaID, code, name string, discountType DiscountType, value int64) *Promotion {
	now := time.Now()
	return &Promotion{
		CinemaID:      cinemaID,
		Code:          NormalizeCode(code),
		Name:          name,
		DiscountType:  discountType,
		DiscountValue: value,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate はプロモーションの検証を行う
func (p *Promotion) Validate() error {
	if p.CinemaID == "" {
		return ErrCinemaIDRequired
	}
	if p.Code == "" {
		return ErrCodeRequired
	}
	switch p.DiscountType {
	case DiscountPercentage:
		if p.DiscountValue < 1 || p.DiscountValue > 100 {
			return ErrInvalidPercentage
		}
	case DiscountFixedAmount:
		if p.DiscountValue <= 0 {
			return ErrInvalidFixedAmount
		}
	default:
		return ErrInvalidDiscountType
	}
	if p.StartsAt != nil && p.EndsAt != nil && !p.EndsAt.After(*p.StartsAt) {
		return ErrInvalidPeriod
	}
	if p.UsageLimit != nil && *p.UsageLimit < 1 {
		return ErrInvalidUsageLimit
	}
	if p.MinPurchase < 0 {
		return ErrInvalidMinPurchase
	}
	return nil
}

// Check は小計 subtotal に対して now の時点でコードが使えるかを検証する
func (p *Promotion) Check(subtotal int64, now time.Time) error {
	if !p.Active {
		return ErrPromotionInactive
	}
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return ErrPromotionNotStarted
	}
	if p.EndsAt != nil && now.After(*p.EndsAt) {
		return ErrPromotionEnded
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return ErrPromotionUsageLimitReached
	}
	if subtotal < p.MinPurchase {
		return ErrPromotionMinPurchase
	}
	return nil
}

// Discount は割引額を返す
// 割合割引は四捨五入、定額割引は小計を上限とする
func (p *Promotion) Discount(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	var d int64
	switch p.DiscountType {
	case DiscountPercentage:
		d = (subtotal*p.DiscountValue + 50) / 100
	case DiscountFixedAmount:
		d = p.DiscountValue
	}
	if d > subtotal {
		d = subtotal
	}
	return d
}

// Deactivate はプロモーションを無効にする
func (p *Promotion) Deactivate() {
	p.Active = false
	p.UpdatedAt = time.Now()
}
