package application

import (
	"context"
	"time"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/product"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/promotion"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
)

// CatalogService は券種・商品・プロモーションを管理する
type CatalogService struct {
	ticketTypeRepo seat.TicketTypeRepository
	itemRepo       product.Repository
	promotionRepo  promotion.Repository
	now            func() time.Time
}

func NewCatalogService(tr seat.TicketTypeRepository, ir product.Repository, pr promotion.Repository) *CatalogService {
	return &CatalogService{ticketTypeRepo: tr, itemRepo: ir, promotionRepo: pr, now: time.Now}
}

func (s *CatalogService) WithClock(now func() time.Time) *CatalogService {
	s.now = now
	return s
}

type CreateTicketTypeInput struct {
	CinemaID string
	Name     string
	Price    int64
}

func (s *CatalogService) CreateTicketType(ctx context.Context, input CreateTicketTypeInput) (*seat.TicketType, error) {
	tt := seat.NewTicketType(input.CinemaID, input.Name, input.Price)
	if err := tt.Validate(); err != nil {
		return nil, err
	}
	if err := s.ticketTypeRepo.Create(ctx, tt); err != nil {
		return nil, err
	}
	return tt, nil
}

type CreateItemInput struct {
	CinemaID string
	Type     product.Type
	Name     string
	Price    int64
}

func (s *CatalogService) CreateItem(ctx context.Context, input CreateItemInput) (*product.Item, error) {
	it := product.NewItem(input.CinemaID, input.Type, input.Name, input.Price)
	if err := it.Validate(); err != nil {
		return nil, err
	}
	if err := s.itemRepo.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

type CreatePromotionInput struct {
	CinemaID      string
	Code          string
	Name          string
	DiscountType  promotion.DiscountType
	DiscountValue int64
	StartsAt      *time.Time
	EndsAt        *time.Time
	UsageLimit    *int
	MinPurchase   int64
}

// CreatePromotion はプロモーションを作成する（コードは映画館内で一意）
func (s *CatalogService) CreatePromotion(ctx context.Context, input CreatePromotionInput) (*promotion.Promotion, error) {
	p := promotion.NewPromotion(input.CinemaID, input.Code, input.Name, input.DiscountType, input.DiscountValue)
	p.StartsAt = input.StartsAt
	p.EndsAt = input.EndsAt
	p.UsageLimit = input.UsageLimit
	p.MinPurchase = input.MinPurchase
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.promotionRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) DeactivatePromotion(ctx context.Context, id string) (*promotion.Promotion, error) {
	p, err := s.promotionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.promotionRepo.Deactivate(ctx, id); err != nil {
		return nil, err
	}
	p.Deactivate()
	return p, nil
}

func (s *CatalogService) ListActivePromotions(ctx context.Context, cinemaID string) ([]*promotion.Promotion, error) {
	return s.promotionRepo.ListActive(ctx, cinemaID, s.now())
}
