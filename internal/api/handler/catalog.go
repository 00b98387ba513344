package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/cinema-ticketing/internal/api/middleware"
	"github.com/sanosuguru/cinema-ticketing/internal/application"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/product"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/promotion"
)

// CatalogHandler は券種・売店商品・プロモーションを扱う
type CatalogHandler struct {
	catalog    CatalogServiceInterface
	promotions PromotionServiceInterface
}

func NewCatalogHandler(catalog CatalogServiceInterface, promotions PromotionServiceInterface) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, promotions: promotions}
}

type CreateTicketTypeRequest struct {
	CinemaID string `json:"cinema_id" validate:"omitempty,uuid"`
	Name     string `json:"name" validate:"required,max=100"`
	Price    int64  `json:"price" validate:"min=0"`
}

type CreateItemRequest struct {
	CinemaID string `json:"cinema_id" validate:"omitempty,uuid"`
	Type     string `json:"type" validate:"required,oneof=PRODUCT COMBO"`
	Name     string `json:"name" validate:"required,max=100"`
	Price    int64  `json:"price" validate:"min=0"`
}

type CreatePromotionRequest struct {
	CinemaID      string     `json:"cinema_id" validate:"omitempty,uuid"`
	Code          string     `json:"code" validate:"required,max=50"`
	Name          string     `json:"name" validate:"required,max=100"`
	DiscountType  string     `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue int64      `json:"discount_value" validate:"required,min=1"`
	StartsAt      *time.Time `json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at"`
	UsageLimit    *int       `json:"usage_limit" validate:"omitempty,min=1"`
	MinPurchase   int64      `json:"min_purchase" validate:"min=0"`
}

type ValidatePromotionRequest struct {
	CinemaID string `json:"cinema_id" validate:"required,uuid"`
	Code     string `json:"code" validate:"required,max=50"`
	Subtotal int64  `json:"subtotal" validate:"min=0"`
}

type ValidatePromotionResponse struct {
	Valid     bool              `json:"valid"`
	Discount  int64             `json:"discount"`
	Promotion PromotionResponse `json:"promotion"`
}

// cinemaOf はボディの映画館ID、なければトークンの映画館IDを返す
func cinemaOf(c echo.Context, requested string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	if id, ok := middleware.IdentityFrom(c); ok && id.CinemaID != "" {
		return id.CinemaID, nil
	}
	return "", echo.NewHTTPError(http.StatusBadRequest, "cinema_id を指定してください")
}

func (h *CatalogHandler) CreateTicketType(c echo.Context) error {
	var req CreateTicketTypeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	cinemaID, err := cinemaOf(c, req.CinemaID)
	if err != nil {
		return err
	}
	tt, err := h.catalog.CreateTicketType(c.Request().Context(), application.CreateTicketTypeInput{
		CinemaID: cinemaID, Name: req.Name, Price: req.Price,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTicketTypeResponse(tt))
}

func (h *CatalogHandler) CreateItem(c echo.Context) error {
	var req CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	cinemaID, err := cinemaOf(c, req.CinemaID)
	if err != nil {
		return err
	}
	it, err := h.catalog.CreateItem(c.Request().Context(), application.CreateItemInput{
		CinemaID: cinemaID, Type: product.Type(req.Type), Name: req.Name, Price: req.Price,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toItemResponse(it))
}

func (h *CatalogHandler) CreatePromotion(c echo.Context) error {
	var req CreatePromotionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	cinemaID, err := cinemaOf(c, req.CinemaID)
	if err != nil {
		return err
	}
	p, err := h.catalog.CreatePromotion(c.Request().Context(), application.CreatePromotionInput{
		CinemaID:      cinemaID,
		Code:          req.Code,
		Name:          req.Name,
		DiscountType:  promotion.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		UsageLimit:    req.UsageLimit,
		MinPurchase:   req.MinPurchase,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toPromotionResponse(p))
}

func (h *CatalogHandler) DeactivatePromotion(c echo.Context) error {
	promotionID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.catalog.DeactivatePromotion(c.Request().Context(), promotionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toPromotionResponse(p))
}

// ListPromotions は映画館で現在使えるプロモーションを返す
func (h *CatalogHandler) ListPromotions(c echo.Context) error {
	cinemaID, err := pathID(c, "cinema_id")
	if err != nil {
		return err
	}
	promos, err := h.catalog.ListActivePromotions(c.Request().Context(), cinemaID)
	if err != nil {
		return err
	}
	resp := make([]PromotionResponse, len(promos))
	for i, p := range promos {
		resp[i] = toPromotionResponse(p)
	}
	return c.JSON(http.StatusOK, resp)
}

// ValidatePromotion は利用回数を消費せずに割引額を試算する
func (h *CatalogHandler) ValidatePromotion(c echo.Context) error {
	var req ValidatePromotionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	applied, err := h.promotions.Validate(c.Request().Context(), req.CinemaID, req.Code, req.Subtotal)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ValidatePromotionResponse{
		Valid:     true,
		Discount:  applied.Discount,
		Promotion: toPromotionResponse(applied.Promotion),
	})
}
