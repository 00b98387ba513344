package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/cinema-ticketing/internal/api/middleware"
)

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health       *HealthHandler
	Reservations *ReservationHandler
	Orders       *OrderHandler
	Payments     *PaymentHandler
	Tickets      *TicketHandler
	Shows        *ShowHandler
	Catalog      *CatalogHandler
}

// RegisterRoutes は /api/v1 配下にルートを登録する
// auth は JWTAuth（テストでは差し替え可能）
func RegisterRoutes(e *echo.Echo, h *Handlers, auth echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")
	v1.GET("/health", h.Health.Check)

	// 公開
	v1.GET("/shows/:id", h.Shows.GetByID)
	v1.GET("/shows/:id/seats", h.Shows.Seats)
	v1.GET("/shows/:id/seats/available/count", h.Shows.CountAvailable)
	v1.GET("/cinemas/:cinema_id/promotions", h.Catalog.ListPromotions)
	v1.POST("/promotions/validate", h.Catalog.ValidatePromotion)
	v1.POST("/payments/webhook", h.Payments.Webhook)

	// 認証済みユーザー
	user := v1.Group("", auth)
	user.POST("/reservations", h.Reservations.Create)
	user.GET("/reservations", h.Reservations.ListMine)
	user.GET("/reservations/:id", h.Reservations.GetByID)
	user.DELETE("/reservations/:id", h.Reservations.Cancel)

	user.POST("/orders", h.Orders.Create)
	user.GET("/orders", h.Orders.ListMine)
	user.GET("/orders/:id", h.Orders.GetByID)
	user.POST("/orders/:id/pay", h.Orders.Pay)
	user.GET("/orders/:id/ticket.png", h.Tickets.PNG)

	// スタッフ
	staff := v1.Group("", auth, middleware.RequireRole(middleware.RoleStaff, middleware.RoleAdmin))
	staff.POST("/orders/box-office", h.Orders.CreateBoxOffice)
	staff.POST("/orders/:id/cancel", h.Orders.Cancel)
	staff.POST("/gate/validate", h.Tickets.Validate)
	staff.POST("/shows", h.Shows.Create)
	staff.POST("/shows/:id/cancel", h.Shows.Cancel)
	staff.POST("/ticket-types", h.Catalog.CreateTicketType)
	staff.POST("/items", h.Catalog.CreateItem)
	staff.POST("/promotions", h.Catalog.CreatePromotion)
	staff.DELETE("/promotions/:id", h.Catalog.DeactivatePromotion)
}
