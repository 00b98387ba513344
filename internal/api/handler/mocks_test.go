package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/cinema-ticketing/internal/api/middleware"
	"github.com/sanosuguru/cinema-ticketing/internal/application"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/order"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/product"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/promotion"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/reservation"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/show"
)

const (
	testUserID   = "user-123"
	testStaffID  = "staff-1"
	testCinemaID = "11111111-1111-1111-1111-111111111111"
	testShowID   = "22222222-2222-2222-2222-222222222222"
	testSeatID   = "33333333-3333-3333-3333-333333333333"
	testTypeID   = "44444444-4444-4444-4444-444444444444"
	testResID    = "55555555-5555-5555-5555-555555555555"
	testItemID   = "66666666-6666-6666-6666-666666666666"
	testOrderID  = "77777777-7777-7777-7777-777777777777"
	testPromoID  = "88888888-8888-8888-8888-888888888888"
	testMissing  = "99999999-9999-9999-9999-999999999999"
)

var (
	userIdentity  = &middleware.Identity{UserID: testUserID, Role: middleware.RoleUser}
	staffIdentity = &middleware.Identity{UserID: testStaffID, Role: middleware.RoleStaff, CinemaID: testCinemaID}
)

// newContext はリクエストと呼び出し元を設定したコンテキストを作成する
func newContext(e *echo.Echo, method, path, body string, id *middleware.Identity) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != nil {
		middleware.SetIdentity(c, id)
	}
	return c, rec
}

// MockReservationService はReservationServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) CreateHold(ctx context.Context, input application.CreateHoldInput) (*reservation.Reservation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) GetReservation(ctx context.Context, id string, requester *string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) ListMyReservations(ctx context.Context, ownerID string, limit, offset int) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) CancelReservation(ctx context.Context, id string, requester *string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

// MockOrderService はOrderServiceInterfaceのモック
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, input application.CreateOrderInput) (*order.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) CreateBoxOfficeOrder(ctx context.Context, input application.CreateBoxOfficeOrderInput) (*order.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) Pay(ctx context.Context, orderID string, requester *string, input application.PayInput) (*application.PaymentOutcome, error) {
	args := m.Called(ctx, orderID, requester, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.PaymentOutcome), args.Error(1)
}

func (m *MockOrderService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	args := m.Called(ctx, body, signature)
	return args.Error(0)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, orderID string) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id string, requester *string) (*order.Order, error) {
	args := m.Called(ctx, id, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListMyOrders(ctx context.Context, userID string, limit, offset int) ([]*order.Order, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

// MockTicketService はTicketServiceInterfaceのモック
type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) ValidateAtGate(ctx context.Context, content string) (*application.GateResult, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.GateResult), args.Error(1)
}

func (m *MockTicketService) RenderTicketPNG(ctx context.Context, orderID string, requester *string) ([]byte, error) {
	args := m.Called(ctx, orderID, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockShowService はShowServiceInterfaceのモック
type MockShowService struct {
	mock.Mock
}

func (m *MockShowService) CreateShow(ctx context.Context, input application.CreateShowInput) (*show.Show, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*show.Show), args.Error(1)
}

func (m *MockShowService) GetShow(ctx context.Context, id string) (*show.Show, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*show.Show), args.Error(1)
}

func (m *MockShowService) CancelShow(ctx context.Context, id string) (*show.Show, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*show.Show), args.Error(1)
}

func (m *MockShowService) GetSeatMap(ctx context.Context, showID string) ([]application.SeatAvailability, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]application.SeatAvailability), args.Error(1)
}

func (m *MockShowService) CountAvailableSeats(ctx context.Context, showID string) (int, error) {
	args := m.Called(ctx, showID)
	return args.Int(0), args.Error(1)
}

// MockCatalogService はCatalogServiceInterfaceのモック
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateTicketType(ctx context.Context, input application.CreateTicketTypeInput) (*seat.TicketType, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*seat.TicketType), args.Error(1)
}

func (m *MockCatalogService) CreateItem(ctx context.Context, input application.CreateItemInput) (*product.Item, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Item), args.Error(1)
}

func (m *MockCatalogService) CreatePromotion(ctx context.Context, input application.CreatePromotionInput) (*promotion.Promotion, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.Promotion), args.Error(1)
}

func (m *MockCatalogService) DeactivatePromotion(ctx context.Context, id string) (*promotion.Promotion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*promotion.Promotion), args.Error(1)
}

func (m *MockCatalogService) ListActivePromotions(ctx context.Context, cinemaID string) ([]*promotion.Promotion, error) {
	args := m.Called(ctx, cinemaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*promotion.Promotion), args.Error(1)
}

// MockPromotionService はPromotionServiceInterfaceのモック
type MockPromotionService struct {
	mock.Mock
}

func (m *MockPromotionService) Validate(ctx context.Context, cinemaID, code string, subtotal int64) (*application.AppliedPromotion, error) {
	args := m.Called(ctx, cinemaID, code, subtotal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.AppliedPromotion), args.Error(1)
}

// run はハンドラーを実行し、エラーはアプリのエラーハンドラーでレスポンスに変換する
func run(e *echo.Echo, c echo.Context, h echo.HandlerFunc) {
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
}
