//go:build integration
// +build integration

package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/order"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/payment"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/product"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/promotion"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/reservation"
)

// TestScenario_FullPurchaseFlow はオンライン購入の完全なフローをテストします
// 上映作成 → 仮押さえ → 注文 → 決済 → チケット発行 → 入場確認
func TestScenario_FullPurchaseFlow(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	sh, seats, tt := env.createShowWithSeats(t, 2, 5)

	popcorn, err := env.catalog.CreateItem(ctx, CreateItemInput{CinemaID: env.cinemaID, Type: product.TypeProduct, Name: "ポップコーン", Price: 600})
	require.NoError(t, err)
	_, err = env.catalog.CreatePromotion(ctx, CreatePromotionInput{
		CinemaID:      env.cinemaID,
		Code:          "weekend10",
		Name:          "週末割",
		DiscountType:  promotion.DiscountPercentage,
		DiscountValue: 10,
	})
	require.NoError(t, err)

	owner := "user-tanaka"

	// 1. 空席数を確認
	available, err := env.shows.CountAvailableSeats(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, available)

	// 2. 2席を仮押さえ
	hold, err := env.reservations.CreateHold(ctx, holdInput(sh.ID, owner, "order-tanaka-001", tt, seats[0], seats[1]))
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, hold.Status)
	assert.Equal(t, int64(3600), hold.Total())

	available, err = env.shows.CountAvailableSeats(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, available)

	// 3. 売店商品とプロモーションコード付きで注文
	o, err := env.orders.CreateOrder(ctx, CreateOrderInput{
		ReservationID: hold.ID,
		PayerID:       &owner,
		Items:         []ItemSelection{{ItemID: popcorn.ID, Quantity: 1}},
		PromotionCode: "WEEKEND10",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4200), o.Subtotal)
	assert.Equal(t, int64(420), o.Discount)
	assert.Equal(t, int64(3780), o.Total)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)

	confirmed, err := env.reservations.GetReservation(ctx, hold.ID, &owner)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusConfirmed, confirmed.Status)

	// 4. 決済
	outcome, err := env.orders.Pay(ctx, o.ID, &owner, PayInput{PaymentMethodID: "visa", PayerEmail: "tanaka@example.com"})
	require.NoError(t, err)
	assert.Equal(t, payment.GatewayApproved, outcome.Status)
	require.NotNil(t, outcome.Order.TicketToken)

	paid, err := env.orders.GetOrder(ctx, o.ID, &owner)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, order.StatusCompleted, paid.Status)

	// 5. 入場確認
	result, err := env.tickets.ValidateAtGate(ctx, *paid.TicketToken)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, sh.ID, result.ShowID)

	png, err := env.tickets.RenderTicketPNG(ctx, o.ID, &owner)
	require.NoError(t, err)
	assert.NotEmpty(t, png)

	// 6. 他人からは見えない
	other := "user-suzuki"
	_, err = env.orders.GetOrder(ctx, o.ID, &other)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

// TestScenario_MultipleUsersCompeting は複数ユーザーが重なる座席を同時に押さえるシナリオ
func TestScenario_MultipleUsersCompeting(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	sh, seats, tt := env.createShowWithSeats(t, 1, 6)

	const users = 5
	var success int32
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// 全員が seats[2] を含む2席を狙う
			first := seats[1+n%2]
			input := holdInput(sh.ID, fmt.Sprintf("user-%d", n), "", tt, first, seats[2+n%2])
			if _, err := env.reservations.CreateHold(ctx, input); err == nil {
				atomic.AddInt32(&success, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), success, "重なる座席を持つ仮押さえは1件だけ成功する")

	available, err := env.shows.CountAvailableSeats(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, available)
}

// TestScenario_RefundKeepsSeatsTaken は返金後も座席が再販されないことを確認する
func TestScenario_RefundKeepsSeatsTaken(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	sh, seats, tt := env.createShowWithSeats(t, 1, 2)
	owner := "user-refund"

	hold, err := env.reservations.CreateHold(ctx, holdInput(sh.ID, owner, "", tt, seats[0]))
	require.NoError(t, err)
	o, err := env.orders.CreateOrder(ctx, CreateOrderInput{ReservationID: hold.ID, PayerID: &owner})
	require.NoError(t, err)
	outcome, err := env.orders.Pay(ctx, o.ID, &owner, PayInput{PaymentMethodID: "visa"})
	require.NoError(t, err)
	token := *outcome.Order.TicketToken

	refunded, err := env.orders.CancelOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentRefunded, refunded.PaymentStatus)
	assert.Nil(t, refunded.TicketToken)
	assert.True(t, env.gateway.Refunded(outcome.PaymentID))

	// 返金済みのチケットは入場できない
	result, err := env.tickets.ValidateAtGate(ctx, token)
	require.NoError(t, err)
	assert.False(t, result.Valid)

	// 座席は解放されない
	_, err = env.reservations.CreateHold(ctx, holdInput(sh.ID, "user-next", "", tt, seats[0]))
	assert.ErrorIs(t, err, reservation.ErrSeatUnavailable)

	// 二重キャンセルは不可
	_, err = env.orders.CancelOrder(ctx, o.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotCancelable)
}

// TestScenario_BoxOfficeSale は窓口販売のシナリオ
func TestScenario_BoxOfficeSale(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	sh, seats, tt := env.createShowWithSeats(t, 1, 3)

	o, err := env.orders.CreateBoxOfficeOrder(ctx, CreateBoxOfficeOrderInput{
		OperatorID:    "staff-1",
		ShowID:        sh.ID,
		Seats:         []SeatSelection{{SeatID: seats[0].ID, TicketTypeID: tt.ID}},
		PaymentMethod: "CASH",
	})
	require.NoError(t, err)
	assert.Equal(t, order.TypeInPerson, o.Type)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	require.NotNil(t, o.TicketToken)

	result, err := env.tickets.ValidateAtGate(ctx, *o.TicketToken)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	// 窓口で売れた座席はオンラインで押さえられない
	_, err = env.reservations.CreateHold(ctx, holdInput(sh.ID, "user-online", "", tt, seats[0]))
	assert.ErrorIs(t, err, reservation.ErrSeatUnavailable)

	// 窓口の返金はゲートウェイを介さない
	refunded, err := env.orders.CancelOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentRefunded, refunded.PaymentStatus)
}

// TestScenario_PaymentRejected は決済が拒否された場合のシナリオ
func TestScenario_PaymentRejected(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	sh, seats, tt := env.createShowWithSeats(t, 1, 1)
	owner := "user-rejected"

	hold, err := env.reservations.CreateHold(ctx, holdInput(sh.ID, owner, "", tt, seats[0]))
	require.NoError(t, err)
	o, err := env.orders.CreateOrder(ctx, CreateOrderInput{ReservationID: hold.ID, PayerID: &owner})
	require.NoError(t, err)

	env.gateway.WithStatus(payment.GatewayRejected)
	outcome, err := env.orders.Pay(ctx, o.ID, &owner, PayInput{PaymentMethodID: "visa"})
	require.NoError(t, err)
	assert.Equal(t, order.PaymentFailed, outcome.Order.PaymentStatus)
	assert.Nil(t, outcome.Order.TicketToken)
	assert.Equal(t, "https://example.com/failure?order_id="+o.ID, outcome.RedirectURL)
}
