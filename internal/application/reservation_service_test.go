//go:build integration
// +build integration

package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/cinema-ticketing/internal/config"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/payment"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/reservation"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/show"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/ticket"
	"github.com/sanosuguru/cinema-ticketing/internal/infrastructure/gateway"
	"github.com/sanosuguru/cinema-ticketing/internal/infrastructure/postgres"
	"github.com/sanosuguru/cinema-ticketing/internal/infrastructure/qrcode"
	redisinfra "github.com/sanosuguru/cinema-ticketing/internal/infrastructure/redis"
)

type integrationEnv struct {
	db           *sqlx.DB
	reservations *ReservationService
	shows        *ShowService
	catalog      *CatalogService
	orders       *OrderService
	tickets      *TicketService
	gateway      *gateway.MockGateway
	cinemaID     string
}

func setupTestEnv(t testing.TB) (*integrationEnv, func()) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}
	if _, err := postgres.RunMigrations(db.DB, "../../migrations"); err != nil {
		t.Fatalf("マイグレーション失敗: %v", err)
	}

	var lockManager redisinfra.LockManagerInterface
	var seatCache redisinfra.SeatCacheInterface
	redisClient, err := redisinfra.NewClient(&redisinfra.Config{Host: cfg.Redis.Host, Port: cfg.Redis.Port})
	if err == nil {
		lockManager = redisinfra.NewLockManager(redisClient)
		seatCache = redisinfra.NewSeatCache(redisClient)
	} else {
		t.Logf("Redisなしで実行: %v", err)
	}

	txManager := postgres.NewTxManager(db)
	showRepo := postgres.NewShowRepository(db)
	seatRepo := postgres.NewSeatRepository(db)
	ticketTypeRepo := postgres.NewTicketTypeRepository(db)
	itemRepo := postgres.NewItemRepository(db)
	promoRepo := postgres.NewPromotionRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	orderRepo := postgres.NewOrderRepository(db)

	signer := ticket.NewSigner("integration-secret", 0)
	mockGateway := gateway.NewMockGateway()

	reservations := NewReservationService(txManager, reservationRepo, seatRepo, ticketTypeRepo, showRepo, lockManager, seatCache)
	orders := NewOrderService(txManager, orderRepo, reservationRepo, itemRepo, reservations, NewPromotionService(promoRepo), mockGateway, signer).
		WithRedirectURLs(payment.RedirectURLs{
			Success: "https://example.com/success",
			Failure: "https://example.com/failure",
			Pending: "https://example.com/pending",
		})
	env := &integrationEnv{
		db:           db,
		reservations: reservations,
		shows:        NewShowService(txManager, showRepo, seatRepo, reservationRepo, seatCache),
		catalog:      NewCatalogService(ticketTypeRepo, itemRepo, promoRepo),
		orders:       orders,
		tickets:      NewTicketService(orderRepo, signer, qrcode.NewRenderer(0)),
		gateway:      mockGateway,
		cinemaID:     uuid.NewString(),
	}

	cleanup := func() {
		db.Exec("DELETE FROM order_items")
		db.Exec("DELETE FROM orders")
		db.Exec("DELETE FROM reservation_seats")
		db.Exec("DELETE FROM reservations")
		db.Exec("DELETE FROM promotions")
		db.Exec("DELETE FROM items")
		db.Exec("DELETE FROM ticket_types")
		db.Exec("DELETE FROM seats")
		db.Exec("DELETE FROM shows")
		if redisClient != nil {
			redisClient.Close()
		}
		db.Close()
	}
	return env, cleanup
}

// createShowWithSeats は rows×perRow 席のスクリーンで上映を作成する
func (e *integrationEnv) createShowWithSeats(t testing.TB, rows, perRow int) (*show.Show, []*seat.Seat, *seat.TicketType) {
	t.Helper()
	ctx := context.Background()

	layout := make([]SeatLayout, 0, rows*perRow)
	for r := 0; r < rows; r++ {
		for n := 1; n <= perRow; n++ {
			layout = append(layout, SeatLayout{Row: string(rune('A' + r)), Number: n, Type: seat.TypeStandard})
		}
	}
	start := time.Now().Add(24 * time.Hour)
	sh, err := e.shows.CreateShow(ctx, CreateShowInput{
		CinemaID:  e.cinemaID,
		MovieID:   uuid.NewString(),
		RoomID:    uuid.NewString(),
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Seats:     layout,
	})
	require.NoError(t, err)

	seatMap, err := e.shows.GetSeatMap(ctx, sh.ID)
	require.NoError(t, err)
	seats := make([]*seat.Seat, len(seatMap))
	for i, s := range seatMap {
		seats[i] = s.Seat
	}

	tt, err := e.catalog.CreateTicketType(ctx, CreateTicketTypeInput{CinemaID: e.cinemaID, Name: "一般", Price: 1800})
	require.NoError(t, err)
	return sh, seats, tt
}

func holdInput(showID, owner, key string, tt *seat.TicketType, seats ...*seat.Seat) CreateHoldInput {
	sel := make([]SeatSelection, len(seats))
	for i, s := range seats {
		sel[i] = SeatSelection{SeatID: s.ID, TicketTypeID: tt.ID}
	}
	return CreateHoldInput{ShowID: showID, OwnerID: &owner, Seats: sel, IdempotencyKey: key}
}

func TestConcurrentReservation(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	sh, seats, tt := env.createShowWithSeats(t, 1, 1)

	t.Run("10並行リクエストで1席のみ予約成功", func(t *testing.T) {
		const numGoroutines = 10
		var successCount int32
		var conflictCount int32
		var wg sync.WaitGroup

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(userNum int) {
				defer wg.Done()
				input := holdInput(sh.ID, fmt.Sprintf("user-%d", userNum), fmt.Sprintf("idem-concurrent-%d", userNum), tt, seats[0])
				_, err := env.reservations.CreateHold(ctx, input)
				if err == nil {
					atomic.AddInt32(&successCount, 1)
				} else if assert.ErrorIs(t, err, reservation.ErrSeatUnavailable) {
					atomic.AddInt32(&conflictCount, 1)
				}
			}(i)
		}
		wg.Wait()

		// 1つだけ成功するべき
		assert.Equal(t, int32(1), successCount, "成功は1つだけ")
		assert.Equal(t, int32(numGoroutines-1), conflictCount, "残りは全て座席確保済み")
	})
}

func TestIdempotency(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	sh, seats, tt := env.createShowWithSeats(t, 1, 2)

	t.Run("同じ冪等性キーで複数回リクエストしても同じ予約が返る", func(t *testing.T) {
		input := holdInput(sh.ID, "user-idem", "same-idem-key", tt, seats[0])

		res1, err := env.reservations.CreateHold(ctx, input)
		require.NoError(t, err)

		res2, err := env.reservations.CreateHold(ctx, input)
		require.NoError(t, err)

		assert.Equal(t, res1.ID, res2.ID, "同じ予約IDが返るべき")
	})
}

func TestReservationConfirmAndCancel(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	sh, seats, tt := env.createShowWithSeats(t, 1, 2)

	t.Run("確定後は CONFIRMED で座席は埋まったまま", func(t *testing.T) {
		res, err := env.reservations.CreateHold(ctx, holdInput(sh.ID, "user-confirm", "confirm-test", tt, seats[0]))
		require.NoError(t, err)

		confirmed, err := env.reservations.Confirm(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusConfirmed, confirmed.Status)

		_, err = env.reservations.CreateHold(ctx, holdInput(sh.ID, "user-other", "after-confirm", tt, seats[0]))
		assert.ErrorIs(t, err, reservation.ErrSeatUnavailable)
	})

	t.Run("キャンセル後は座席が再利用可能", func(t *testing.T) {
		owner := "user-cancel"
		res, err := env.reservations.CreateHold(ctx, holdInput(sh.ID, owner, "cancel-test", tt, seats[1]))
		require.NoError(t, err)

		canceled, err := env.reservations.CancelReservation(ctx, res.ID, &owner)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusCanceled, canceled.Status)

		// 同じ座席を再予約できる
		_, err = env.reservations.CreateHold(ctx, holdInput(sh.ID, "user-reuse", "reuse-test", tt, seats[1]))
		require.NoError(t, err)
	})
}

func TestSweepExpired(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()
	sh, seats, tt := env.createShowWithSeats(t, 1, 3)

	// 作成時刻を1時間前にずらして期限切れの仮押さえを作る
	past := time.Now().Add(-time.Hour)
	env.reservations.WithClock(func() time.Time { return past })
	expired, err := env.reservations.CreateHold(ctx, holdInput(sh.ID, "user-late", "", tt, seats[0], seats[1]))
	require.NoError(t, err)

	env.reservations.WithClock(time.Now)
	live, err := env.reservations.CreateHold(ctx, holdInput(sh.ID, "user-live", "", tt, seats[2]))
	require.NoError(t, err)

	count, err := env.reservations.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := env.reservations.GetReservation(ctx, expired.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusExpired, got.Status)

	got, err = env.reservations.GetReservation(ctx, live.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, got.Status)

	// 2回目は何も起きない
	count, err = env.reservations.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// 解放された座席は再び押さえられる
	_, err = env.reservations.CreateHold(ctx, holdInput(sh.ID, "user-next", "", tt, seats[0]))
	assert.NoError(t, err)
}
