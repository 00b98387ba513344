package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/show"
	redisinfra "github.com/sanosuguru/cinema-ticketing/internal/infrastructure/redis"
)

func newShowService(deps *testDeps) *ShowService {
	return NewShowService(deps.txManager, deps.showRepo, deps.seatRepo, deps.resRepo, deps.seatCache)
}

func TestShowService_CreateShow(t *testing.T) {
	ctx := context.Background()
	start := testNow.Add(24 * time.Hour)

	t.Run("座席未登録のスクリーンにはレイアウトを登録", func(t *testing.T) {
		deps := newTestDeps()
		service := newShowService(deps)

		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.showRepo.On("Create", ctx, deps.tx, mock.AnythingOfType("*show.Show")).Return(nil)
		deps.seatRepo.On("CountByRoomID", ctx, deps.tx, "room-1").Return(0, nil)
		deps.seatRepo.On("CreateBulk", ctx, deps.tx, mock.MatchedBy(func(seats []*seat.Seat) bool {
			return len(seats) == 3 && seats[2].Type == seat.TypePremium && seats[0].Type == seat.TypeStandard
		})).Return(nil)

		sh, err := service.CreateShow(ctx, CreateShowInput{
			CinemaID:  "cinema-1",
			MovieID:   "movie-1",
			RoomID:    "room-1",
			StartTime: start,
			EndTime:   start.Add(2 * time.Hour),
			Seats: []SeatLayout{
				{Row: "A", Number: 1},
				{Row: "A", Number: 2},
				{Row: "B", Number: 1, Type: seat.TypePremium},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, show.StatusScheduled, sh.Status)
		deps.seatRepo.AssertExpectations(t)
		deps.tx.AssertExpectations(t)
	})

	t.Run("座席登録済みのスクリーンはそのまま使う", func(t *testing.T) {
		deps := newTestDeps()
		service := newShowService(deps)

		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.tx.On("Commit").Return(nil)
		deps.showRepo.On("Create", ctx, deps.tx, mock.AnythingOfType("*show.Show")).Return(nil)
		deps.seatRepo.On("CountByRoomID", ctx, deps.tx, "room-1").Return(120, nil)

		_, err := service.CreateShow(ctx, CreateShowInput{
			CinemaID:  "cinema-1",
			MovieID:   "movie-1",
			RoomID:    "room-1",
			StartTime: start,
			EndTime:   start.Add(2 * time.Hour),
			Seats:     []SeatLayout{{Row: "A", Number: 1}},
		})

		require.NoError(t, err)
		deps.seatRepo.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("座席未登録でレイアウト指定なし", func(t *testing.T) {
		deps := newTestDeps()
		service := newShowService(deps)

		deps.txManager.On("Begin", ctx).Return(deps.tx, nil)
		deps.tx.On("Rollback").Return(nil)
		deps.showRepo.On("Create", ctx, deps.tx, mock.AnythingOfType("*show.Show")).Return(nil)
		deps.seatRepo.On("CountByRoomID", ctx, deps.tx, "room-1").Return(0, nil)

		_, err := service.CreateShow(ctx, CreateShowInput{
			CinemaID:  "cinema-1",
			MovieID:   "movie-1",
			RoomID:    "room-1",
			StartTime: start,
			EndTime:   start.Add(2 * time.Hour),
		})

		assert.ErrorIs(t, err, seat.ErrSeatLayoutRequired)
		deps.tx.AssertNotCalled(t, "Commit")
	})

	t.Run("終了時刻が開始時刻より前", func(t *testing.T) {
		deps := newTestDeps()
		service := newShowService(deps)

		_, err := service.CreateShow(ctx, CreateShowInput{
			CinemaID:  "cinema-1",
			MovieID:   "movie-1",
			RoomID:    "room-1",
			StartTime: start,
			EndTime:   start.Add(-time.Hour),
		})

		assert.ErrorIs(t, err, show.ErrInvalidShowTime)
		deps.txManager.AssertNotCalled(t, "Begin", mock.Anything)
	})
}

func TestShowService_CancelShow(t *testing.T) {
	ctx := context.Background()

	t.Run("上映を中止してキャッシュを破棄", func(t *testing.T) {
		deps := newTestDeps()
		service := newShowService(deps)
		sh := bookableShow()

		deps.showRepo.On("GetByID", ctx, "show-1").Return(sh, nil)
		deps.showRepo.On("UpdateStatus", ctx, sh).Return(nil)
		deps.seatCache.On("Invalidate", ctx, []string{"show-1"}).Return(nil)

		result, err := service.CancelShow(ctx, "show-1")

		require.NoError(t, err)
		assert.Equal(t, show.StatusCanceled, result.Status)
		deps.seatCache.AssertExpectations(t)
	})

	t.Run("中止済み", func(t *testing.T) {
		deps := newTestDeps()
		service := newShowService(deps)
		sh := bookableShow()
		sh.Status = show.StatusCanceled

		deps.showRepo.On("GetByID", ctx, "show-1").Return(sh, nil)

		_, err := service.CancelShow(ctx, "show-1")

		assert.ErrorIs(t, err, show.ErrShowAlreadyCanceled)
		deps.showRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	})
}

func TestShowService_GetSeatMap(t *testing.T) {
	deps := newTestDeps()
	service := newShowService(deps)
	ctx := context.Background()

	deps.showRepo.On("GetByID", ctx, "show-1").Return(bookableShow(), nil)
	deps.seatRepo.On("GetByRoomID", ctx, "room-1").Return(roomSeats(), nil)
	deps.resRepo.On("ActiveSeatIDs", ctx, "show-1").Return([]string{"seat-2"}, nil)

	seatMap, err := service.GetSeatMap(ctx, "show-1")

	require.NoError(t, err)
	require.Len(t, seatMap, 2)
	assert.Equal(t, "seat-1", seatMap[0].Seat.ID)
	assert.True(t, seatMap[0].Available)
	assert.Equal(t, "seat-2", seatMap[1].Seat.ID)
	assert.False(t, seatMap[1].Available)
}

func TestShowService_CountAvailableSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("キャッシュヒット", func(t *testing.T) {
		deps := newTestDeps()
		service := newShowService(deps)
		deps.seatCache.On("GetAvailableCount", ctx, "show-1").Return(42, nil)

		count, err := service.CountAvailableSeats(ctx, "show-1")

		require.NoError(t, err)
		assert.Equal(t, 42, count)
		deps.showRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("キャッシュミスならDBから数えて保存", func(t *testing.T) {
		deps := newTestDeps()
		service := newShowService(deps)
		deps.seatCache.On("GetAvailableCount", ctx, "show-1").Return(0, redisinfra.ErrCacheMiss)
		deps.showRepo.On("GetByID", ctx, "show-1").Return(bookableShow(), nil)
		deps.seatRepo.On("CountByRoomID", ctx, nil, "room-1").Return(100, nil)
		deps.resRepo.On("ActiveSeatIDs", ctx, "show-1").Return([]string{"seat-1", "seat-2", "seat-3"}, nil)
		deps.seatCache.On("SetAvailableCount", ctx, "show-1", 97, 30*time.Second).Return(nil)

		count, err := service.CountAvailableSeats(ctx, "show-1")

		require.NoError(t, err)
		assert.Equal(t, 97, count)
		deps.seatCache.AssertExpectations(t)
	})

	t.Run("キャッシュ障害でもDBから返す", func(t *testing.T) {
		deps := newTestDeps()
		service := newShowService(deps)
		deps.seatCache.On("GetAvailableCount", ctx, "show-1").Return(0, errors.New("redis down"))
		deps.showRepo.On("GetByID", ctx, "show-1").Return(bookableShow(), nil)
		deps.seatRepo.On("CountByRoomID", ctx, nil, "room-1").Return(10, nil)
		deps.resRepo.On("ActiveSeatIDs", ctx, "show-1").Return([]string{}, nil)
		deps.seatCache.On("SetAvailableCount", ctx, "show-1", 10, 30*time.Second).Return(errors.New("redis down"))

		count, err := service.CountAvailableSeats(ctx, "show-1")

		require.NoError(t, err)
		assert.Equal(t, 10, count)
	})

	t.Run("キャッシュなし", func(t *testing.T) {
		deps := newTestDeps()
		service := NewShowService(deps.txManager, deps.showRepo, deps.seatRepo, deps.resRepo, nil)
		deps.showRepo.On("GetByID", ctx, "show-1").Return(bookableShow(), nil)
		deps.seatRepo.On("CountByRoomID", ctx, nil, "room-1").Return(2, nil)
		deps.resRepo.On("ActiveSeatIDs", ctx, "show-1").Return([]string{"seat-1"}, nil)

		count, err := service.CountAvailableSeats(ctx, "show-1")

		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
