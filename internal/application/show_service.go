package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/reservation"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/show"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/cinema-ticketing/internal/infrastructure/redis"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/logger"
)

const (
	seatCacheTTL = 30 * time.Second
)

type ShowService struct {
	txManager       transaction.Manager
	showRepo        show.Repository
	seatRepo        seat.Repository
	reservationRepo reservation.Repository
	cache           redisinfra.SeatCacheInterface
}

func NewShowService(txManager transaction.Manager, shr show.Repository, sr seat.Repository, rr reservation.Repository, cache redisinfra.SeatCacheInterface) *ShowService {
	return &ShowService{txManager: txManager, showRepo: shr, seatRepo: sr, reservationRepo: rr, cache: cache}
}

// SeatLayout はスクリーンに登録する座席1席分
type SeatLayout struct {
	Row    string
	Number int
	Type   seat.Type
}

type CreateShowInput struct {
	CinemaID  string
	MovieID   string
	RoomID    string
	StartTime time.Time
	EndTime   time.Time
	Seats     []SeatLayout
}

// CreateShow は上映を作成する
// スクリーンに座席が未登録の場合は指定された座席レイアウトを登録する
func (s *ShowService) CreateShow(ctx context.Context, input CreateShowInput) (*show.Show, error) {
	sh := show.NewShow(input.CinemaID, input.MovieID, input.RoomID, input.StartTime, input.EndTime)
	if err := sh.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.showRepo.Create(ctx, tx, sh); err != nil {
		return nil, fmt.Errorf("上映作成に失敗しました: %w", err)
	}

	count, err := s.seatRepo.CountByRoomID(ctx, tx, input.RoomID)
	if err != nil {
		return nil, fmt.Errorf("座席数の取得に失敗: %w", err)
	}
	if count == 0 {
		if len(input.Seats) == 0 {
			return nil, seat.ErrSeatLayoutRequired
		}
		seats := make([]*seat.Seat, 0, len(input.Seats))
		for _, l := range input.Seats {
			se := seat.NewSeat(input.RoomID, l.Row, l.Number, l.Type)
			if err := se.Validate(); err != nil {
				return nil, err
			}
			seats = append(seats, se)
		}
		if err := s.seatRepo.CreateBulk(ctx, tx, seats); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return sh, nil
}

func (s *ShowService) GetShow(ctx context.Context, id string) (*show.Show, error) {
	return s.showRepo.GetByID(ctx, id)
}

// CancelShow は上映を中止する
// 既存の予約・注文には触れない
func (s *ShowService) CancelShow(ctx context.Context, id string) (*show.Show, error) {
	sh, err := s.showRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sh.Cancel(); err != nil {
		return nil, err
	}
	if err := s.showRepo.UpdateStatus(ctx, sh); err != nil {
		return nil, err
	}
	s.InvalidateCache(ctx, sh.ID)
	return sh, nil
}

// SeatAvailability は上映における座席の空き状況
type SeatAvailability struct {
	Seat      *seat.Seat
	Available bool
}

// GetSeatMap は上映の座席表を返す
func (s *ShowService) GetSeatMap(ctx context.Context, showID string) ([]SeatAvailability, error) {
	sh, err := s.showRepo.GetByID(ctx, showID)
	if err != nil {
		return nil, err
	}
	seats, err := s.seatRepo.GetByRoomID(ctx, sh.RoomID)
	if err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	taken, err := s.takenSeats(ctx, sh.ID)
	if err != nil {
		return nil, err
	}

	result := make([]SeatAvailability, len(seats))
	for i, se := range seats {
		_, held := taken[se.ID]
		result[i] = SeatAvailability{Seat: se, Available: !held}
	}
	return result, nil
}

func (s *ShowService) CountAvailableSeats(ctx context.Context, showID string) (int, error) {
	// キャッシュから取得を試みる
	if s.cache != nil {
		count, err := s.cache.GetAvailableCount(ctx, showID)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("show_id", showID), zap.Int("count", count))
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	// DBから取得
	sh, err := s.showRepo.GetByID(ctx, showID)
	if err != nil {
		return 0, err
	}
	total, err := s.seatRepo.CountByRoomID(ctx, nil, sh.RoomID)
	if err != nil {
		return 0, fmt.Errorf("座席数の取得に失敗: %w", err)
	}
	taken, err := s.takenSeats(ctx, sh.ID)
	if err != nil {
		return 0, err
	}
	count := total - len(taken)
	if count < 0 {
		count = 0
	}

	// キャッシュに保存
	if s.cache != nil {
		if cacheErr := s.cache.SetAvailableCount(ctx, showID, count, seatCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}

	return count, nil
}

// InvalidateCache は上映のキャッシュを無効化する
func (s *ShowService) InvalidateCache(ctx context.Context, showID string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, showID); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(err))
		}
	}
}

func (s *ShowService) takenSeats(ctx context.Context, showID string) (map[string]struct{}, error) {
	ids, err := s.reservationRepo.ActiveSeatIDs(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("空席確認に失敗: %w", err)
	}
	taken := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		taken[id] = struct{}{}
	}
	return taken, nil
}
