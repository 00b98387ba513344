package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/reservation"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/show"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/cinema-ticketing/internal/infrastructure/redis"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/logger"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/metrics"
)

const (
	seatLockTTL           = 10 * time.Second
	seatLockRetries       = 3
	seatLockRetryInterval = 100 * time.Millisecond

	defaultSweepBatchSize = 500
	defaultListLimit      = 20
	maxListLimit          = 100
)

type ReservationService struct {
	txManager       transaction.Manager
	reservationRepo reservation.Repository
	seatRepo        seat.Repository
	ticketTypeRepo  seat.TicketTypeRepository
	showRepo        show.Repository
	lockManager     redisinfra.LockManagerInterface
	seatCache       redisinfra.SeatCacheInterface
	holdDuration    time.Duration
	sweepBatchSize  int
	metrics         *metrics.Metrics
	now             func() time.Time
}

// NewReservationService は予約サービスを作成する
// lockManager と seatCache は nil でもよい（Redisなしで動作する）
func NewReservationService(
	txManager transaction.Manager,
	rr reservation.Repository,
	sr seat.Repository,
	tr seat.TicketTypeRepository,
	shr show.Repository,
	lm redisinfra.LockManagerInterface,
	sc redisinfra.SeatCacheInterface,
) *ReservationService {
	return &ReservationService{
		txManager:       txManager,
		reservationRepo: rr,
		seatRepo:        sr,
		ticketTypeRepo:  tr,
		showRepo:        shr,
		lockManager:     lm,
		seatCache:       sc,
		holdDuration:    reservation.DefaultHoldDuration,
		sweepBatchSize:  defaultSweepBatchSize,
		now:             time.Now,
	}
}

// WithHoldDuration は仮押さえの有効期間を設定する
func (s *ReservationService) WithHoldDuration(d time.Duration) *ReservationService {
	if d > 0 {
		s.holdDuration = d
	}
	return s
}

// WithSweepBatchSize は期限切れ処理の1回あたりの件数を設定する
func (s *ReservationService) WithSweepBatchSize(n int) *ReservationService {
	if n > 0 {
		s.sweepBatchSize = n
	}
	return s
}

func (s *ReservationService) WithMetrics(m *metrics.Metrics) *ReservationService {
	s.metrics = m
	return s
}

func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// SeatSelection は座席と券種の組
type SeatSelection struct {
	SeatID       string
	TicketTypeID string
}

type CreateHoldInput struct {
	ShowID         string
	OwnerID        *string
	Seats          []SeatSelection
	IdempotencyKey string
}

// CreateHold は座席を仮押さえする
//
// 二重予約の最終的な防止はDBの部分一意インデックスが担う。
// Redisロックは同じ座席への同時リクエストを早期に弾くためのもの。
func (s *ReservationService) CreateHold(ctx context.Context, input CreateHoldInput) (*reservation.Reservation, error) {
	// 冪等性チェック
	if input.IdempotencyKey != "" && input.OwnerID != nil {
		existing, err := s.reservationRepo.GetByIdempotencyKey(ctx, *input.OwnerID, input.IdempotencyKey)
		if err == nil {
			return replayHold(existing, input)
		}
		if !errors.Is(err, reservation.ErrReservationNotFound) {
			return nil, fmt.Errorf("冪等性チェックに失敗: %w", err)
		}
	}

	now := s.now()
	sh, err := s.showRepo.GetByID(ctx, input.ShowID)
	if err != nil {
		return nil, fmt.Errorf("上映取得に失敗: %w", err)
	}
	if !sh.IsBookable(now) {
		return nil, show.ErrShowNotBookable
	}

	res, err := s.buildHold(ctx, sh, input.OwnerID, input.Seats, now)
	if err != nil {
		s.metrics.RecordReservation("invalid")
		return nil, err
	}
	res.IdempotencyKey = input.IdempotencyKey

	if err := s.checkAvailability(ctx, sh.ID, res.SeatIDs()); err != nil {
		s.metrics.RecordReservation("conflict")
		return nil, err
	}

	release, err := s.lockSeats(ctx, sh.ID, res.SeatIDs())
	if err != nil {
		s.metrics.RecordReservation("lock_failed")
		return nil, err
	}
	defer release()

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		s.metrics.RecordReservation("error")
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.reservationRepo.Create(ctx, tx, res); err != nil {
		if errors.Is(err, reservation.ErrIdempotencyKeyAlreadyExists) && input.OwnerID != nil {
			// 同じキーの同時リクエストに負けた場合は先行の予約を返す
			existing, err := s.reservationRepo.GetByIdempotencyKey(ctx, *input.OwnerID, input.IdempotencyKey)
			if err != nil {
				return nil, err
			}
			return replayHold(existing, input)
		}
		if errors.Is(err, reservation.ErrSeatUnavailable) {
			s.metrics.RecordReservation("conflict")
		} else {
			s.metrics.RecordReservation("error")
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		s.metrics.RecordReservation("error")
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.metrics.RecordReservation("success")
	s.invalidateSeatCache(ctx, sh.ID)
	logger.Info("座席を仮押さえしました",
		zap.String("reservation_id", res.ID),
		zap.String("show_id", sh.ID),
		zap.Int("seats", len(res.Lines)),
		zap.Time("expires_at", res.ExpiresAt),
	)
	return res, nil
}

// replayHold は冪等性キーが一致した既存の仮押さえを返す
// 上映・座席・券種のいずれかが異なる要求はキーの使い回しとして拒否する
func replayHold(existing *reservation.Reservation, input CreateHoldInput) (*reservation.Reservation, error) {
	if !strings.EqualFold(existing.ShowID, input.ShowID) || len(existing.Lines) != len(input.Seats) {
		return nil, reservation.ErrIdempotencyKeyReused
	}
	want := make(map[string]string, len(input.Seats))
	for _, sel := range input.Seats {
		want[strings.ToLower(sel.SeatID)] = strings.ToLower(sel.TicketTypeID)
	}
	for _, l := range existing.Lines {
		tt, ok := want[strings.ToLower(l.SeatID)]
		if !ok || tt != strings.ToLower(l.TicketTypeID) {
			return nil, reservation.ErrIdempotencyKeyReused
		}
	}
	return existing, nil
}

// CreateHoldInTx は呼び出し元のトランザクション内で仮押さえを作成する（窓口販売用）
// 分散ロックと冪等性チェックは行わず、一意制約のみで二重予約を防ぐ
func (s *ReservationService) CreateHoldInTx(ctx context.Context, tx transaction.Tx, input CreateHoldInput) (*reservation.Reservation, error) {
	now := s.now()
	sh, err := s.showRepo.GetByID(ctx, input.ShowID)
	if err != nil {
		return nil, fmt.Errorf("上映取得に失敗: %w", err)
	}
	if !sh.IsBookable(now) {
		return nil, show.ErrShowNotBookable
	}
	res, err := s.buildHold(ctx, sh, input.OwnerID, input.Seats, now)
	if err != nil {
		return nil, err
	}
	if err := s.reservationRepo.Create(ctx, tx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// buildHold は座席と券種を検証し、価格を確定した仮押さえを組み立てる
func (s *ReservationService) buildHold(ctx context.Context, sh *show.Show, ownerID *string, selections []SeatSelection, now time.Time) (*reservation.Reservation, error) {
	lines := make([]reservation.Line, len(selections))
	for i, sel := range selections {
		lines[i] = reservation.Line{SeatID: sel.SeatID, TicketTypeID: sel.TicketTypeID}
	}
	res := reservation.NewReservation(sh.CinemaID, sh.ID, ownerID, lines, now, s.holdDuration)
	if err := res.Validate(); err != nil {
		return nil, err
	}

	seats, err := s.seatRepo.GetByIDs(ctx, res.SeatIDs())
	if err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	seatMap := make(map[string]*seat.Seat, len(seats))
	for _, se := range seats {
		seatMap[se.ID] = se
	}

	ticketTypes, err := s.ticketTypeRepo.GetByIDs(ctx, uniqueTicketTypeIDs(res.Lines))
	if err != nil {
		return nil, fmt.Errorf("券種取得に失敗: %w", err)
	}
	typeMap := make(map[string]*seat.TicketType, len(ticketTypes))
	for _, tt := range ticketTypes {
		typeMap[tt.ID] = tt
	}

	for i := range res.Lines {
		se, ok := seatMap[res.Lines[i].SeatID]
		if !ok {
			return nil, seat.ErrSeatNotFound
		}
		if se.RoomID != sh.RoomID {
			return nil, seat.ErrSeatNotInRoom
		}
		tt, ok := typeMap[res.Lines[i].TicketTypeID]
		if !ok {
			return nil, seat.ErrTicketTypeNotFound
		}
		if !tt.UsableAt(sh.CinemaID) {
			return nil, seat.ErrTicketTypeUnusable
		}
		res.Lines[i].Price = tt.Price
	}
	return res, nil
}

func (s *ReservationService) checkAvailability(ctx context.Context, showID string, seatIDs []string) error {
	taken, err := s.reservationRepo.ActiveSeatIDs(ctx, showID)
	if err != nil {
		return fmt.Errorf("空席確認に失敗: %w", err)
	}
	takenSet := make(map[string]struct{}, len(taken))
	for _, id := range taken {
		takenSet[id] = struct{}{}
	}
	for _, id := range seatIDs {
		if _, ok := takenSet[id]; ok {
			return reservation.ErrSeatUnavailable
		}
	}
	return nil
}

// lockSeats は座席の分散ロックを取得し、解放関数を返す
func (s *ReservationService) lockSeats(ctx context.Context, showID string, seatIDs []string) (func(), error) {
	noop := func() {}
	if s.lockManager == nil {
		return noop, nil
	}
	lock, err := s.lockManager.AcquireLockWithRetry(ctx, buildSeatLockKey(showID, seatIDs), seatLockTTL, seatLockRetries, seatLockRetryInterval)
	if err != nil {
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			return nil, reservation.ErrSeatUnavailable
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Redis障害時はDBの一意制約に任せて続行する
		logger.Warn("座席ロックを取得できないためロックなしで続行します", zap.Error(err))
		return noop, nil
	}
	return func() {
		if err := lock.Release(ctx); err != nil {
			logger.Warn("座席ロックの解放に失敗", zap.Error(err))
		}
	}, nil
}

// buildSeatLockKey は上映と座席IDからロックキーを生成（ソートしてデッドロック防止）
func buildSeatLockKey(showID string, seatIDs []string) string {
	sorted := make([]string, len(seatIDs))
	copy(sorted, seatIDs)
	sort.Strings(sorted)
	return "seats:" + showID + ":" + strings.Join(sorted, ",")
}

func uniqueTicketTypeIDs(lines []reservation.Line) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.TicketTypeID]; ok {
			continue
		}
		seen[l.TicketTypeID] = struct{}{}
		ids = append(ids, l.TicketTypeID)
	}
	return ids
}

// GetReservation は予約を取得する
// requester が所有者でない場合は存在しないものとして扱う
func (s *ReservationService) GetReservation(ctx context.Context, id string, requester *string) (*reservation.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.AccessibleBy(requester) {
		return nil, reservation.ErrReservationNotFound
	}
	return res, nil
}

func (s *ReservationService) ListMyReservations(ctx context.Context, ownerID string, limit, offset int) ([]*reservation.Reservation, error) {
	limit, offset = normalizePage(limit, offset)
	return s.reservationRepo.GetByOwnerID(ctx, ownerID, limit, offset)
}

// Confirm は保留中の予約を単独で確定する
func (s *ReservationService) Confirm(ctx context.Context, id string) (*reservation.Reservation, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	res, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ConfirmInTx(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return res, nil
}

// ConfirmInTx は呼び出し元のトランザクション内で予約を確定する
func (s *ReservationService) ConfirmInTx(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	if err := res.Confirm(s.now()); err != nil {
		return err
	}
	return s.reservationRepo.UpdateStatus(ctx, tx, res)
}

// ExpireInTx は期限切れの保留中予約をその場で失効させる
func (s *ReservationService) ExpireInTx(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	if err := res.Expire(s.now()); err != nil {
		return err
	}
	return s.reservationRepo.UpdateStatus(ctx, tx, res)
}

// CancelReservation は保留中の予約をキャンセルし座席を解放する
func (s *ReservationService) CancelReservation(ctx context.Context, id string, requester *string) (*reservation.Reservation, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	res, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !res.AccessibleBy(requester) {
		return nil, reservation.ErrReservationNotFound
	}
	if err := res.Cancel(s.now()); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.UpdateStatus(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.invalidateSeatCache(ctx, res.ShowID)
	return res, nil
}

// SweepExpired は期限切れの仮押さえをまとめて失効させ、件数を返す
func (s *ReservationService) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()
	total := 0
	shows := make(map[string]struct{})
	defer func() {
		if len(shows) > 0 {
			ids := make([]string, 0, len(shows))
			for id := range shows {
				ids = append(ids, id)
			}
			s.invalidateSeatCache(ctx, ids...)
		}
		s.metrics.RecordExpired(total)
	}()

	for {
		expired, err := s.reservationRepo.ExpirePending(ctx, now, s.sweepBatchSize)
		if err != nil {
			return total, fmt.Errorf("期限切れ予約の失効に失敗: %w", err)
		}
		total += len(expired)
		for _, h := range expired {
			shows[h.ShowID] = struct{}{}
		}
		if len(expired) < s.sweepBatchSize {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func (s *ReservationService) invalidateSeatCache(ctx context.Context, showIDs ...string) {
	if s.seatCache == nil {
		return
	}
	if err := s.seatCache.Invalidate(ctx, showIDs...); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.Error(err))
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
