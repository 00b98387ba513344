package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	redisinfra "github.com/sanosuguru/cinema-ticketing/internal/infrastructure/redis"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/logger"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/metrics"
)

const (
	sweeperName    = "reservation_sweeper"
	sweeperLockKey = "worker:reservation-sweeper"
)

// ReservationSweeper は期限切れの仮押さえを失効させるインターフェース
type ReservationSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// ExpiredReservationSweeper は期限切れの仮押さえを定期的に失効させるワーカー
//
// 複数インスタンスで動かす場合は Redis のリーダーロックを持つ1台だけが実行する。
// ロックは間隔と同じTTLで取得し、解放せずに失効させる。
type ExpiredReservationSweeper struct {
	sweeper     ReservationSweeper
	lockManager redisinfra.LockManagerInterface
	metrics     *metrics.Metrics
	interval    time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewExpiredReservationSweeper は新しいスイーパーを作成
// lockManager が nil の場合は常に実行する
func NewExpiredReservationSweeper(
	s ReservationSweeper,
	lm redisinfra.LockManagerInterface,
	interval time.Duration,
) *ExpiredReservationSweeper {
	return &ExpiredReservationSweeper{
		sweeper:     s,
		lockManager: lm,
		interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

func (w *ExpiredReservationSweeper) WithMetrics(m *metrics.Metrics) *ExpiredReservationSweeper {
	w.metrics = m
	return w
}

// Start はスイーパーを開始
func (w *ExpiredReservationSweeper) Start(ctx context.Context) {
	logger.Info("期限切れ予約スイーパー開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れ予約スイーパー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("期限切れ予約スイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (w *ExpiredReservationSweeper) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *ExpiredReservationSweeper) sweep(ctx context.Context) {
	log := logger.Component(sweeperName)

	if !w.acquireLeadership(ctx) {
		log.Debug("他のインスタンスが実行中のためスキップ")
		w.metrics.RecordWorkerRun(sweeperName, "skipped")
		return
	}

	count, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		log.Error("期限切れ予約の失効に失敗", zap.Int("expired", count), zap.Error(err))
		w.metrics.RecordWorkerRun(sweeperName, "error")
		return
	}
	w.metrics.RecordWorkerRun(sweeperName, "success")

	if count > 0 {
		log.Info("期限切れ予約を失効", zap.Int("count", count))
	} else {
		log.Debug("期限切れ予約なし")
	}
}

// acquireLeadership はこの周期の実行権を取得できたかを返す
// Redis障害時は実行する（失効処理自体は SKIP LOCKED で並行実行に耐える）
func (w *ExpiredReservationSweeper) acquireLeadership(ctx context.Context) bool {
	if w.lockManager == nil {
		return true
	}
	if _, err := w.lockManager.AcquireLock(ctx, sweeperLockKey, w.interval); err != nil {
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			return false
		}
		logger.Warn("リーダーロックを取得できないため単独で実行します", zap.Error(err))
	}
	return true
}
