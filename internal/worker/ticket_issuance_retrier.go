package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/cinema-ticketing/internal/pkg/logger"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/metrics"
)

const (
	retrierName             = "ticket_retrier"
	defaultRetrierBatchSize = 100
)

// TicketReissuer は支払い済みでチケット未発行の注文に発行を再試行するインターフェース
type TicketReissuer interface {
	RetryTicketIssuance(ctx context.Context, limit int) (int, error)
}

// TicketIssuanceRetrier は発行に失敗したチケットを定期的に再発行するワーカー
type TicketIssuanceRetrier struct {
	reissuer  TicketReissuer
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func NewTicketIssuanceRetrier(r TicketReissuer, interval time.Duration) *TicketIssuanceRetrier {
	return &TicketIssuanceRetrier{
		reissuer:  r,
		interval:  interval,
		batchSize: defaultRetrierBatchSize,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (w *TicketIssuanceRetrier) WithMetrics(m *metrics.Metrics) *TicketIssuanceRetrier {
	w.metrics = m
	return w
}

// Start はリトライヤーを開始
func (w *TicketIssuanceRetrier) Start(ctx context.Context) {
	logger.Info("チケット再発行ワーカー開始", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("チケット再発行ワーカー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("チケット再発行ワーカー停止（シグナル受信）")
			return
		case <-ticker.C:
			w.retry(ctx)
		}
	}
}

// Stop はリトライヤーを停止
func (w *TicketIssuanceRetrier) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *TicketIssuanceRetrier) retry(ctx context.Context) {
	log := logger.Component(retrierName)

	issued, err := w.reissuer.RetryTicketIssuance(ctx, w.batchSize)
	if err != nil {
		log.Error("チケット再発行に失敗", zap.Int("issued", issued), zap.Error(err))
		w.metrics.RecordWorkerRun(retrierName, "error")
		return
	}
	w.metrics.RecordWorkerRun(retrierName, "success")
	if issued > 0 {
		log.Info("チケットを再発行", zap.Int("count", issued))
	}
}
