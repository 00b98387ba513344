package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/cinema-ticketing/internal/pkg/metrics"
)

type MockTicketReissuer struct {
	mock.Mock
}

func (m *MockTicketReissuer) RetryTicketIssuance(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func TestTicketIssuanceRetrier_Retry(t *testing.T) {
	ctx := context.Background()

	t.Run("バッチサイズを指定して再発行する", func(t *testing.T) {
		reissuer := new(MockTicketReissuer)
		reissuer.On("RetryTicketIssuance", ctx, defaultRetrierBatchSize).Return(3, nil)
		reg := prometheus.NewRegistry()
		m := metrics.NewWithRegistry(reg)

		NewTicketIssuanceRetrier(reissuer, time.Minute).WithMetrics(m).retry(ctx)

		reissuer.AssertExpectations(t)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkerRunsTotal.WithLabelValues(retrierName, "success")))
	})

	t.Run("エラーでも停止しない", func(t *testing.T) {
		reissuer := new(MockTicketReissuer)
		reissuer.On("RetryTicketIssuance", ctx, defaultRetrierBatchSize).Return(0, assert.AnError)

		NewTicketIssuanceRetrier(reissuer, time.Minute).retry(ctx)

		reissuer.AssertExpectations(t)
	})
}

func TestTicketIssuanceRetrier_StartStop(t *testing.T) {
	reissuer := new(MockTicketReissuer)
	reissuer.On("RetryTicketIssuance", mock.Anything, defaultRetrierBatchSize).Return(0, nil).Maybe()

	retrier := NewTicketIssuanceRetrier(reissuer, 20*time.Millisecond)

	go retrier.Start(context.Background())
	time.Sleep(70 * time.Millisecond)
	retrier.Stop()

	select {
	case <-retrier.doneCh:
	case <-time.After(1 * time.Second):
		t.Error("retrier did not stop in time")
	}
	reissuer.AssertCalled(t, "RetryTicketIssuance", mock.Anything, defaultRetrierBatchSize)
}
