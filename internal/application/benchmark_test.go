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

	"github.com/stretchr/testify/require"
)

// TestBenchmark_LargeRoom は大型スクリーンでの座席作成・空席集計・仮押さえの性能を計測する
func TestBenchmark_LargeRoom(t *testing.T) {
	if testing.Short() {
		t.Skip("大規模ベンチマークテストはshortモードではスキップ")
	}

	env, cleanup := setupTestEnv(t)
	defer cleanup()

	ctx := context.Background()

	const rows, perRow = 26, 80
	const totalSeats = rows * perRow

	// 1. 座席レイアウト付きで上映を作成
	t.Log("=== 座席の一括作成開始 ===")
	startCreate := time.Now()
	sh, seats, tt := env.createShowWithSeats(t, rows, perRow)
	createDuration := time.Since(startCreate)
	require.Len(t, seats, totalSeats)
	t.Logf("✅ 座席作成完了: %v (%.0f 席/秒)", createDuration, float64(totalSeats)/createDuration.Seconds())

	// 2. 空席数の集計
	startCount := time.Now()
	count, err := env.shows.CountAvailableSeats(ctx, sh.ID)
	require.NoError(t, err)
	require.Equal(t, totalSeats, count)
	countDuration := time.Since(startCount)
	t.Logf("✅ 空席数カウント: %v (COUNT: %d)", countDuration, count)

	// 3. 500人が異なる座席を同時に仮押さえ
	t.Log("=== 500人同時仮押さえのパフォーマンス計測 ===")
	const concurrentUsers = 500
	var successCount int32
	var errorCount int32
	var wg sync.WaitGroup

	startReserve := time.Now()
	for i := 0; i < concurrentUsers; i++ {
		wg.Add(1)
		go func(userNum int) {
			defer wg.Done()
			// 衝突を避けるため4席間隔
			input := holdInput(sh.ID, fmt.Sprintf("user-%05d", userNum), fmt.Sprintf("bench-%d", userNum), tt, seats[userNum*4])
			if _, err := env.reservations.CreateHold(ctx, input); err == nil {
				atomic.AddInt32(&successCount, 1)
			} else {
				atomic.AddInt32(&errorCount, 1)
			}
		}(i)
	}
	wg.Wait()

	reserveDuration := time.Since(startReserve)
	t.Logf("✅ 並行仮押さえ完了: %v", reserveDuration)
	t.Logf("   成功: %d, エラー: %d", successCount, errorCount)
	t.Logf("   処理速度: %.0f 件/秒", float64(successCount)/reserveDuration.Seconds())
	require.Equal(t, int32(concurrentUsers), successCount)

	// 4. 100人が同じ座席を奪い合う
	t.Log("=== 100人同時競合のパフォーマンス計測 ===")
	const competingUsers = 100
	target := seats[totalSeats/2+1]
	var competitionSuccess int32

	startCompete := time.Now()
	var wg2 sync.WaitGroup
	for i := 0; i < competingUsers; i++ {
		wg2.Add(1)
		go func(userNum int) {
			defer wg2.Done()
			input := holdInput(sh.ID, fmt.Sprintf("compete-user-%03d", userNum), "", tt, target)
			if _, err := env.reservations.CreateHold(ctx, input); err == nil {
				atomic.AddInt32(&competitionSuccess, 1)
			}
		}(i)
	}
	wg2.Wait()
	competeDuration := time.Since(startCompete)
	t.Logf("✅ 競合仮押さえ完了: %v (成功: %d)", competeDuration, competitionSuccess)
	require.Equal(t, int32(1), competitionSuccess, "競合では1人だけ成功するべき")

	count, err = env.shows.CountAvailableSeats(ctx, sh.ID)
	require.NoError(t, err)
	require.Equal(t, totalSeats-concurrentUsers-1, count)

	t.Log("=================================================")
	t.Logf("総座席数: %d", totalSeats)
	t.Logf("座席作成: %v", createDuration)
	t.Logf("空席カウント: %v", countDuration)
	t.Logf("並行仮押さえ (%d人): %v", concurrentUsers, reserveDuration)
	t.Logf("競合仮押さえ (%d人→1人成功): %v", competingUsers, competeDuration)
	t.Log("=================================================")
}

// BenchmarkSeatQueries は座席表と空席数の取得を計測する
func BenchmarkSeatQueries(b *testing.B) {
	env, cleanup := setupTestEnv(b)
	defer cleanup()

	ctx := context.Background()
	sh, _, _ := env.createShowWithSeats(b, 10, 100)

	b.Run("CountAvailableSeats", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			env.shows.CountAvailableSeats(ctx, sh.ID)
		}
	})

	b.Run("GetSeatMap", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			env.shows.GetSeatMap(ctx, sh.ID)
		}
	})
}
