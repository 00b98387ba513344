package reservation

import (
	"context"
	"time"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
)

// ExpiredHold は期限切れ処理で EXPIRED になった予約
type ExpiredHold struct {
	ID     string
	ShowID string
}

// Repository は予約リポジトリのインターフェース
// reservation_seats を書き換えるのはこのリポジトリだけ
type Repository interface {
	// Create は予約と座席明細を作成する（トランザクション必須）
	// 同じ上映の座席がアクティブな予約で確保済みなら ErrSeatUnavailable
	Create(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// GetByIDForUpdate は行ロックを取って予約を取得する（トランザクション必須）
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Reservation, error)

	// GetByIdempotencyKey は所有者と冪等性キーから予約を取得する
	GetByIdempotencyKey(ctx context.Context, ownerID, key string) (*Reservation, error)

	// GetByOwnerID は所有者の予約一覧を新しい順に取得する
	GetByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]*Reservation, error)

	// UpdateStatus は予約の状態を更新する（トランザクション必須）
	// EXPIRED / CANCELED になった予約の座席は解放される
	UpdateStatus(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// ActiveSeatIDs は上映でアクティブな予約が確保している座席IDを返す
	ActiveSeatIDs(ctx context.Context, showID string) ([]string, error)

	// ExpirePending は expires_at < now の保留中予約を最大 limit 件 EXPIRED にする
	ExpirePending(ctx context.Context, now time.Time, limit int) ([]ExpiredHold, error)
}
