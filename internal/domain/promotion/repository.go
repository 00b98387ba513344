package promotion

import (
	"context"
	"time"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
)

// Repository はプロモーションリポジトリのインターフェース
type Repository interface {
	// Create は新しいプロモーションを作成する（映画館内でコード重複なら ErrCodeAlreadyExists）
	Create(ctx context.Context, promotion *Promotion) error

	// GetByID はIDからプロモーションを取得する
	GetByID(ctx context.Context, id string) (*Promotion, error)

	// GetByCode は映画館とコードからプロモーションを取得する
	GetByCode(ctx context.Context, cinemaID, code string) (*Promotion, error)

	// GetByCodeForUpdate は行ロックを取って取得する（トランザクション必須）
	GetByCodeForUpdate(ctx context.Context, tx transaction.Tx, cinemaID, code string) (*Promotion, error)

	// IncrementUsage は利用回数を1増やす（トランザクション必須）
	IncrementUsage(ctx context.Context, tx transaction.Tx, id string) error

	// Deactivate はプロモーションを無効化する
	Deactivate(ctx context.Context, id string) error

	// ListActive は now の時点で有効なプロモーション一覧を取得する
	ListActive(ctx context.Context, cinemaID string, now time.Time) ([]*Promotion, error)
}
