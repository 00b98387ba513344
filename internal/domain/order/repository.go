package order

import (
	"context"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
)

// Repository は注文リポジトリのインターフェース
type Repository interface {
	// Create は注文と明細を作成する（トランザクション必須）
	// 同じ予約の注文が既にあれば ErrOrderAlreadyExists
	Create(ctx context.Context, tx transaction.Tx, order *Order) error

	// GetByID はIDから注文を取得する
	GetByID(ctx context.Context, id string) (*Order, error)

	// GetByIDForUpdate は行ロックを取って注文を取得する（トランザクション必須）
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Order, error)

	// GetByPaymentReference は決済IDから注文を取得する
	GetByPaymentReference(ctx context.Context, reference string) (*Order, error)

	// ListByUserID はユーザーの注文一覧を新しい順に取得する
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*Order, error)

	// Update は注文の状態・決済情報・トークンを更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, order *Order) error

	// ListPaidWithoutTicket はチケット未発行の支払い済み注文を取得する
	ListPaidWithoutTicket(ctx context.Context, limit int) ([]*Order, error)
}
