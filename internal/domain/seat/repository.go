package seat

import (
	"context"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// CreateBulk は複数の座席を一括作成する（トランザクション必須）
	CreateBulk(ctx context.Context, tx transaction.Tx, seats []*Seat) error

	// GetByRoomID はスクリーンの座席一覧を列・番号順で取得する
	GetByRoomID(ctx context.Context, roomID string) ([]*Seat, error)

	// GetByIDs はIDから座席を取得する（存在しないIDは結果に含まれない）
	GetByIDs(ctx context.Context, ids []string) ([]*Seat, error)

	// CountByRoomID はスクリーンの座席数を取得する
	CountByRoomID(ctx context.Context, tx transaction.Tx, roomID string) (int, error)
}

// TicketTypeRepository は券種リポジトリのインターフェース
type TicketTypeRepository interface {
	// Create は新しい券種を作成する
	Create(ctx context.Context, ticketType *TicketType) error

	// GetByIDs はIDから券種を取得する（存在しないIDは結果に含まれない）
	GetByIDs(ctx context.Context, ids []string) ([]*TicketType, error)
}
