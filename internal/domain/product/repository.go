package product

import "context"

// Repository は商品リポジトリのインターフェース
type Repository interface {
	Create(ctx context.Context, item *Item) error
	// GetByIDs はIDから商品を取得する（存在しないIDは結果に含まれない）
	GetByIDs(ctx context.Context, ids []string) ([]*Item, error)
}
