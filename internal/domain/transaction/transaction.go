package transaction

import "context"

// Tx はリポジトリ呼び出しをまとめる作業単位
// 具体的な実装（*sqlx.Tx のラッパー）はインフラ層が持つ
type Tx interface {
	Commit() error
	// Rollback はコミット済みの場合は何もしない
	Rollback() error
}

// Manager は作業単位を開始する
// 仮押さえと注文の状態遷移は必ずこの単位の中で行う
type Manager interface {
	Begin(ctx context.Context) (Tx, error)
}
