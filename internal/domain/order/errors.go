package order

import "github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"

// Order ドメインのエラー定義
var (
	ErrOrderNotFound      = apperror.New(apperror.ErrNotFound, "注文が見つかりません")
	ErrOrderAlreadyExists = apperror.New(apperror.ErrInvalidState, "この予約の注文は既に存在します")
	ErrOrderAlreadyPaid   = apperror.New(apperror.ErrPaymentProcessing, "注文は既に支払い済みです")
	ErrOrderNotPaid       = apperror.New(apperror.ErrInvalidState, "注文は支払い済みではありません")
	ErrOrderCanceled      = apperror.New(apperror.ErrInvalidState, "注文はキャンセルされています")
	ErrOrderNotCancelable = apperror.New(apperror.ErrInvalidState, "この状態の注文はキャンセルできません")
	ErrInvalidQuantity    = apperror.New(apperror.ErrValidation, "数量は1以上100以下である必要があります")
)
