package reservation

import "github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound         = apperror.New(apperror.ErrNotFound, "予約が見つかりません")
	ErrReservationNotPending       = apperror.New(apperror.ErrInvalidState, "予約は保留中ではありません")
	ErrReservationExpired          = apperror.New(apperror.ErrInvalidState, "予約の有効期限が切れています")
	ErrReservationNotExpired       = apperror.New(apperror.ErrInvalidState, "予約はまだ有効期限内です")
	ErrReservationAlreadyCanceled  = apperror.New(apperror.ErrInvalidState, "予約は既にキャンセルされています")
	ErrReservationAlreadyConfirmed = apperror.New(apperror.ErrInvalidState, "予約は既に確定されています")
	ErrIdempotencyKeyAlreadyExists = apperror.New(apperror.ErrInvalidState, "同じ冪等性キーの予約が既に存在します")
	ErrIdempotencyKeyReused        = apperror.New(apperror.ErrValidation, "同じ冪等性キーで異なる内容の仮押さえが要求されました")
	ErrSeatUnavailable             = apperror.New(apperror.ErrSeatUnavailable, "座席は既に確保されています")
	ErrCinemaIDRequired            = apperror.New(apperror.ErrValidation, "映画館IDは必須です")
	ErrShowIDRequired              = apperror.New(apperror.ErrValidation, "上映IDは必須です")
	ErrSeatSelectionRequired       = apperror.New(apperror.ErrValidation, "座席と券種の指定は必須です")
	ErrDuplicateSeat               = apperror.New(apperror.ErrValidation, "同じ座席が重複して指定されています")
)
