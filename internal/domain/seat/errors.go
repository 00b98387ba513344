package seat

import "github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"

// Seat ドメインのエラー定義
var (
	ErrSeatNotFound           = apperror.New(apperror.ErrValidation, "座席が見つかりません")
	ErrSeatNotInRoom          = apperror.New(apperror.ErrValidation, "座席は上映のスクリーンに属していません")
	ErrRoomIDRequired         = apperror.New(apperror.ErrValidation, "スクリーンIDは必須です")
	ErrInvalidSeatPosition    = apperror.New(apperror.ErrValidation, "座席の列と番号が不正です")
	ErrInvalidSeatType        = apperror.New(apperror.ErrValidation, "座席種別が不正です")
	ErrTicketTypeNotFound     = apperror.New(apperror.ErrValidation, "券種が見つかりません")
	ErrTicketTypeUnusable     = apperror.New(apperror.ErrValidation, "この上映では利用できない券種です")
	ErrTicketTypeNameRequired = apperror.New(apperror.ErrValidation, "券種名は必須です")
	ErrCinemaIDRequired       = apperror.New(apperror.ErrValidation, "映画館IDは必須です")
	ErrInvalidPrice           = apperror.New(apperror.ErrValidation, "価格は0以上である必要があります")
	ErrSeatLayoutRequired     = apperror.New(apperror.ErrValidation, "座席が未登録のスクリーンには座席の指定が必要です")
)
