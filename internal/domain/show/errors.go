package show

import "github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"

// Show ドメインのエラー定義
var (
	ErrShowNotFound        = apperror.New(apperror.ErrNotFound, "上映が見つかりません")
	ErrShowNotBookable     = apperror.New(apperror.ErrInvalidState, "上映は予約受付期間外です")
	ErrShowAlreadyCanceled = apperror.New(apperror.ErrInvalidState, "上映は既に中止されています")
	ErrCinemaIDRequired    = apperror.New(apperror.ErrValidation, "映画館IDは必須です")
	ErrMovieIDRequired     = apperror.New(apperror.ErrValidation, "作品IDは必須です")
	ErrRoomIDRequired      = apperror.New(apperror.ErrValidation, "スクリーンIDは必須です")
	ErrInvalidShowTime     = apperror.New(apperror.ErrValidation, "終了時刻は開始時刻より後である必要があります")
)
