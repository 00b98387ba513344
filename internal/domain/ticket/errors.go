package ticket

import "github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"

var (
	ErrSecretRequired    = apperror.New(apperror.ErrInvalidState, "チケット署名鍵が設定されていません")
	ErrInvalidIdentifier = apperror.New(apperror.ErrValidation, "注文IDまたは上映IDが不正です")
	ErrMalformedToken    = apperror.New(apperror.ErrValidation, "チケットの形式が不正です")
	ErrSignatureMismatch = apperror.New(apperror.ErrValidation, "チケットの署名が一致しません")
	ErrTokenExpired      = apperror.New(apperror.ErrValidation, "チケットの有効期限が切れています")
	ErrTokenFromFuture   = apperror.New(apperror.ErrValidation, "チケットの発行時刻が不正です")
)
