package product

import "github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"

var (
	ErrItemNotFound     = apperror.New(apperror.ErrValidation, "商品が見つかりません")
	ErrItemUnsellable   = apperror.New(apperror.ErrValidation, "この映画館では販売していない商品です")
	ErrItemNameRequired = apperror.New(apperror.ErrValidation, "商品名は必須です")
	ErrInvalidItemType  = apperror.New(apperror.ErrValidation, "商品種別が不正です")
	ErrInvalidPrice     = apperror.New(apperror.ErrValidation, "価格は0以上である必要があります")
	ErrCinemaIDRequired = apperror.New(apperror.ErrValidation, "映画館IDは必須です")
)
