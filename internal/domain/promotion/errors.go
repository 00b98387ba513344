package promotion

import "github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"

// コード適用時のエラー（メッセージは利用者に理由として表示される）
var (
	ErrPromotionCodeUnknown       = apperror.New(apperror.ErrInvalidPromotion, "プロモーションコードが存在しません")
	ErrPromotionInactive          = apperror.New(apperror.ErrInvalidPromotion, "プロモーションコードは無効です")
	ErrPromotionNotStarted        = apperror.New(apperror.ErrInvalidPromotion, "プロモーション期間前です")
	ErrPromotionEnded             = apperror.New(apperror.ErrInvalidPromotion, "プロモーション期間が終了しています")
	ErrPromotionUsageLimitReached = apperror.New(apperror.ErrInvalidPromotion, "プロモーションコードの利用上限に達しています")
	ErrPromotionMinPurchase       = apperror.New(apperror.ErrInvalidPromotion, "最低購入金額に達していません")
)

// 管理操作のエラー
var (
	ErrPromotionNotFound   = apperror.New(apperror.ErrNotFound, "プロモーションが見つかりません")
	ErrCodeAlreadyExists   = apperror.New(apperror.ErrValidation, "同じコードのプロモーションが既に存在します")
	ErrCinemaIDRequired    = apperror.New(apperror.ErrValidation, "映画館IDは必須です")
	ErrCodeRequired        = apperror.New(apperror.ErrValidation, "コードは必須です")
	ErrInvalidDiscountType = apperror.New(apperror.ErrValidation, "割引種別が不正です")
	ErrInvalidPercentage   = apperror.New(apperror.ErrValidation, "割引率は1から100の範囲で指定してください")
	ErrInvalidFixedAmount  = apperror.New(apperror.ErrValidation, "割引額は1以上である必要があります")
	ErrInvalidPeriod       = apperror.New(apperror.ErrValidation, "終了日時は開始日時より後である必要があります")
	ErrInvalidUsageLimit   = apperror.New(apperror.ErrValidation, "利用上限は1以上である必要があります")
	ErrInvalidMinPurchase  = apperror.New(apperror.ErrValidation, "最低購入金額は0以上である必要があります")
)
