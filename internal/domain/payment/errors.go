package payment

import "github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"

var (
	ErrGatewayFailure      = apperror.New(apperror.ErrPaymentProcessing, "決済ゲートウェイの呼び出しに失敗しました")
	ErrUnexpectedReply     = apperror.New(apperror.ErrPaymentProcessing, "決済ゲートウェイの応答が不正です")
	ErrUnknownStatus       = apperror.New(apperror.ErrPaymentProcessing, "決済ゲートウェイの状態が不明です")
	ErrInvalidSignature    = apperror.New(apperror.ErrValidation, "Webhookの署名が不正です")
	ErrInvalidNotification = apperror.New(apperror.ErrValidation, "Webhookの内容が不正です")
)
