package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ドメインエラーは種別からステータスを決める
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := toErrorResponse(err)

	// エラーログを出力（5xx エラーの場合）
	if resp.Code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", resp.Code),
			zap.String("path", c.Request().URL.Path),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		)
	}

	if err := c.JSON(resp.Code, resp); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

func toErrorResponse(err error) ErrorResponse {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		resp := ErrorResponse{Error: message, Code: he.Code}
		if he.Internal != nil {
			if kind := apperror.KindOf(he.Internal); kind != nil {
				resp.Kind = kind.String()
			}
		}
		return resp
	}

	if kind := apperror.KindOf(err); kind != nil {
		code := apperror.HTTPStatus(err)
		resp := ErrorResponse{Error: err.Error(), Code: code, Kind: kind.String()}
		// ゲートウェイの応答内容は外に出さない
		if kind == apperror.ErrPaymentProcessing {
			resp.Error = "決済処理に失敗しました"
		}
		return resp
	}

	return ErrorResponse{
		Error: "内部サーバーエラー",
		Code:  http.StatusInternalServerError,
	}
}
