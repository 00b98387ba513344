package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/cinema-ticketing/internal/api"
	"github.com/sanosuguru/cinema-ticketing/internal/api/middleware"
)

// NewTestEcho はテスト用のEchoインスタンスを作成する
func NewTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}

// WithIdentity はテスト用に呼び出し元を設定したハンドラーを返す
func WithIdentity(id *middleware.Identity, h echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		middleware.SetIdentity(c, id)
		return h(c)
	}
}
