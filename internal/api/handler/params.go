package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"
)

var errMalformedID = apperror.New(apperror.ErrValidation, "IDの形式が不正です")

// pathID はパスパラメータのIDを返す。UUIDの標準表記でなければ検証エラー
func pathID(c echo.Context, name string) (string, error) {
	id := c.Param(name)
	if len(id) != 36 {
		return "", errMalformedID
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", errMalformedID
	}
	return id, nil
}
