// Package apperror はドメインエラーの分類（種別）を提供する
//
// 各ドメインのセンチネルエラーは New で種別付きで定義する。
// インフラ層のエラーは Mark / Wrap で種別を付与する。
// 種別はラップ（fmt.Errorf の %w）を経ても KindOf で取り出せる。
package apperror

import (
	"net/http"

	cr "github.com/cockroachdb/errors"
)

// Kind はエラー種別を表すマーカー
type Kind struct {
	name string
}

func (k *Kind) Error() string { return k.name }

// String は種別名を返す
func (k *Kind) String() string { return k.name }

var (
	ErrNotFound          = &Kind{name: "not_found"}
	ErrSeatUnavailable   = &Kind{name: "seat_unavailable"}
	ErrInvalidState      = &Kind{name: "invalid_state"}
	ErrInvalidPromotion  = &Kind{name: "invalid_promotion"}
	ErrPaymentProcessing = &Kind{name: "payment_processing"}
	ErrValidation        = &Kind{name: "validation"}
)

var kinds = []*Kind{
	ErrNotFound,
	ErrSeatUnavailable,
	ErrInvalidState,
	ErrInvalidPromotion,
	ErrPaymentProcessing,
	ErrValidation,
}

// Error は種別付きのセンチネルエラー
type Error struct {
	kind *Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Unwrap は種別を返す（errors.Is(err, apperror.ErrNotFound) を可能にする）
func (e *Error) Unwrap() error { return e.kind }

// Kind はエラー種別を返す
func (e *Error) Kind() *Kind { return e.kind }

// New は種別付きのセンチネルエラーを作成する
func New(kind *Kind, msg string) error {
	return &Error{kind: kind, msg: msg}
}

// Mark は既存のエラーに種別を付与する
func Mark(err error, kind *Kind) error {
	if err == nil {
		return nil
	}
	return cr.Mark(err, kind)
}

// Wrap はスタックとメッセージを付与しつつ種別を付与する
func Wrap(err error, kind *Kind, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Mark(cr.Wrap(err, msg), kind)
}

// Is はエラーが指定した種別を持つかを返す
func Is(err error, kind *Kind) bool {
	return cr.Is(err, kind)
}

// KindOf はエラーの種別を返す。種別がない場合は nil
func KindOf(err error) *Kind {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if cr.Is(err, k) {
			return k
		}
	}
	return nil
}

// HTTPStatus は種別に対応するHTTPステータスを返す
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrSeatUnavailable, ErrInvalidState:
		return http.StatusConflict
	case ErrInvalidPromotion:
		return http.StatusUnprocessableEntity
	case ErrPaymentProcessing:
		return http.StatusBadGateway
	case ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
