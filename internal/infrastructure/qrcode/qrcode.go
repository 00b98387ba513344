// Package qrcode はチケットトークンをQRコード画像に変換する
package qrcode

import (
	"errors"
	"fmt"

	qr "github.com/skip2/go-qrcode"
)

// DefaultSize はPNGの一辺のピクセル数
const DefaultSize = 256

var ErrEmptyContent = errors.New("QRコードの内容が空です")

// Renderer はPNG形式のQRコードを生成する
type Renderer struct {
	size int
}

func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{size: size}
}

// PNG は内容をエンコードしたPNG画像を返す
func (r *Renderer) PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	png, err := qr.Encode(content, qr.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("QRコードの生成に失敗: %w", err)
	}
	return png, nil
}
