package product

import "time"

// Type は販売商品の種別を表す
type Type string

const (
	TypeProduct Type = "PRODUCT"
	TypeCombo   Type = "COMBO"
)

// Item は売店の商品またはコンボを表す
type Item struct {
	ID        string
	CinemaID  string
	Type      Type
	Name      string
	Price     int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewItem は新しい商品を作成する
func NewItem(cinemaID string, itemType Type, name string, price int64) *Item {
	now := time.Now()
	return &Item{
		CinemaID:  cinemaID,
		Type:      itemType,
		Name:      name,
		Price:     price,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate は商品の検証を行う
func (i *Item) Validate() error {
	if i.CinemaID == "" {
		return ErrCinemaIDRequired
	}
	if i.Name == "" {
		return ErrItemNameRequired
	}
	if i.Type != TypeProduct && i.Type != TypeCombo {
		return ErrInvalidItemType
	}
	if i.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// SellableAt は指定した映画館で販売できるかを返す
func (i *Item) SellableAt(cinemaID string) bool {
	return i.Active && i.CinemaID == cinemaID
}
