package seat

import (
	"fmt"
	"time"
)

// Type は座席種別を表す
type Type string

const (
	TypeStandard   Type = "STANDARD"
	TypePremium    Type = "PREMIUM"
	TypeAccessible Type = "ACCESSIBLE"
)

// Seat はスクリーンの座席を表す
// 予約状態は持たない（上映ごとのアクティブな仮押さえから導出する）
type Seat struct {
	ID        string
	RoomID    string
	Row       string
	Number    int
	Type      Type
	CreatedAt time.Time
}

// NewSeat は新しい座席を作成する
func NewSeat(roomID, row string, number int, seatType Type) *Seat {
	if seatType == "" {
		seatType = TypeStandard
	}
	return &Seat{
		RoomID:    roomID,
		Row:       row,
		Number:    number,
		Type:      seatType,
		CreatedAt: time.Now(),
	}
}

// Label は "A-1" 形式の座席表示を返す
func (s *Seat) Label() string {
	return fmt.Sprintf("%s-%d", s.Row, s.Number)
}

// Validate は座席の検証を行う
func (s *Seat) Validate() error {
	if s.RoomID == "" {
		return ErrRoomIDRequired
	}
	if s.Row == "" || s.Number <= 0 {
		return ErrInvalidSeatPosition
	}
	switch s.Type {
	case TypeStandard, TypePremium, TypeAccessible:
	default:
		return ErrInvalidSeatType
	}
	return nil
}

// TicketType は券種（一般・学生など）と価格を表す
type TicketType struct {
	ID        string
	CinemaID  string
	Name      string
	Price     int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTicketType は新しい券種を作成する
func NewTicketType(cinemaID, name string, price int64) *TicketType {
	now := time.Now()
	return &TicketType{
		CinemaID:  cinemaID,
		Name:      name,
		Price:     price,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate は券種の検証を行う
func (t *TicketType) Validate() error {
	if t.CinemaID == "" {
		return ErrCinemaIDRequired
	}
	if t.Name == "" {
		return ErrTicketTypeNameRequired
	}
	if t.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// UsableAt は指定した映画館で使える券種かを返す
func (t *TicketType) UsableAt(cinemaID string) bool {
	return t.Active && t.CinemaID == cinemaID
}
