package reservation

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusExpired   Status = "EXPIRED"
	StatusCanceled  Status = "CANCELED"
)

// DefaultHoldDuration は仮押さえの既定の有効期間
const DefaultHoldDuration = 15 * time.Minute

// Line は仮押さえした座席1席分を表す
// Price は作成時点の券種価格のスナップショット
type Line struct {
	ID           string
	SeatID       string
	TicketTypeID string
	Price        int64
}

// Reservation は上映の座席に対する仮押さえ・確定を表す
type Reservation struct {
	ID             string
	CinemaID       string
	ShowID         string
	OwnerID        *string // 窓口販売・匿名の場合は nil
	Lines          []Line
	Status         Status
	IdempotencyKey string
	ExpiresAt      time.Time
	ConfirmedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewReservation は新しい仮押さえを作成する
func NewReservation(cinemaID, showID string, ownerID *string, lines []Line, now time.Time, hold time.Duration) *Reservation {
	if hold <= 0 {
		hold = DefaultHoldDuration
	}
	return &Reservation{
		CinemaID:  cinemaID,
		ShowID:    showID,
		OwnerID:   ownerID,
		Lines:     lines,
		Status:    StatusPending,
		ExpiresAt: now.Add(hold),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.CinemaID == "" {
		return ErrCinemaIDRequired
	}
	if r.ShowID == "" {
		return ErrShowIDRequired
	}
	if len(r.Lines) == 0 {
		return ErrSeatSelectionRequired
	}
	seen := make(map[string]struct{}, len(r.Lines))
	for _, l := range r.Lines {
		if l.SeatID == "" || l.TicketTypeID == "" {
			return ErrSeatSelectionRequired
		}
		if _, dup := seen[l.SeatID]; dup {
			return ErrDuplicateSeat
		}
		seen[l.SeatID] = struct{}{}
	}
	return nil
}

// SeatIDs は仮押さえしている座席IDを返す
func (r *Reservation) SeatIDs() []string {
	ids := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		ids[i] = l.SeatID
	}
	return ids
}

// Total は座席の価格合計を返す
func (r *Reservation) Total() int64 {
	var total int64
	for _, l := range r.Lines {
		total += l.Price
	}
	return total
}

// IsPending は予約が保留中かを返す
func (r *Reservation) IsPending() bool {
	return r.Status == StatusPending
}

// IsExpiredAt は指定時刻に有効期限を過ぎているかを返す
func (r *Reservation) IsExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IsActive は座席を占有している状態かを返す
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// AccessibleBy は requester が参照・取消できるかを返す
// requester が nil（スタッフ等）の場合は常に許可
func (r *Reservation) AccessibleBy(requester *string) bool {
	if requester == nil {
		return true
	}
	return r.OwnerID != nil && *r.OwnerID == *requester
}

// PayableBy は payer がこの予約で注文できるかを返す
// 所有者のいない予約は誰でも注文できる
func (r *Reservation) PayableBy(payer *string) bool {
	if payer == nil || r.OwnerID == nil {
		return true
	}
	return *r.OwnerID == *payer
}

// Confirm は予約を確定する
func (r *Reservation) Confirm(now time.Time) error {
	if r.Status != StatusPending {
		return ErrReservationNotPending
	}
	if r.IsExpiredAt(now) {
		return ErrReservationExpired
	}
	r.Status = StatusConfirmed
	r.ConfirmedAt = &now
	r.UpdatedAt = now
	return nil
}

// Cancel は予約をキャンセルする
func (r *Reservation) Cancel(now time.Time) error {
	switch r.Status {
	case StatusPending:
	case StatusCanceled:
		return ErrReservationAlreadyCanceled
	case StatusConfirmed:
		return ErrReservationAlreadyConfirmed
	default:
		return ErrReservationNotPending
	}
	r.Status = StatusCanceled
	r.UpdatedAt = now
	return nil
}

// Expire は期限切れの保留中予約を EXPIRED にする
func (r *Reservation) Expire(now time.Time) error {
	if r.Status != StatusPending {
		return ErrReservationNotPending
	}
	if !r.IsExpiredAt(now) {
		return ErrReservationNotExpired
	}
	r.Status = StatusExpired
	r.UpdatedAt = now
	return nil
}
