package order

import "time"

// PaymentStatus は支払い状態を表す
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Status は注文の状態を表す
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

// Type は注文の種別を表す
type Type string

const (
	TypeOnline   Type = "ONLINE"
	TypeInPerson Type = "IN_PERSON"
)

// LineItem は座席以外の明細（商品・コンボ）
// UnitPrice は注文作成時点の価格スナップショット
type LineItem struct {
	ItemID    string
	Type      string
	Name      string
	Quantity  int
	UnitPrice int64
	Subtotal  int64
}

// Order は予約に対する注文と決済状態を表す
type Order struct {
	ID               string
	CinemaID         string
	ReservationID    string
	ShowID           string
	UserID           *string
	OperatorID       *string
	Items            []LineItem
	Subtotal         int64
	Discount         int64
	Tax              int64
	Total            int64
	PromotionCode    *string
	PaymentMethod    string
	PaymentStatus    PaymentStatus
	Status           Status
	Type             Type
	PaymentReference *string
	TicketToken      *string
	Notes            string
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOnlineOrder はオンライン注文を作成する
func NewOnlineOrder(cinemaID, reservationID, showID string, userID *string, items []LineItem, now time.Time) *Order {
	return &Order{
		CinemaID:      cinemaID,
		ReservationID: reservationID,
		ShowID:        showID,
		UserID:        userID,
		Items:         items,
		PaymentStatus: PaymentPending,
		Status:        StatusPending,
		Type:          TypeOnline,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewBoxOfficeOrder は窓口販売の注文を作成する
// 支払いは窓口で完了しているため作成時点で PAID / COMPLETED
func NewBoxOfficeOrder(cinemaID, reservationID, showID, operatorID, paymentMethod string, items []LineItem, now time.Time) *Order {
	return &Order{
		CinemaID:      cinemaID,
		ReservationID: reservationID,
		ShowID:        showID,
		OperatorID:    &operatorID,
		Items:         items,
		PaymentMethod: paymentMethod,
		PaymentStatus: PaymentPaid,
		Status:        StatusCompleted,
		Type:          TypeInPerson,
		PaidAt:        &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MaxLineQuantity は明細1行あたりの数量の上限
const MaxLineQuantity = 100

// NewLineItem は明細を作成する
func NewLineItem(itemID, itemType, name string, quantity int, unitPrice int64) (LineItem, error) {
	if quantity < 1 || quantity > MaxLineQuantity {
		return LineItem{}, ErrInvalidQuantity
	}
	return LineItem{
		ItemID:    itemID,
		Type:      itemType,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice * int64(quantity),
	}, nil
}

// ItemsSubtotal は商品明細の合計を返す
func (o *Order) ItemsSubtotal() int64 {
	var sum int64
	for _, it := range o.Items {
		sum += it.Subtotal
	}
	return sum
}

// ApplyPricing は金額を設定する
// total = subtotal - discount + tax で、負にはならない
func (o *Order) ApplyPricing(subtotal, discount, tax int64) {
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	total := subtotal - discount + tax
	if total < 0 {
		total = 0
	}
	o.Subtotal = subtotal
	o.Discount = discount
	o.Tax = tax
	o.Total = total
}

// IsPaid は支払い済みかを返す
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

// IsCanceled はキャンセル済みかを返す
func (o *Order) IsCanceled() bool {
	return o.Status == StatusCanceled
}

// NeedsTicket は支払い済みでチケット未発行かを返す
func (o *Order) NeedsTicket() bool {
	return o.IsPaid() && o.TicketToken == nil
}

// AccessibleBy は requester が参照できるかを返す
// requester が nil（スタッフ等）の場合は常に許可
func (o *Order) AccessibleBy(requester *string) bool {
	if requester == nil {
		return true
	}
	return o.UserID != nil && *o.UserID == *requester
}

// MarkPaid は支払い完了として注文を完了にする
func (o *Order) MarkPaid(reference string, now time.Time) error {
	if o.IsCanceled() {
		return ErrOrderCanceled
	}
	if o.IsPaid() {
		return ErrOrderAlreadyPaid
	}
	o.PaymentStatus = PaymentPaid
	o.Status = StatusCompleted
	if reference != "" {
		o.PaymentReference = &reference
	}
	o.PaidAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkPaymentPending は決済処理中として記録する
func (o *Order) MarkPaymentPending(reference string, now time.Time) {
	o.PaymentStatus = PaymentPending
	if reference != "" {
		o.PaymentReference = &reference
	}
	o.UpdatedAt = now
}

// MarkPaymentFailed は決済失敗として記録する
// 後から承認通知が届いた場合は PAID に遷移できる
func (o *Order) MarkPaymentFailed(reference string, now time.Time) {
	o.PaymentStatus = PaymentFailed
	if reference != "" {
		o.PaymentReference = &reference
	}
	o.UpdatedAt = now
}

// AttachTicket は発行したチケットトークンを設定する
func (o *Order) AttachTicket(token string, now time.Time) error {
	if !o.IsPaid() {
		return ErrOrderNotPaid
	}
	o.TicketToken = &token
	o.UpdatedAt = now
	return nil
}

// Cancel は未払いの注文をキャンセルする
func (o *Order) Cancel(now time.Time) error {
	if o.Status != StatusPending || o.IsPaid() {
		return ErrOrderNotCancelable
	}
	o.Status = StatusCanceled
	o.UpdatedAt = now
	return nil
}

// Refund は支払い済み注文を返金済みにしてキャンセルする
func (o *Order) Refund(now time.Time) error {
	if o.Status != StatusCompleted || !o.IsPaid() {
		return ErrOrderNotCancelable
	}
	o.PaymentStatus = PaymentRefunded
	o.Status = StatusCanceled
	o.TicketToken = nil
	o.UpdatedAt = now
	return nil
}

// VisibleTicket は支払い済みの場合のみトークンを返す
func (o *Order) VisibleTicket() *string {
	if !o.IsPaid() {
		return nil
	}
	return o.TicketToken
}
