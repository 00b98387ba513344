package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/order"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/payment"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/product"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/reservation"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/apperror"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/logger"
	"github.com/sanosuguru/cinema-ticketing/internal/pkg/metrics"
)

// TicketIssuer はチケットトークンを発行する
type TicketIssuer interface {
	Issue(orderID, showID string, issuedAt time.Time) (string, error)
}

type OrderService struct {
	txManager       transaction.Manager
	orderRepo       order.Repository
	reservationRepo reservation.Repository
	itemRepo        product.Repository
	reservations    *ReservationService
	promotions      *PromotionService
	gateway         payment.Gateway
	issuer          TicketIssuer
	tax             TaxPolicy
	publisher       EventPublisher
	redirects       payment.RedirectURLs
	webhookSecret   string
	metrics         *metrics.Metrics
	now             func() time.Time
}

func NewOrderService(
	txManager transaction.Manager,
	or order.Repository,
	rr reservation.Repository,
	ir product.Repository,
	reservations *ReservationService,
	promotions *PromotionService,
	gateway payment.Gateway,
	issuer TicketIssuer,
) *OrderService {
	return &OrderService{
		txManager:       txManager,
		orderRepo:       or,
		reservationRepo: rr,
		itemRepo:        ir,
		reservations:    reservations,
		promotions:      promotions,
		gateway:         gateway,
		issuer:          issuer,
		tax:             NoTax{},
		now:             time.Now,
	}
}

func (s *OrderService) WithTaxPolicy(p TaxPolicy) *OrderService {
	if p != nil {
		s.tax = p
	}
	return s
}

func (s *OrderService) WithPublisher(p EventPublisher) *OrderService {
	s.publisher = p
	return s
}

// WithRedirectURLs は決済後の遷移先を設定する
func (s *OrderService) WithRedirectURLs(r payment.RedirectURLs) *OrderService {
	s.redirects = r
	return s
}

// WithWebhookSecret はWebhook署名の検証鍵を設定する（空なら検証しない）
func (s *OrderService) WithWebhookSecret(secret string) *OrderService {
	s.webhookSecret = secret
	return s
}

func (s *OrderService) WithMetrics(m *metrics.Metrics) *OrderService {
	s.metrics = m
	return s
}

func (s *OrderService) WithClock(now func() time.Time) *OrderService {
	s.now = now
	return s
}

// ItemSelection は商品と数量
type ItemSelection struct {
	ItemID   string
	Quantity int
}

type CreateOrderInput struct {
	ReservationID string
	PayerID       *string
	Items         []ItemSelection
	PromotionCode string
	Notes         string
}

// CreateOrder は保留中の予約から注文を作成し、同じトランザクションで予約を確定する
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*order.Order, error) {
	now := s.now()

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	res, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, input.ReservationID)
	if err != nil {
		return nil, err
	}
	if !res.PayableBy(input.PayerID) {
		return nil, reservation.ErrReservationNotFound
	}
	if err := s.ensureHoldUsable(ctx, tx, res, now); err != nil {
		s.countOrder(order.TypeOnline, "rejected")
		return nil, err
	}

	items, err := s.buildLineItems(ctx, res.CinemaID, input.Items)
	if err != nil {
		s.countOrder(order.TypeOnline, "rejected")
		return nil, err
	}

	o := order.NewOnlineOrder(res.CinemaID, res.ID, res.ShowID, input.PayerID, items, now)
	o.Notes = input.Notes
	if err := s.applyPricing(ctx, tx, o, res, input.PromotionCode, now); err != nil {
		s.countOrder(order.TypeOnline, "rejected")
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := s.reservations.ConfirmInTx(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.countOrder(order.TypeOnline, "created")
	logger.Info("注文を作成しました",
		zap.String("order_id", o.ID),
		zap.String("reservation_id", res.ID),
		zap.Int64("total", o.Total),
	)
	return o, nil
}

// ensureHoldUsable は注文可能な保留中予約かを確認する
// 期限切れの場合はその場で失効させてからエラーを返す
func (s *OrderService) ensureHoldUsable(ctx context.Context, tx transaction.Tx, res *reservation.Reservation, now time.Time) error {
	if !res.IsPending() {
		return reservation.ErrReservationNotPending
	}
	if !res.IsExpiredAt(now) {
		return nil
	}
	if err := s.reservations.ExpireInTx(ctx, tx, res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	s.reservations.invalidateSeatCache(ctx, res.ShowID)
	return reservation.ErrReservationExpired
}

func (s *OrderService) buildLineItems(ctx context.Context, cinemaID string, selections []ItemSelection) ([]order.LineItem, error) {
	if len(selections) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(selections))
	for _, sel := range selections {
		if sel.Quantity < 1 {
			return nil, order.ErrInvalidQuantity
		}
		ids = append(ids, sel.ItemID)
	}
	found, err := s.itemRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("商品取得に失敗: %w", err)
	}
	itemMap := make(map[string]*product.Item, len(found))
	for _, it := range found {
		itemMap[it.ID] = it
	}

	items := make([]order.LineItem, 0, len(selections))
	for _, sel := range selections {
		it, ok := itemMap[sel.ItemID]
		if !ok {
			return nil, product.ErrItemNotFound
		}
		if !it.SellableAt(cinemaID) {
			return nil, product.ErrItemUnsellable
		}
		li, err := order.NewLineItem(it.ID, string(it.Type), it.Name, sel.Quantity, it.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, nil
}

// applyPricing は小計・割引・税・合計を計算して注文に設定する
func (s *OrderService) applyPricing(ctx context.Context, tx transaction.Tx, o *order.Order, res *reservation.Reservation, code string, now time.Time) error {
	subtotal := res.Total() + o.ItemsSubtotal()

	var discount int64
	if strings.TrimSpace(code) != "" {
		applied, err := s.promotions.Evaluate(ctx, tx, res.CinemaID, code, subtotal, now)
		if err != nil {
			return err
		}
		discount = applied.Discount
		o.PromotionCode = &applied.Promotion.Code
	}

	taxable := subtotal - discount
	if taxable < 0 {
		taxable = 0
	}
	o.ApplyPricing(subtotal, discount, s.tax.Tax(taxable))
	return nil
}

type CreateBoxOfficeOrderInput struct {
	OperatorID    string
	ReservationID string
	ShowID        string
	Seats         []SeatSelection
	Items         []ItemSelection
	PromotionCode string
	PaymentMethod string
	Notes         string
}

// CreateBoxOfficeOrder は窓口販売の注文を作成する
// 支払いは窓口で完了しているため、ゲートウェイを介さずにチケットまで発行する
func (s *OrderService) CreateBoxOfficeOrder(ctx context.Context, input CreateBoxOfficeOrderInput) (*order.Order, error) {
	now := s.now()

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	var res *reservation.Reservation
	if input.ReservationID != "" {
		res, err = s.reservationRepo.GetByIDForUpdate(ctx, tx, input.ReservationID)
		if err != nil {
			return nil, err
		}
		if err := s.ensureHoldUsable(ctx, tx, res, now); err != nil {
			s.countOrder(order.TypeInPerson, "rejected")
			return nil, err
		}
	} else {
		res, err = s.reservations.CreateHoldInTx(ctx, tx, CreateHoldInput{ShowID: input.ShowID, Seats: input.Seats})
		if err != nil {
			s.countOrder(order.TypeInPerson, "rejected")
			return nil, err
		}
	}

	items, err := s.buildLineItems(ctx, res.CinemaID, input.Items)
	if err != nil {
		return nil, err
	}
	o := order.NewBoxOfficeOrder(res.CinemaID, res.ID, res.ShowID, input.OperatorID, input.PaymentMethod, items, now)
	o.Notes = input.Notes
	if err := s.applyPricing(ctx, tx, o, res, input.PromotionCode, now); err != nil {
		s.countOrder(order.TypeInPerson, "rejected")
		return nil, err
	}
	if err := s.orderRepo.Create(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := s.reservations.ConfirmInTx(ctx, tx, res); err != nil {
		return nil, err
	}

	issued := s.attachTicket(o, now)
	if issued {
		if err := s.orderRepo.Update(ctx, tx, o); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.countOrder(order.TypeInPerson, "created")
	s.reservations.invalidateSeatCache(ctx, res.ShowID)
	if issued {
		publishBestEffort(ctx, s.publisher, EventTicketIssued, o.ID, newTicketIssuedEvent(o, res, now))
	}
	return o, nil
}

// PayInput は決済要求の入力
type PayInput struct {
	PaymentMethodID string
	PayerEmail      string
	CardToken       string
	Installments    int
}

// PaymentOutcome は決済要求の結果
type PaymentOutcome struct {
	Order       *order.Order
	PaymentID   string
	Status      string
	RedirectURL string
}

// Pay は注文の決済を要求し、結果を注文に反映する
func (s *OrderService) Pay(ctx context.Context, orderID string, requester *string, input PayInput) (*PaymentOutcome, error) {
	o, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.AccessibleBy(requester) {
		return nil, order.ErrOrderNotFound
	}
	if o.IsPaid() {
		return nil, order.ErrOrderAlreadyPaid
	}
	if o.IsCanceled() {
		return nil, order.ErrOrderCanceled
	}

	result := &payment.ChargeResult{Status: payment.GatewayApproved}
	if o.Total > 0 {
		result, err = s.gateway.Charge(ctx, payment.ChargeRequest{
			OrderID:      o.ID,
			Amount:       o.Total,
			Description:  fmt.Sprintf("映画チケット 注文 #%s", o.ID),
			PayerEmail:   input.PayerEmail,
			MethodID:     input.PaymentMethodID,
			CardToken:    input.CardToken,
			Installments: input.Installments,
			RedirectURLs: s.redirects,
			// 失敗後の再決済がゲートウェイ側で前回の応答に置き換えられないよう試行ごとに変える
			IdempotencyKey: o.ID + ":" + uuid.NewString(),
		})
		if err != nil {
			s.metrics.RecordSettlement("error")
			logger.Error("決済要求に失敗", zap.String("order_id", o.ID), zap.Error(err))
			if apperror.KindOf(err) == nil {
				err = apperror.Wrap(err, apperror.ErrPaymentProcessing, "決済処理に失敗しました")
			}
			return nil, err
		}
	}

	updated, err := s.settle(ctx, o.ID, result.Status, result.PaymentID, input.PaymentMethodID)
	if err != nil {
		return nil, err
	}
	return &PaymentOutcome{
		Order:       updated,
		PaymentID:   result.PaymentID,
		Status:      result.Status,
		RedirectURL: redirectURL(s.redirects.ForStatus(updated.PaymentStatus), updated.ID),
	}, nil
}

// SettlePayment はゲートウェイの決済結果を注文に反映する
// 同じ結果を何度適用しても状態は変わらない
func (s *OrderService) SettlePayment(ctx context.Context, orderID, gatewayStatus, reference string) (*order.Order, error) {
	return s.settle(ctx, orderID, gatewayStatus, reference, "")
}

func (s *OrderService) settle(ctx context.Context, orderID, gatewayStatus, reference, method string) (*order.Order, error) {
	status, err := payment.MapStatus(gatewayStatus)
	if err != nil {
		s.metrics.RecordSettlement("error")
		return nil, err
	}
	now := s.now()

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	o, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.IsPaid() {
		return o, nil
	}
	if o.IsCanceled() {
		if status == order.PaymentPaid {
			return nil, order.ErrOrderCanceled
		}
		return o, nil
	}

	var res *reservation.Reservation
	issued := false
	switch status {
	case order.PaymentPaid:
		if err := o.MarkPaid(reference, now); err != nil {
			return nil, err
		}
		res, err = s.reservationRepo.GetByIDForUpdate(ctx, tx, o.ReservationID)
		if err != nil {
			return nil, err
		}
		if res.IsPending() {
			if err := s.reservations.ConfirmInTx(ctx, tx, res); err != nil {
				// 入金済みのため注文は確定させる
				logger.Warn("支払い済み注文の予約を確定できません",
					zap.String("order_id", o.ID),
					zap.String("reservation_id", res.ID),
					zap.Error(err),
				)
			}
		}
		issued = s.attachTicket(o, now)
	case order.PaymentPending:
		o.MarkPaymentPending(reference, now)
	default:
		o.MarkPaymentFailed(reference, now)
	}
	if method != "" {
		o.PaymentMethod = method
	}

	if err := s.orderRepo.Update(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.metrics.RecordSettlement(string(o.PaymentStatus))
	logger.Info("決済結果を反映しました",
		zap.String("order_id", o.ID),
		zap.String("gateway_status", gatewayStatus),
		zap.String("payment_status", string(o.PaymentStatus)),
	)
	if issued {
		publishBestEffort(ctx, s.publisher, EventTicketIssued, o.ID, newTicketIssuedEvent(o, res, now))
	}
	return o, nil
}

// attachTicket はチケットを発行して注文に設定する
// 発行に失敗しても注文は支払い済みのまま残し、再発行ワーカーに任せる
func (s *OrderService) attachTicket(o *order.Order, now time.Time) bool {
	token, err := s.issuer.Issue(o.ID, o.ShowID, now)
	if err != nil {
		s.metrics.RecordTicketIssuance("failed")
		logger.Error("チケット発行に失敗", zap.String("order_id", o.ID), zap.Error(err))
		return false
	}
	if err := o.AttachTicket(token, now); err != nil {
		s.metrics.RecordTicketIssuance("failed")
		return false
	}
	s.metrics.RecordTicketIssuance("issued")
	return true
}

// HandleWebhook はゲートウェイからの通知を処理する
// 署名を検証できない通知の本文の状態は使わず、ゲートウェイに問い合わせる
func (s *OrderService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	signed := false
	if s.webhookSecret != "" {
		if err := payment.VerifySignature(s.webhookSecret, body, signature); err != nil {
			return err
		}
		signed = true
	}
	n, err := payment.ParseNotification(body)
	if err != nil {
		return err
	}
	if !n.IsPayment() {
		logger.Debug("決済以外の通知を無視します", zap.String("type", n.Type), zap.String("topic", n.Topic))
		return nil
	}

	paymentID := n.PaymentID()
	status := ""
	if signed {
		status = n.Status
	}
	externalRef := ""
	if status == "" {
		info, err := s.gateway.GetPayment(ctx, paymentID)
		if err != nil {
			if apperror.KindOf(err) == nil {
				err = apperror.Wrap(err, apperror.ErrPaymentProcessing, "決済状態の取得に失敗しました")
			}
			return err
		}
		status = info.Status
		externalRef = info.ExternalReference
	}

	o, err := s.orderRepo.GetByPaymentReference(ctx, paymentID)
	if errors.Is(err, order.ErrOrderNotFound) && externalRef != "" {
		o, err = s.orderRepo.GetByID(ctx, externalRef)
	}
	if err != nil {
		return err
	}

	_, err = s.SettlePayment(ctx, o.ID, status, paymentID)
	return err
}

// CancelOrder は注文をキャンセルする
// 支払い済みの注文は先に返金し、返金に失敗した場合は何も変更しない
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*order.Order, error) {
	now := s.now()

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	o, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	refunded := false
	switch {
	case o.Status == order.StatusPending && !o.IsPaid():
		if err := o.Cancel(now); err != nil {
			return nil, err
		}
	case o.Status == order.StatusCompleted && o.IsPaid():
		if o.Type == order.TypeOnline && o.PaymentReference != nil {
			if err := s.gateway.Refund(ctx, *o.PaymentReference); err != nil {
				logger.Error("返金に失敗", zap.String("order_id", o.ID), zap.Error(err))
				if apperror.KindOf(err) == nil {
					err = apperror.Wrap(err, apperror.ErrPaymentProcessing, "返金処理に失敗しました")
				}
				return nil, err
			}
		}
		if err := o.Refund(now); err != nil {
			return nil, err
		}
		refunded = true
	default:
		return nil, order.ErrOrderNotCancelable
	}

	if err := s.orderRepo.Update(ctx, tx, o); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	if refunded {
		publishBestEffort(ctx, s.publisher, EventOrderRefunded, o.ID, newOrderRefundedEvent(o, now))
	}
	return o, nil
}

// GetOrder は注文を取得する
// requester が注文者でない場合は存在しないものとして扱う
func (s *OrderService) GetOrder(ctx context.Context, id string, requester *string) (*order.Order, error) {
	o, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.AccessibleBy(requester) {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, userID string, limit, offset int) ([]*order.Order, error) {
	limit, offset = normalizePage(limit, offset)
	return s.orderRepo.ListByUserID(ctx, userID, limit, offset)
}

// RetryTicketIssuance はチケット未発行の支払い済み注文に発行を再試行し、発行できた件数を返す
func (s *OrderService) RetryTicketIssuance(ctx context.Context, limit int) (int, error) {
	orders, err := s.orderRepo.ListPaidWithoutTicket(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("未発行注文の取得に失敗: %w", err)
	}
	issued := 0
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return issued, err
		}
		ok, err := s.issuePending(ctx, o.ID)
		if err != nil {
			logger.Warn("チケット再発行に失敗", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}
		if ok {
			issued++
		}
	}
	return issued, nil
}

func (s *OrderService) issuePending(ctx context.Context, orderID string) (bool, error) {
	now := s.now()

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	o, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return false, err
	}
	if !o.NeedsTicket() {
		return false, nil
	}
	if !s.attachTicket(o, now) {
		return false, nil
	}
	if err := s.orderRepo.Update(ctx, tx, o); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("コミットに失敗: %w", err)
	}

	res, err := s.reservationRepo.GetByID(ctx, o.ReservationID)
	if err != nil {
		logger.Warn("イベント用の予約取得に失敗", zap.String("order_id", o.ID), zap.Error(err))
	}
	publishBestEffort(ctx, s.publisher, EventTicketIssued, o.ID, newTicketIssuedEvent(o, res, now))
	return true, nil
}

func newTicketIssuedEvent(o *order.Order, res *reservation.Reservation, issuedAt time.Time) TicketIssuedEvent {
	ev := TicketIssuedEvent{
		OrderID:       o.ID,
		ReservationID: o.ReservationID,
		ShowID:        o.ShowID,
		CinemaID:      o.CinemaID,
		UserID:        o.UserID,
		Total:         o.Total,
		Seats:         []string{},
		IssuedAt:      issuedAt,
	}
	if res != nil {
		ev.Seats = res.SeatIDs()
	}
	return ev
}

func redirectURL(base, orderID string) string {
	if base == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "order_id=" + url.QueryEscape(orderID)
}

func (s *OrderService) countOrder(t order.Type, status string) {
	s.metrics.RecordOrder(string(t), status)
}
