package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/order"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
)

const constraintOrderReservation = "orders_reservation_id_key"

type orderRow struct {
	ID               string     `db:"id"`
	CinemaID         string     `db:"cinema_id"`
	ReservationID    string     `db:"reservation_id"`
	ShowID           string     `db:"show_id"`
	UserID           *string    `db:"user_id"`
	OperatorID       *string    `db:"operator_id"`
	Subtotal         int64      `db:"subtotal"`
	Discount         int64      `db:"discount"`
	Tax              int64      `db:"tax"`
	Total            int64      `db:"total"`
	PromotionCode    *string    `db:"promotion_code"`
	PaymentMethod    string     `db:"payment_method"`
	PaymentStatus    string     `db:"payment_status"`
	Status           string     `db:"status"`
	Type             string     `db:"order_type"`
	PaymentReference *string    `db:"payment_reference"`
	TicketToken      *string    `db:"ticket_token"`
	Notes            string     `db:"notes"`
	PaidAt           *time.Time `db:"paid_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

type orderItemRow struct {
	OrderID   string `db:"order_id"`
	ItemID    string `db:"item_id"`
	Type      string `db:"item_type"`
	Name      string `db:"name"`
	Quantity  int    `db:"quantity"`
	UnitPrice int64  `db:"unit_price"`
	Subtotal  int64  `db:"subtotal"`
}

const orderColumns = `id, cinema_id, reservation_id, show_id, user_id, operator_id, subtotal, discount, tax, total,
	promotion_code, payment_method, payment_status, status, order_type, payment_reference, ticket_token, notes,
	paid_at, created_at, updated_at`

// OrderRepository は注文リポジトリのPostgreSQL実装
type OrderRepository struct{ db *sqlx.DB }

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, tx transaction.Tx, o *order.Order) error {
	q := queryerFor(r.db, tx)
	query := `
		INSERT INTO orders (cinema_id, reservation_id, show_id, user_id, operator_id, subtotal, discount, tax, total,
			promotion_code, payment_method, payment_status, status, order_type, payment_reference, ticket_token, notes,
			paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id`
	if err := q.QueryRowContext(ctx, query,
		o.CinemaID, o.ReservationID, o.ShowID, o.UserID, o.OperatorID, o.Subtotal, o.Discount, o.Tax, o.Total,
		o.PromotionCode, o.PaymentMethod, string(o.PaymentStatus), string(o.Status), string(o.Type),
		o.PaymentReference, o.TicketToken, o.Notes, o.PaidAt, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID); err != nil {
		if isUniqueViolation(err, constraintOrderReservation) {
			return order.ErrOrderAlreadyExists
		}
		return fmt.Errorf("注文作成に失敗: %w", err)
	}

	for _, it := range o.Items {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO order_items (order_id, item_id, item_type, name, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID, it.ItemID, it.Type, it.Name, it.Quantity, it.UnitPrice, it.Subtotal,
		); err != nil {
			return fmt.Errorf("注文明細の登録に失敗: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	if !isUUID(id) {
		return nil, order.ErrOrderNotFound
	}
	return r.getOne(ctx, r.db, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*order.Order, error) {
	if !isUUID(id) {
		return nil, order.ErrOrderNotFound
	}
	return r.getOne(ctx, queryerFor(r.db, tx), `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *OrderRepository) GetByPaymentReference(ctx context.Context, reference string) (*order.Order, error) {
	return r.getOne(ctx, r.db,
		`SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1 ORDER BY created_at DESC LIMIT 1`, reference)
}

func (r *OrderRepository) getOne(ctx context.Context, q queryer, query string, args ...interface{}) (*order.Order, error) {
	var row orderRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("注文取得に失敗: %w", err)
	}
	items, err := r.getItems(ctx, q, []string{row.ID})
	if err != nil {
		return nil, err
	}
	return toOrder(&row, items[row.ID]), nil
}

func (r *OrderRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*order.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
}

func (r *OrderRepository) ListPaidWithoutTicket(ctx context.Context, limit int) ([]*order.Order, error) {
	return r.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_status = 'PAID' AND ticket_token IS NULL ORDER BY paid_at LIMIT $1`,
		limit)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*order.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("注文一覧取得に失敗: %w", err)
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	items, err := r.getItems(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	result := make([]*order.Order, len(rows))
	for i := range rows {
		result[i] = toOrder(&rows[i], items[rows[i].ID])
	}
	return result, nil
}

func (r *OrderRepository) Update(ctx context.Context, tx transaction.Tx, o *order.Order) error {
	query := `
		UPDATE orders SET payment_status = $1, status = $2, payment_method = $3, payment_reference = $4,
			ticket_token = $5, paid_at = $6, updated_at = $7
		WHERE id = $8`
	result, err := queryerFor(r.db, tx).ExecContext(ctx, query,
		string(o.PaymentStatus), string(o.Status), o.PaymentMethod, o.PaymentReference,
		o.TicketToken, o.PaidAt, o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("注文更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) getItems(ctx context.Context, q queryer, orderIDs []string) (map[string][]order.LineItem, error) {
	out := make(map[string][]order.LineItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var rows []orderItemRow
	query := `
		SELECT order_id, item_id, item_type, name, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = ANY($1::uuid[]) ORDER BY name`
	if err := q.SelectContext(ctx, &rows, query, uuidArray(orderIDs)); err != nil {
		return nil, fmt.Errorf("注文明細の取得に失敗: %w", err)
	}
	for _, row := range rows {
		out[row.OrderID] = append(out[row.OrderID], order.LineItem{
			ItemID: row.ItemID, Type: row.Type, Name: row.Name,
			Quantity: row.Quantity, UnitPrice: row.UnitPrice, Subtotal: row.Subtotal,
		})
	}
	return out, nil
}

func toOrder(row *orderRow, items []order.LineItem) *order.Order {
	return &order.Order{
		ID: row.ID, CinemaID: row.CinemaID, ReservationID: row.ReservationID, ShowID: row.ShowID,
		UserID: row.UserID, OperatorID: row.OperatorID, Items: items,
		Subtotal: row.Subtotal, Discount: row.Discount, Tax: row.Tax, Total: row.Total,
		PromotionCode: row.PromotionCode, PaymentMethod: row.PaymentMethod,
		PaymentStatus: order.PaymentStatus(row.PaymentStatus), Status: order.Status(row.Status),
		Type: order.Type(row.Type), PaymentReference: row.PaymentReference, TicketToken: row.TicketToken,
		Notes: row.Notes, PaidAt: row.PaidAt, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

var _ order.Repository = (*OrderRepository)(nil)
