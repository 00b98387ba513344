package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/product"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
)

type ticketTypeRow struct {
	ID        string    `db:"id"`
	CinemaID  string    `db:"cinema_id"`
	Name      string    `db:"name"`
	Price     int64     `db:"price"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TicketTypeRepository は券種リポジトリのPostgreSQL実装
type TicketTypeRepository struct{ db *sqlx.DB }

func NewTicketTypeRepository(db *sqlx.DB) *TicketTypeRepository {
	return &TicketTypeRepository{db: db}
}

func (r *TicketTypeRepository) Create(ctx context.Context, t *seat.TicketType) error {
	query := `
		INSERT INTO ticket_types (cinema_id, name, price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, t.CinemaID, t.Name, t.Price, t.Active, t.CreatedAt, t.UpdatedAt).Scan(&t.ID); err != nil {
		return fmt.Errorf("券種作成に失敗: %w", err)
	}
	return nil
}

func (r *TicketTypeRepository) GetByIDs(ctx context.Context, ids []string) ([]*seat.TicketType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []ticketTypeRow
	query := `SELECT id, cinema_id, name, price, active, created_at, updated_at FROM ticket_types WHERE id = ANY($1::uuid[])`
	if err := r.db.SelectContext(ctx, &rows, query, uuidArray(ids)); err != nil {
		return nil, fmt.Errorf("券種取得に失敗: %w", err)
	}
	result := make([]*seat.TicketType, len(rows))
	for i, row := range rows {
		result[i] = &seat.TicketType{
			ID: row.ID, CinemaID: row.CinemaID, Name: row.Name, Price: row.Price,
			Active: row.Active, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
		}
	}
	return result, nil
}

type itemRow struct {
	ID        string    `db:"id"`
	CinemaID  string    `db:"cinema_id"`
	Type      string    `db:"item_type"`
	Name      string    `db:"name"`
	Price     int64     `db:"price"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ItemRepository は売店商品リポジトリのPostgreSQL実装
type ItemRepository struct{ db *sqlx.DB }

func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Create(ctx context.Context, it *product.Item) error {
	query := `
		INSERT INTO items (cinema_id, item_type, name, price, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query,
		it.CinemaID, string(it.Type), it.Name, it.Price, it.Active, it.CreatedAt, it.UpdatedAt,
	).Scan(&it.ID); err != nil {
		return fmt.Errorf("商品作成に失敗: %w", err)
	}
	return nil
}

func (r *ItemRepository) GetByIDs(ctx context.Context, ids []string) ([]*product.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []itemRow
	query := `SELECT id, cinema_id, item_type, name, price, active, created_at, updated_at FROM items WHERE id = ANY($1::uuid[])`
	if err := r.db.SelectContext(ctx, &rows, query, uuidArray(ids)); err != nil {
		return nil, fmt.Errorf("商品取得に失敗: %w", err)
	}
	result := make([]*product.Item, len(rows))
	for i, row := range rows {
		result[i] = &product.Item{
			ID: row.ID, CinemaID: row.CinemaID, Type: product.Type(row.Type), Name: row.Name,
			Price: row.Price, Active: row.Active, CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
		}
	}
	return result, nil
}

var (
	_ seat.TicketTypeRepository = (*TicketTypeRepository)(nil)
	_ product.Repository        = (*ItemRepository)(nil)
)
