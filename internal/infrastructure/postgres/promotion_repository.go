package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/promotion"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
)

const constraintPromotionCode = "promotions_cinema_id_code_key"

type promotionRow struct {
	ID            string     `db:"id"`
	CinemaID      string     `db:"cinema_id"`
	Code          string     `db:"code"`
	Name          string     `db:"name"`
	DiscountType  string     `db:"discount_type"`
	DiscountValue int64      `db:"discount_value"`
	StartsAt      *time.Time `db:"starts_at"`
	EndsAt        *time.Time `db:"ends_at"`
	UsageLimit    *int       `db:"usage_limit"`
	UsageCount    int        `db:"usage_count"`
	MinPurchase   int64      `db:"min_purchase"`
	Active        bool       `db:"active"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r *promotionRow) toEntity() *promotion.Promotion {
	return &promotion.Promotion{
		ID: r.ID, CinemaID: r.CinemaID, Code: r.Code, Name: r.Name,
		DiscountType: promotion.DiscountType(r.DiscountType), DiscountValue: r.DiscountValue,
		StartsAt: r.StartsAt, EndsAt: r.EndsAt, UsageLimit: r.UsageLimit, UsageCount: r.UsageCount,
		MinPurchase: r.MinPurchase, Active: r.Active, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const promotionColumns = `id, cinema_id, code, name, discount_type, discount_value, starts_at, ends_at,
	usage_limit, usage_count, min_purchase, active, created_at, updated_at`

// PromotionRepository はプロモーションリポジトリのPostgreSQL実装
type PromotionRepository struct{ db *sqlx.DB }

func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

func (r *PromotionRepository) Create(ctx context.Context, p *promotion.Promotion) error {
	query := `
		INSERT INTO promotions (cinema_id, code, name, discount_type, discount_value, starts_at, ends_at,
			usage_limit, usage_count, min_purchase, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query,
		p.CinemaID, p.Code, p.Name, string(p.DiscountType), p.DiscountValue, p.StartsAt, p.EndsAt,
		p.UsageLimit, p.UsageCount, p.MinPurchase, p.Active, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID); err != nil {
		if isUniqueViolation(err, constraintPromotionCode) {
			return promotion.ErrCodeAlreadyExists
		}
		return fmt.Errorf("プロモーション作成に失敗: %w", err)
	}
	return nil
}

func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*promotion.Promotion, error) {
	if !isUUID(id) {
		return nil, promotion.ErrPromotionNotFound
	}
	return r.getOne(ctx, r.db, promotion.ErrPromotionNotFound,
		`SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id)
}

func (r *PromotionRepository) GetByCode(ctx context.Context, cinemaID, code string) (*promotion.Promotion, error) {
	if !isUUID(cinemaID) {
		return nil, promotion.ErrPromotionCodeUnknown
	}
	return r.getOne(ctx, r.db, promotion.ErrPromotionCodeUnknown,
		`SELECT `+promotionColumns+` FROM promotions WHERE cinema_id = $1 AND code = $2`,
		cinemaID, promotion.NormalizeCode(code))
}

func (r *PromotionRepository) GetByCodeForUpdate(ctx context.Context, tx transaction.Tx, cinemaID, code string) (*promotion.Promotion, error) {
	if !isUUID(cinemaID) {
		return nil, promotion.ErrPromotionCodeUnknown
	}
	return r.getOne(ctx, queryerFor(r.db, tx), promotion.ErrPromotionCodeUnknown,
		`SELECT `+promotionColumns+` FROM promotions WHERE cinema_id = $1 AND code = $2 FOR UPDATE`,
		cinemaID, promotion.NormalizeCode(code))
}

func (r *PromotionRepository) getOne(ctx context.Context, q queryer, notFound error, query string, args ...interface{}) (*promotion.Promotion, error) {
	var row promotionRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("プロモーション取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *PromotionRepository) IncrementUsage(ctx context.Context, tx transaction.Tx, id string) error {
	result, err := queryerFor(r.db, tx).ExecContext(ctx,
		`UPDATE promotions SET usage_count = usage_count + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("プロモーション利用回数の更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return promotion.ErrPromotionNotFound
	}
	return nil
}

func (r *PromotionRepository) Deactivate(ctx context.Context, id string) error {
	if !isUUID(id) {
		return promotion.ErrPromotionNotFound
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE promotions SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("プロモーション無効化に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return promotion.ErrPromotionNotFound
	}
	return nil
}

func (r *PromotionRepository) ListActive(ctx context.Context, cinemaID string, now time.Time) ([]*promotion.Promotion, error) {
	if !isUUID(cinemaID) {
		return []*promotion.Promotion{}, nil
	}
	query := `
		SELECT ` + promotionColumns + ` FROM promotions
		WHERE cinema_id = $1 AND active
			AND (starts_at IS NULL OR starts_at <= $2)
			AND (ends_at IS NULL OR ends_at >= $2)
			AND (usage_limit IS NULL OR usage_count < usage_limit)
		ORDER BY code`
	var rows []promotionRow
	if err := r.db.SelectContext(ctx, &rows, query, cinemaID, now); err != nil {
		return nil, fmt.Errorf("プロモーション一覧取得に失敗: %w", err)
	}
	result := make([]*promotion.Promotion, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

var _ promotion.Repository = (*PromotionRepository)(nil)
