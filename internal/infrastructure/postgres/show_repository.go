package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/show"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
)

// showRow はDBの行を表す構造体
type showRow struct {
	ID        string    `db:"id"`
	CinemaID  string    `db:"cinema_id"`
	MovieID   string    `db:"movie_id"`
	RoomID    string    `db:"room_id"`
	StartTime time.Time `db:"start_time"`
	EndTime   time.Time `db:"end_time"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *showRow) toEntity() *show.Show {
	return &show.Show{
		ID:        r.ID,
		CinemaID:  r.CinemaID,
		MovieID:   r.MovieID,
		RoomID:    r.RoomID,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Status:    show.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ShowRepository は上映リポジトリのPostgreSQL実装
type ShowRepository struct {
	db *sqlx.DB
}

// NewShowRepository はShowRepositoryを作成する
func NewShowRepository(db *sqlx.DB) *ShowRepository {
	return &ShowRepository{db: db}
}

// Create は上映を作成する
func (r *ShowRepository) Create(ctx context.Context, tx transaction.Tx, s *show.Show) error {
	query := `
		INSERT INTO shows (cinema_id, movie_id, room_id, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := queryerFor(r.db, tx).QueryRowContext(ctx, query,
		s.CinemaID, s.MovieID, s.RoomID, s.StartTime, s.EndTime, string(s.Status), s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("上映作成に失敗: %w", err)
	}
	return nil
}

// GetByID はIDから上映を取得する
func (r *ShowRepository) GetByID(ctx context.Context, id string) (*show.Show, error) {
	if !isUUID(id) {
		return nil, show.ErrShowNotFound
	}
	query := `
		SELECT id, cinema_id, movie_id, room_id, start_time, end_time, status, created_at, updated_at
		FROM shows WHERE id = $1`
	var row showRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, show.ErrShowNotFound
		}
		return nil, fmt.Errorf("上映取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// UpdateStatus は上映の状態を更新する
func (r *ShowRepository) UpdateStatus(ctx context.Context, s *show.Show) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE shows SET status = $1, updated_at = $2 WHERE id = $3`,
		string(s.Status), s.UpdatedAt, s.ID)
	if err != nil {
		return fmt.Errorf("上映更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return show.ErrShowNotFound
	}
	return nil
}

var _ show.Repository = (*ShowRepository)(nil)
