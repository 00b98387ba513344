package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/seat"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
)

type seatRow struct {
	ID        string    `db:"id"`
	RoomID    string    `db:"room_id"`
	Row       string    `db:"row_label"`
	Number    int       `db:"number"`
	Type      string    `db:"seat_type"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *seatRow) toEntity() *seat.Seat {
	return &seat.Seat{
		ID: r.ID, RoomID: r.RoomID, Row: r.Row, Number: r.Number,
		Type: seat.Type(r.Type), CreatedAt: r.CreatedAt,
	}
}

const seatColumns = `id, room_id, row_label, number, seat_type, created_at`

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) CreateBulk(ctx context.Context, tx transaction.Tx, seats []*seat.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 1000
	for i := 0; i < len(seats); i += batchSize {
		end := i + batchSize
		if end > len(seats) {
			end = len(seats)
		}
		if err := r.createBulkBatch(ctx, queryerFor(r.db, tx), seats[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// createBulkBatch はバッチ単位でマルチバリューINSERTを実行し、採番されたIDを設定する
func (r *SeatRepository) createBulkBatch(ctx context.Context, q queryer, seats []*seat.Seat) error {
	query := `INSERT INTO seats (room_id, row_label, number, seat_type, created_at) VALUES `
	args := make([]interface{}, 0, len(seats)*5)
	placeholders := make([]string, 0, len(seats))

	for i, s := range seats {
		base := i * 5
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, s.RoomID, s.Row, s.Number, string(s.Type), s.CreatedAt)
	}
	query += strings.Join(placeholders, ", ") + " RETURNING id, row_label, number"

	var created []seatRow
	if err := q.SelectContext(ctx, &created, query, args...); err != nil {
		return fmt.Errorf("座席一括作成に失敗: %w", err)
	}

	// RETURNING の順序は保証されないため列・番号で対応付ける
	ids := make(map[string]string, len(created))
	for _, c := range created {
		ids[fmt.Sprintf("%s-%d", c.Row, c.Number)] = c.ID
	}
	for _, s := range seats {
		s.ID = ids[s.Label()]
	}
	return nil
}

func (r *SeatRepository) GetByRoomID(ctx context.Context, roomID string) ([]*seat.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats WHERE room_id = $1 ORDER BY row_label, number`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, roomID); err != nil {
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	seats := make([]*seat.Seat, len(rows))
	for i := range rows {
		seats[i] = rows[i].toEntity()
	}
	return seats, nil
}

func (r *SeatRepository) GetByIDs(ctx context.Context, ids []string) ([]*seat.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = ANY($1::uuid[])`
	var rows []seatRow
	if err := r.db.SelectContext(ctx, &rows, query, uuidArray(ids)); err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	seats := make([]*seat.Seat, len(rows))
	for i := range rows {
		seats[i] = rows[i].toEntity()
	}
	return seats, nil
}

func (r *SeatRepository) CountByRoomID(ctx context.Context, tx transaction.Tx, roomID string) (int, error) {
	var count int
	if err := queryerFor(r.db, tx).GetContext(ctx, &count, `SELECT COUNT(*) FROM seats WHERE room_id = $1`, roomID); err != nil {
		return 0, fmt.Errorf("座席数取得に失敗: %w", err)
	}
	return count, nil
}

var _ seat.Repository = (*SeatRepository)(nil)
