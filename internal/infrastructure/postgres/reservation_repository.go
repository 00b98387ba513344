package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/cinema-ticketing/internal/domain/reservation"
	"github.com/sanosuguru/cinema-ticketing/internal/domain/transaction"
)

const (
	constraintActiveSeat  = "uq_reservation_seats_active"
	constraintIdempotency = "uq_reservations_idempotency"
)

type reservationRow struct {
	ID             string     `db:"id"`
	CinemaID       string     `db:"cinema_id"`
	ShowID         string     `db:"show_id"`
	OwnerID        *string    `db:"owner_id"`
	Status         string     `db:"status"`
	IdempotencyKey *string    `db:"idempotency_key"`
	ExpiresAt      time.Time  `db:"expires_at"`
	ConfirmedAt    *time.Time `db:"confirmed_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

type reservationLineRow struct {
	ID            string `db:"id"`
	ReservationID string `db:"reservation_id"`
	SeatID        string `db:"seat_id"`
	TicketTypeID  string `db:"ticket_type_id"`
	Price         int64  `db:"price"`
}

const reservationColumns = `id, cinema_id, show_id, owner_id, status, idempotency_key, expires_at, confirmed_at, created_at, updated_at`

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	q := queryerFor(r.db, tx)

	var idemKey *string
	if res.IdempotencyKey != "" {
		idemKey = &res.IdempotencyKey
	}
	query := `
		INSERT INTO reservations (cinema_id, show_id, owner_id, status, idempotency_key, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := q.QueryRowContext(ctx, query,
		res.CinemaID, res.ShowID, res.OwnerID, string(res.Status), idemKey, res.ExpiresAt, res.CreatedAt, res.UpdatedAt,
	).Scan(&res.ID); err != nil {
		if isUniqueViolation(err, constraintIdempotency) {
			return reservation.ErrIdempotencyKeyAlreadyExists
		}
		return fmt.Errorf("予約作成に失敗: %w", err)
	}

	lineQuery := `
		INSERT INTO reservation_seats (reservation_id, show_id, seat_id, ticket_type_id, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	for i := range res.Lines {
		l := &res.Lines[i]
		if err := q.QueryRowContext(ctx, lineQuery, res.ID, res.ShowID, l.SeatID, l.TicketTypeID, l.Price).Scan(&l.ID); err != nil {
			if isUniqueViolation(err, constraintActiveSeat) {
				return reservation.ErrSeatUnavailable
			}
			return fmt.Errorf("予約座席の登録に失敗: %w", err)
		}
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	if !isUUID(id) {
		return nil, reservation.ErrReservationNotFound
	}
	return r.getOne(ctx, r.db, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	if !isUUID(id) {
		return nil, reservation.ErrReservationNotFound
	}
	return r.getOne(ctx, queryerFor(r.db, tx), `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepository) GetByIdempotencyKey(ctx context.Context, ownerID, key string) (*reservation.Reservation, error) {
	return r.getOne(ctx, r.db,
		`SELECT `+reservationColumns+` FROM reservations WHERE owner_id = $1 AND idempotency_key = $2`, ownerID, key)
}

func (r *ReservationRepository) getOne(ctx context.Context, q queryer, query string, args ...interface{}) (*reservation.Reservation, error) {
	var row reservationRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	lines, err := r.getLines(ctx, q, []string{row.ID})
	if err != nil {
		return nil, err
	}
	return toReservation(&row, lines[row.ID]), nil
}

func (r *ReservationRepository) GetByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, ownerID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	lines, err := r.getLines(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = toReservation(&rows[i], lines[rows[i].ID])
	}
	return result, nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	q := queryerFor(r.db, tx)
	result, err := q.ExecContext(ctx,
		`UPDATE reservations SET status = $1, confirmed_at = $2, updated_at = $3 WHERE id = $4`,
		string(res.Status), res.ConfirmedAt, res.UpdatedAt, res.ID)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	if !res.IsActive() {
		if _, err := q.ExecContext(ctx,
			`UPDATE reservation_seats SET active = FALSE WHERE reservation_id = $1 AND active`, res.ID); err != nil {
			return fmt.Errorf("予約座席の解放に失敗: %w", err)
		}
	}
	return nil
}

func (r *ReservationRepository) ActiveSeatIDs(ctx context.Context, showID string) ([]string, error) {
	var seatIDs []string
	if err := r.db.SelectContext(ctx, &seatIDs,
		`SELECT seat_id FROM reservation_seats WHERE show_id = $1 AND active`, showID); err != nil {
		return nil, fmt.Errorf("確保済み座席の取得に失敗: %w", err)
	}
	return seatIDs, nil
}

// ExpirePending は期限切れの保留中予約を1文で EXPIRED にし座席を解放する
// SKIP LOCKED により注文作成中の予約や他のスイーパーと競合しない
func (r *ReservationRepository) ExpirePending(ctx context.Context, now time.Time, limit int) ([]reservation.ExpiredHold, error) {
	query := `
		WITH expired AS (
			SELECT id FROM reservations
			WHERE status = 'PENDING' AND expires_at < $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		), updated AS (
			UPDATE reservations r SET status = 'EXPIRED', updated_at = $1
			FROM expired e WHERE r.id = e.id
			RETURNING r.id, r.show_id
		), released AS (
			UPDATE reservation_seats rs SET active = FALSE
			FROM updated u WHERE rs.reservation_id = u.id
			RETURNING rs.id
		)
		SELECT id, show_id FROM updated`
	var rows []struct {
		ID     string `db:"id"`
		ShowID string `db:"show_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, now, limit); err != nil {
		return nil, fmt.Errorf("期限切れ予約の更新に失敗: %w", err)
	}
	result := make([]reservation.ExpiredHold, len(rows))
	for i, row := range rows {
		result[i] = reservation.ExpiredHold{ID: row.ID, ShowID: row.ShowID}
	}
	return result, nil
}

func (r *ReservationRepository) getLines(ctx context.Context, q queryer, reservationIDs []string) (map[string][]reservation.Line, error) {
	out := make(map[string][]reservation.Line, len(reservationIDs))
	if len(reservationIDs) == 0 {
		return out, nil
	}
	var rows []reservationLineRow
	query := `
		SELECT rs.id, rs.reservation_id, rs.seat_id, rs.ticket_type_id, rs.price
		FROM reservation_seats rs
		JOIN seats s ON s.id = rs.seat_id
		WHERE rs.reservation_id = ANY($1::uuid[])
		ORDER BY s.row_label, s.number`
	if err := q.SelectContext(ctx, &rows, query, uuidArray(reservationIDs)); err != nil {
		return nil, fmt.Errorf("予約座席の取得に失敗: %w", err)
	}
	for _, row := range rows {
		out[row.ReservationID] = append(out[row.ReservationID], reservation.Line{
			ID: row.ID, SeatID: row.SeatID, TicketTypeID: row.TicketTypeID, Price: row.Price,
		})
	}
	return out, nil
}

func toReservation(row *reservationRow, lines []reservation.Line) *reservation.Reservation {
	res := &reservation.Reservation{
		ID: row.ID, CinemaID: row.CinemaID, ShowID: row.ShowID, OwnerID: row.OwnerID,
		Lines: lines, Status: reservation.Status(row.Status),
		ExpiresAt: row.ExpiresAt, ConfirmedAt: row.ConfirmedAt,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
	if row.IdempotencyKey != nil {
		res.IdempotencyKey = *row.IdempotencyKey
	}
	return res
}

var _ reservation.Repository = (*ReservationRepository)(nil)
