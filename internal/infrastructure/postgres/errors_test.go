package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	seatConflict := &pq.Error{Code: "23505", Constraint: "uq_reservation_seats_active"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"制約名一致", seatConflict, "uq_reservation_seats_active", true},
		{"制約名指定なし", seatConflict, "", true},
		{"ラップされていても判定できる", fmt.Errorf("insert: %w", seatConflict), "uq_reservation_seats_active", true},
		{"別の制約", seatConflict, "orders_reservation_id_key", false},
		{"別のエラーコード", &pq.Error{Code: "23503"}, "", false},
		{"pq以外のエラー", errors.New("boom"), "", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err, tt.constraint))
		})
	}
}
