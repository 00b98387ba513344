package postgres

import (
	"errors"

	"github.com/lib/pq"
)

const codeUniqueViolation = "23505"

// isUniqueViolation は一意制約違反かを返す
// constraint を指定した場合は制約名（インデックス名）も一致する場合のみ true
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
