package postgres

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// isUUID は id が UUID 列とそのまま比較できる標準表記かを返す
func isUUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// uuidArray は UUID 表記の id だけを $n::uuid[] 用の配列パラメータにする
func uuidArray(ids []string) interface{} {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	return pq.Array(valid)
}
