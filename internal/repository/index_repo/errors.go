package index_repo

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

const pqUniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	// Both SQLite drivers report constraint failures with the engine's message.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
