package database

import (
	"errors"

	"github.com/lib/pq"
)

// SQLSTATE de violação de restrição única.
const uniqueViolation = "23505"

// UniqueViolation devolve o nome da restrição única violada, se err for uma.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
