package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	message := err.Error()
	switch {
	case strings.Contains(message, "duplicate key value violates unique constraint"): // postgres 23505
		return true
	case strings.Contains(message, "Error 1062"): // mysql
		return true
	case strings.Contains(message, "UNIQUE constraint failed"): // sqlite
		return true
	}
	return false
}
