package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

// duplicateKey returns the unique key name violated by err, or "" if err is
// not a duplicate entry error.
func duplicateKey(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number != mysqlDuplicateEntry {
			return ""
		}
		msg = myErr.Message
	} else if !strings.Contains(msg, "Duplicate entry") {
		return ""
	}

	// Duplicate entry 'x' for key 'products.uq_products_owner_name'
	_, key, found := strings.Cut(msg, "for key '")
	if !found {
		return "unknown"
	}
	key = strings.TrimSuffix(key, "'")
	if _, after, ok := strings.Cut(key, "."); ok {
		key = after
	}
	return key
}

// isDuplicateEntryError checks if a MySQL error is a duplicate entry error (code 1062).
func isDuplicateEntryError(err error) bool {
	return duplicateKey(err) != ""
}
