package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/lib/pq"

	"eventease/internal/domain"
)

// SQLSTATE codes the lottery cares about.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
	pqAdminShutdown        = "57P01"
	pqCannotConnectNow     = "57P03"
)

// classify wraps store failures worth retrying with domain.ErrTransient. Anything
// else, permission errors included, is returned unchanged.
func classify(err error) error {
	if err == nil || errors.Is(err, domain.ErrTransient) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch code {
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable, pqAdminShutdown, pqCannotConnectNow:
			return true
		}
		// class 08: connection exception
		return strings.HasPrefix(code, "08")
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

// chunk splits items into slices of at most size elements.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	return append(out, items)
}
