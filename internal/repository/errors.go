// Package repository contains the MySQL data access layer.  Repositories
// expose plain methods bound to the pool and XxxTx variants that run inside
// a caller-owned transaction.
//
// The sentinel errors below let services distinguish failure scenarios
// without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by another exhibitor or user.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update or delete cannot proceed because
// of dependent records, such as withdrawing a slot that is booked.
var ErrConflict = errors.New("conflict")

// ErrDuplicate wraps MySQL error 1062.  For bookings it means the
// (exhibitor, date, start_time) window is already taken.
var ErrDuplicate = errors.New("duplicate key")

// ErrLockTimeout wraps MySQL errors 1205 (lock wait timeout) and 1213
// (deadlock).  The transaction has been rolled back by the server.
var ErrLockTimeout = errors.New("lock wait timeout")

const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// classify maps driver errors onto the sentinels above.  Unknown errors are
// returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %s", ErrDuplicate, me.Message)
		case mysqlLockWaitTimeout, mysqlDeadlock:
			return fmt.Errorf("%w: %s", ErrLockTimeout, me.Message)
		}
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func nullID(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	id := uint64(v.Int64)
	return &id
}

func idArg(p *uint64) any {
	if p == nil {
		return nil
	}
	return *p
}
