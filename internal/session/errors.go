package session

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	sqlite "modernc.org/sqlite"
)

// MySQL error numbers for constraint violations.
const (
	mysqlErrNotNull1     = 1048
	mysqlErrDuplicateKey = 1062
	mysqlErrNoDefault    = 1364
	mysqlErrFKParent     = 1451
	mysqlErrFKChild      = 1452
)

// SQLite primary and extended result codes for constraint violations.
const (
	sqliteConstraint           = 19
	sqliteConstraintForeignKey = 787
	sqliteConstraintNotNull    = 1299
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// Error wraps a driver error with a stable classification code so that
// callers do not have to match on driver-specific error numbers.
type Error struct {
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// IsConflict reports whether the error is a unique or primary key violation.
func IsConflict(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == "unique_violation"
}

// normalizeError maps driver constraint errors to a classified Error.
// Other errors pass through unchanged.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlErrDuplicateKey:
			return &Error{Code: "unique_violation", Message: mysqlErr.Message, cause: err}
		case mysqlErrFKParent, mysqlErrFKChild:
			return &Error{Code: "foreign_key_violation", Message: mysqlErr.Message, cause: err}
		case mysqlErrNotNull1, mysqlErrNoDefault:
			return &Error{Code: "not_null_violation", Message: mysqlErr.Message, cause: err}
		}
		return err
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		switch {
		case code == sqliteConstraintUnique, code == sqliteConstraintPrimaryKey:
			return &Error{Code: "unique_violation", Message: sqliteErr.Error(), cause: err}
		case code == sqliteConstraintForeignKey:
			return &Error{Code: "foreign_key_violation", Message: sqliteErr.Error(), cause: err}
		case code == sqliteConstraintNotNull:
			return &Error{Code: "not_null_violation", Message: sqliteErr.Error(), cause: err}
		case code&0xff == sqliteConstraint:
			return &Error{Code: "constraint_violation", Message: sqliteErr.Error(), cause: err}
		}
		return err
	}

	return err
}
