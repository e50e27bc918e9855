package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

// Kind classifies a failure of the schema routine.
type Kind int

const (
	// KindCatalog is any statement or catalog query the server rejected
	// for a reason not covered below.
	KindCatalog Kind = iota
	// KindTransport covers lost connections, timeouts and cancellation.
	KindTransport
	// KindAuth covers failed authentication and missing privileges.
	KindAuth
	// KindDuplicate means the object appeared between probe and create,
	// usually because another process ran the routine concurrently.
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindCatalog:
		return "catalog"
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindDuplicate:
		return "duplicate"
	}
	return "unknown"
}

// Error is returned by every schema operation that reached the database and
// failed. Err is the driver error, untouched.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err and attaches op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: Classify(err), Op: op, Err: err}
}

// IsKind reports whether err carries a store error of kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == k
	}
	return false
}

// Classify maps a driver error onto a Kind.
//
// See https://www.postgresql.org/docs/current/errcodes-appendix.html
func Classify(err error) Kind {
	if code := sqlState(err); code != "" {
		return classifyState(code)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) || pgconn.Timeout(err) {
		return KindTransport
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}
	return KindCatalog
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func classifyState(code string) Kind {
	switch code {
	case "42501": // insufficient_privilege
		return KindAuth
	case "42701", // duplicate_column
		"42P07", // duplicate_table
		"42710", // duplicate_object
		"42723", // duplicate_function
		"23505": // unique_violation, raised by racing CREATE ... IF NOT EXISTS
		return KindDuplicate
	case "57014", // query_canceled
		"57P01", // admin_shutdown
		"57P02", // crash_shutdown
		"57P03": // cannot_connect_now
		return KindTransport
	}
	switch {
	case strings.HasPrefix(code, "28"):
		return KindAuth
	case strings.HasPrefix(code, "08"):
		return KindTransport
	}
	return KindCatalog
}
