package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/brekfst/mcdirectory/pkg"
)

// timeLayout is how every timestamp is written. SQLite's date functions and
// lexical comparisons both work on it.
const timeLayout = "2006-01-02 15:04:05"

// dbTime formats t for a bind parameter. time.Time is never bound directly
// because the driver would write a layout that does not compare lexically.
func dbTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func dbTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return dbTime(*t)
}

var readLayouts = []string{
	timeLayout,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
}

func parseDBTime(s string) (time.Time, error) {
	for _, layout := range readLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time value %q", s)
}

// timeScanner accepts both forms the driver returns for times: time.Time for
// DATETIME columns and text for computed expressions such as MAX(timestamp)
// or strftime buckets.
type timeScanner struct {
	dst  *time.Time
	null **time.Time
}

func scanTime(dst *time.Time) sql.Scanner       { return &timeScanner{dst: dst} }
func scanNullTime(dst **time.Time) sql.Scanner { return &timeScanner{null: dst} }

func (s *timeScanner) Scan(src any) error {
	var t time.Time
	switch v := src.(type) {
	case nil:
		if s.null != nil {
			*s.null = nil
			return nil
		}
		return fmt.Errorf("unexpected NULL time")
	case time.Time:
		t = v.UTC()
	case string:
		parsed, err := parseDBTime(v)
		if err != nil {
			return err
		}
		t = parsed
	case []byte:
		parsed, err := parseDBTime(string(v))
		if err != nil {
			return err
		}
		t = parsed
	case int64:
		t = time.Unix(v, 0).UTC()
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}

	if s.null != nil {
		*s.null = &t
	} else {
		*s.dst = t
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// requireAffected maps a zero-row UPDATE/DELETE to ErrNotFound.
func requireAffected(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s not found", pkg.ErrNotFound, what)
	}
	return nil
}

// escapeLike escapes LIKE wildcards; queries use ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
