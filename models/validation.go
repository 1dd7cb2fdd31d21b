package models

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	ipRegex       = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$|^([a-fA-F0-9:]+)$`)
	hostnameRegex = regexp.MustCompile(`^([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9\-]*[a-zA-Z0-9])(\.([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9\-]*[a-zA-Z0-9]))*$`)
	countryRegex  = regexp.MustCompile(`^[A-Z]{2}$`)
)

// IsValidEmail reports whether s looks like a deliverable address.
func IsValidEmail(s string) bool { return emailRegex.MatchString(s) }

// IsValidUsername accepts 3-20 letters, digits, underscores or hyphens.
func IsValidUsername(s string) bool { return usernameRegex.MatchString(s) }

// websiteProblem returns a user-facing message, or "" when raw is acceptable.
func websiteProblem(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "Invalid website URL format"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "Website URL must use HTTP or HTTPS protocol"
	}
	return ""
}

// StringList is a JSON array of strings that also accepts a single string on
// input, and is stored as a JSON text column.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := sonic.Unmarshal(data, &single); err != nil {
			return err
		}
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := sonic.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("must be a string or an array of strings")
	}
	*l = many
	return nil
}

// Normalized trims entries and drops empty ones.
func (l StringList) Normalized() StringList {
	out := make(StringList, 0, len(l))
	for _, s := range l {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := sonic.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	var many []string
	if err := sonic.Unmarshal(raw, &many); err != nil {
		return fmt.Errorf("invalid gamemode column: %w", err)
	}
	*l = many
	return nil
}

// RawJSON carries an opaque JSON document from the probe (players sample,
// tags, forge data) through storage untouched.
type RawJSON []byte

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}
	*r = append((*r)[:0], data...)
	return nil
}

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

func (r *RawJSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case string:
		*r = RawJSON(v)
	case []byte:
		*r = append(RawJSON(nil), v...)
	default:
		return fmt.Errorf("cannot scan %T into RawJSON", src)
	}
	return nil
}
