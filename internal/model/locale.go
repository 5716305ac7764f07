package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Locale is the two-valued language tag stored per account. Only the
// constants below are valid; ParseLocale is the single way in from text.
type Locale string

const (
	LocaleVN Locale = "VN"
	LocaleCH Locale = "CH"
)

// ErrUnknownLocale is returned for any code outside {VN, CH}.
var ErrUnknownLocale = errors.New("unknown locale")

// ParseLocale maps an external code to a Locale. Matching is exact and
// case-sensitive.
func ParseLocale(code string) (Locale, error) {
	switch code {
	case string(LocaleVN):
		return LocaleVN, nil
	case string(LocaleCH):
		return LocaleCH, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLocale, code)
}

// Valid reports whether l is one of the known variants.
func (l Locale) Valid() bool {
	return l == LocaleVN || l == LocaleCH
}

func (l Locale) String() string { return string(l) }

// Value implements driver.Valuer so an invalid Locale can never reach the
// `language` column.
func (l Locale) Value() (driver.Value, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLocale, string(l))
	}
	return string(l), nil
}

// Scan implements sql.Scanner. Both MySQL ENUM and the postgres `language`
// type arrive as text.
func (l *Locale) Scan(src any) error {
	var code string
	switch v := src.(type) {
	case string:
		code = v
	case []byte:
		code = string(v)
	default:
		return fmt.Errorf("scan locale: unsupported type %T", src)
	}
	parsed, err := ParseLocale(code)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
