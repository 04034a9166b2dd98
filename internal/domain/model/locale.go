package model

import "strings"

type Locale string

const (
	LocaleEN Locale = "en"
	LocaleRU Locale = "ru"
	LocaleKZ Locale = "kz"
)

// ParseLocale accepts only the stored locale set.
func ParseLocale(s string) (Locale, bool) {
	switch l := Locale(strings.ToLower(strings.TrimSpace(s))); l {
	case LocaleEN, LocaleRU, LocaleKZ:
		return l, true
	default:
		return "", false
	}
}

// Catalog returns the string table a locale renders with: kz shares ru,
// anything unknown falls back to en.
func (l Locale) Catalog() Locale {
	switch l {
	case LocaleRU, LocaleKZ:
		return LocaleRU
	default:
		return LocaleEN
	}
}
