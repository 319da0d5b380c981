package conversion

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Hash returns the lowercase hex SHA-256 of value, or "" for an empty value.
func Hash(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps digits only. Numbers written without an international
// prefix ("+" or "00") and at most 11 digits long are treated as national and
// get countryCode prepended.
func NormalizePhone(phone, countryCode string) string {
	trimmed := strings.TrimSpace(phone)
	international := strings.HasPrefix(trimmed, "+") || strings.HasPrefix(trimmed, "00")

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, trimmed)

	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return ""
	}

	if !international && countryCode != "" && len(digits) <= 11 {
		digits = countryCode + digits
	}
	return digits
}

// NormalizeName lowercases and strips everything but letters.
func NormalizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, strings.TrimSpace(name))
}

// SplitName returns the first and last tokens of a full name.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], parts[len(parts)-1]
}

// NormalizeDocument keeps only letters and digits of a tax or account id.
func NormalizeDocument(doc string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, doc)
}

// HashEmail normalizes then hashes an email address.
func HashEmail(email string) string {
	return Hash(NormalizeEmail(email))
}

// HashPhone normalizes then hashes a phone number.
func HashPhone(phone, countryCode string) string {
	return Hash(NormalizePhone(phone, countryCode))
}
