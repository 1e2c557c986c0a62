package utils

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidAddress 地址格式错误
var ErrInvalidAddress = errors.New("invalid address: expected 0x followed by 40 hex characters")

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// IsAddress reports whether s is a canonical lowercase 0x address of length 42.
func IsAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// NormalizeAddress lowercases and validates a wallet address supplied by a
// caller that may use checksum casing.
func NormalizeAddress(s string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(s))
	if !IsAddress(a) {
		return "", ErrInvalidAddress
	}
	return a, nil
}
