package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// CodeLength is the length of generated room codes.
	CodeLength = 6

	// codeCharset excludes look-alike characters (0/O, 1/I/L).
	codeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// GenerateRoomCode returns a short code players can share to join a
// game. Codes are not secrets; uniqueness is enforced by the caller.
func GenerateRoomCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(buf), nil
}

// NormalizeRoomCode maps user input to the canonical code form.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidRoomCode reports whether code has the shape of a room code.
func IsValidRoomCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(codeCharset, r) {
			return false
		}
	}
	return true
}
