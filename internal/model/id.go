package model

import "crypto/rand"

// IDLength is the length of every task, perspective and archive id.
const IDLength = 11

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// GenerateID returns a random 11-character id. Collisions are not checked.
func GenerateID() string {
	b := make([]byte, IDLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	// 64 symbols, so the low six bits of each byte pick uniformly.
	for i := range b {
		b[i] = idAlphabet[b[i]&63]
	}
	return string(b)
}

// IsValidID reports whether s has the shape of a generated id.
func IsValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			return false
		}
	}
	return true
}
