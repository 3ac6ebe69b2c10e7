package security

import (
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt rejects inputs longer than 72 bytes.
const maxPasswordBytes = 72

// truncatePassword clamps pw to the bcrypt limit without splitting a
// multi-byte rune. Applied on both hash and verify so hashes issued for
// oversized passwords stay verifiable.
func truncatePassword(pw string) string {
	if len(pw) <= maxPasswordBytes {
		return pw
	}
	b := []byte(pw)[:maxPasswordBytes]
	for len(b) > 0 {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			break
		}
		b = b[:len(b)-1]
	}
	return string(b)
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(truncatePassword(pw)), 12)
	return string(b), err
}

// CheckPassword reports whether pw matches hash. Malformed hashes and
// mismatches both return false; nothing is raised to the caller.
func CheckPassword(hash, pw string) bool {
	pwb := []byte(truncatePassword(pw))
	if bcrypt.CompareHashAndPassword([]byte(hash), pwb) == nil {
		return true
	}
	// Hashes created before truncation existed were fed the raw input.
	if len(pw) > maxPasswordBytes {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
	}
	return false
}
