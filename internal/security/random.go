package security

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// NumericCode returns a random code of n digits, for one-time email codes.
func NumericCode(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0') + byte(v.Int64())
	}
	return string(digits), nil
}

// TokenHex returns n random bytes hex-encoded, used for synthesized
// usernames.
func TokenHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
