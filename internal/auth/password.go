package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DerivePassword builds the initial login code of a client: the lower-cased
// shortcode followed by the last two characters of the birth year. A birth year
// shorter than two characters is used as is, an empty one adds nothing.
//
// This is a convenience code the front desk can read out to a client. It is
// guessable and must not be treated as a secure credential.
func DerivePassword(shortcode, birthYear string) string {
	suffix := birthYear
	if r := []rune(birthYear); len(r) > 2 {
		suffix = string(r[len(r)-2:])
	}
	return strings.ToLower(shortcode) + suffix
}

// HashPassword returns a bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares a bcrypt hash and a plain password.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
