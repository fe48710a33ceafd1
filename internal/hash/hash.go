package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashToken bcrypts the SHA-256 digest of a token. bcrypt ignores input past
// 72 bytes and signed JWTs sharing a header and subject collide in that prefix.
func HashToken(token string) (string, error) {
	return HashPassword(Sha256Hex(token))
}

func CheckToken(hash, token string) bool {
	if hash == "" || token == "" {
		return false
	}
	return CheckPassword(hash, Sha256Hex(token))
}

func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
