package auth

import (
	"crypto/rand"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	backupCodeCount     = 10
	backupCodeBodyChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	backupCodeBcryptCost = 4
)

// GenerateBackupCodes returns 10 plaintext codes shaped "XXXX-XXXX" and
// their bcrypt hashes at cost 4, per spec.md §3/§4.C4 ("Generated in sets
// of 10, length 8 (dash after 4)"). Plaintext codes are returned once, for
// the caller to show to the user; only the hashes are ever persisted.
func GenerateBackupCodes() (plain []string, hashes []string, err error) {
	plain = make([]string, backupCodeCount)
	hashes = make([]string, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		code, err := randomBackupCode()
		if err != nil {
			return nil, nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), backupCodeBcryptCost)
		if err != nil {
			return nil, nil, err
		}
		plain[i] = code
		hashes[i] = string(hash)
	}
	return plain, hashes, nil
}

func randomBackupCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	body := make([]byte, 8)
	for i, b := range buf {
		body[i] = backupCodeBodyChars[int(b)%len(backupCodeBodyChars)]
	}
	return fmt.Sprintf("%s-%s", body[:4], body[4:]), nil
}

// VerifyBackupCode compares a user-supplied code (with or without the
// dash) against a stored hash.
func VerifyBackupCode(hash, code string) bool {
	if len(code) == 8 && !strings.Contains(code, "-") {
		code = code[:4] + "-" + code[4:]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
